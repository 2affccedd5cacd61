/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package widget

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/view"
)

// Breadcrumb is a link of the page trail.
type Breadcrumb struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Page is shared by all widgets rendered for one request.
type Page struct {
	mu          sync.RWMutex
	values      map[string]interface{}
	breadcrumbs []Breadcrumb
	title       string
}

func NewPage() *Page {
	return &Page{values: make(map[string]interface{})}
}

func (p *Page) Set(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// Get returns a value set by a widget, nil when unset.
func (p *Page) Get(key string) interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[key]
}

func (p *Page) AddBreadcrumb(url, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breadcrumbs = append(p.breadcrumbs, Breadcrumb{URL: url, Label: label})
}

func (p *Page) Breadcrumbs() []Breadcrumb {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Breadcrumb(nil), p.breadcrumbs...)
}

func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

func (p *Page) Title() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.title
}

// Response is what a widget leaves for the host.
type Response struct {
	StatusCode  int
	RedirectURL string
	// ContentOnly asks the host to send the widget output without the page.
	ContentOnly bool
	View        *view.TemplateView
}

// SetRedirect redirects with status, 302 when status is 0.
func (r *Response) SetRedirect(url string, status int) {
	if status == 0 {
		status = http.StatusFound
	}
	r.RedirectURL = url
	r.StatusCode = status
}

// IsHandled reports whether the host should stop rendering the page.
func (r *Response) IsHandled() bool {
	return r.RedirectURL != "" || (r.StatusCode != 0 && r.StatusCode != http.StatusOK)
}

// Context is the widget instance being rendered and its request.
type Context struct {
	ID         string
	Locale     string
	Node       *cms.Node
	Properties *cms.WidgetProperties
	Request    *http.Request
	// BaseScript prefixes node routes to build URLs.
	BaseScript string

	Response *Response
	Page     *Page

	IsRegion  bool
	IsSection bool
	IsBlock   bool
}

// NewContext creates the context of widget on node for r.
func NewContext(node *cms.Node, widget *cms.Widget, locale string, r *http.Request) *Context {
	return &Context{
		ID:         widget.ID,
		Locale:     locale,
		Node:       node,
		Properties: widget.WidgetProperties(),
		Request:    r,
		Response:   &Response{},
		Page:       NewPage(),
	}
}

// NodeURL returns the URL of the widget's node.
func (c *Context) NodeURL() string {
	return c.BaseScript + c.Node.Route(c.Locale)
}

func (c *Context) query() url.Values {
	if c.Request == nil || c.Request.URL == nil {
		return url.Values{}
	}
	return c.Request.URL.Query()
}

func (c *Context) isXHR() bool {
	return c.Request != nil && strings.EqualFold(c.Request.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

func (c *Context) setNotFound() {
	c.Response.StatusCode = http.StatusNotFound
}

// applyStyle copies the region, section and block flags of the widget.
func (c *Context) applyStyle() {
	if c.Properties.GetBool("region") {
		c.IsRegion = true
	}
	if c.Properties.GetBool("section") {
		c.IsSection = true
	}
	if c.Properties.GetBool("block") {
		c.IsBlock = true
	}
}

// Route is a sub route a widget handles below its node.
type Route struct {
	Path    string
	Name    string
	Methods []string
	Dynamic bool
}
