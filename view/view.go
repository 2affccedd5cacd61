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

// Package view holds the template views of the ORM widgets and renders them
// with html/template from layered theme directories.
package view

import (
	"sort"
	"strings"
	"unicode"

	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/filter"
)

// TemplateView is a template resource with its variables and assets.
type TemplateView struct {
	Resource          string
	Vars              map[string]interface{}
	Javascripts       []string
	InlineJavascripts []string
	Styles            []string
}

func NewTemplateView(resource string) *TemplateView {
	return &TemplateView{Resource: resource, Vars: make(map[string]interface{})}
}

func (v *TemplateView) Set(key string, value interface{}) {
	v.Vars[key] = value
}

func (v *TemplateView) Get(key string) interface{} {
	return v.Vars[key]
}

func (v *TemplateView) AddJavascript(src string) {
	v.Javascripts = appendUnique(v.Javascripts, src)
}

func (v *TemplateView) AddInlineJavascript(script string) {
	v.InlineJavascripts = append(v.InlineJavascripts, script)
}

func (v *TemplateView) AddStyle(href string) {
	v.Styles = appendUnique(v.Styles, href)
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}

// Result returns the content of an overview view.
func (v *TemplateView) Result() []*content.Content {
	result, _ := v.Vars["result"].([]*content.Content)
	return result
}

// Overview view names and template resources.
const (
	ViewList     = "list"
	ViewBlock    = "block"
	ViewAlphabet = "alphabet"
	ViewCloud    = "cloud"
	ViewDetail   = "detail"

	resourcePrefix = "cms/widget/orm/"

	// PageResource wraps rendered widgets in a document.
	PageResource = "cms/page"
)

// OverviewData is what an overview widget hands to its view.
type OverviewData struct {
	Locale     string
	WidgetID   string
	Result     []*content.Content
	Properties *cms.ContentProperties
	Filters    filter.States
	Arguments  []string
	Pagination *Pagination
	MoreURL    string
}

// OverviewView builds the template view of an overview.
type OverviewView interface {
	Name() string
	Resource() string
	NewView(data OverviewData) *TemplateView
}

// DetailView builds the template view of a detail widget.
type DetailView interface {
	Name() string
	Resource() string
	NewView(locale, widgetID string, c *content.Content, properties *cms.ContentProperties) *TemplateView
}

type overviewView struct {
	name     string
	resource string
	process  func(v *TemplateView)
}

func (o *overviewView) Name() string     { return o.name }
func (o *overviewView) Resource() string { return o.resource }

func (o *overviewView) NewView(data OverviewData) *TemplateView {
	v := NewTemplateView(o.resource)
	properties := data.Properties
	if properties == nil {
		properties = cms.NewContentProperties()
	}
	v.Set("locale", data.Locale)
	v.Set("widgetId", data.WidgetID)
	v.Set("result", data.Result)
	v.Set("properties", properties)
	v.Set("title", properties.Title)
	v.Set("emptyResultMessage", properties.EmptyResultMessage)
	v.Set("filters", data.Filters)
	v.Set("arguments", data.Arguments)
	v.Set("pagination", data.Pagination)
	v.Set("moreUrl", data.MoreURL)
	if data.MoreURL != "" {
		v.Set("moreLabel", properties.MoreLabel)
	}
	if o.process != nil {
		o.process(v)
	}
	return v
}

// ListView renders the result as a list.
func ListView() OverviewView {
	return &overviewView{name: ViewList, resource: resourcePrefix + ViewList}
}

// BlockView renders the result as blocks.
func BlockView() OverviewView {
	return &overviewView{name: ViewBlock, resource: resourcePrefix + ViewBlock}
}

// AlphabetView groups the result by the first letter of the title.
func AlphabetView() OverviewView {
	return &overviewView{name: ViewAlphabet, resource: resourcePrefix + ViewAlphabet, process: func(v *TemplateView) {
		v.Set("letters", GroupByLetter(v.Result()))
	}}
}

// CloudView adds weight classes to the result, see ApplyCloudWeights.
func CloudView(steps int) OverviewView {
	return &overviewView{name: ViewCloud, resource: resourcePrefix + ViewCloud, process: func(v *TemplateView) {
		ApplyCloudWeights(v, steps)
	}}
}

// CustomOverviewView renders the overview with any template resource.
func CustomOverviewView(resource string) OverviewView {
	return &overviewView{name: resource, resource: resource}
}

// LetterGroup is the content starting with one letter. Titles not starting
// with a letter are grouped under #.
type LetterGroup struct {
	Letter string
	Result []*content.Content
}

func GroupByLetter(result []*content.Content) []LetterGroup {
	groups := make(map[string][]*content.Content)
	for _, c := range result {
		letter := "#"
		for _, r := range strings.TrimSpace(c.Title) {
			if unicode.IsLetter(r) {
				letter = string(unicode.ToUpper(r))
			}
			break
		}
		groups[letter] = append(groups[letter], c)
	}
	letters := make([]string, 0, len(groups))
	for letter := range groups {
		letters = append(letters, letter)
	}
	sort.Strings(letters)

	out := make([]LetterGroup, 0, len(letters))
	for _, letter := range letters {
		out = append(out, LetterGroup{Letter: letter, Result: groups[letter]})
	}
	return out
}

type detailView struct {
	name     string
	resource string
}

func (d *detailView) Name() string     { return d.name }
func (d *detailView) Resource() string { return d.resource }

func (d *detailView) NewView(locale, widgetID string, c *content.Content, properties *cms.ContentProperties) *TemplateView {
	v := NewTemplateView(d.resource)
	v.Set("locale", locale)
	v.Set("widgetId", widgetID)
	v.Set("content", c)
	v.Set("properties", properties)
	return v
}

// StandardDetailView renders an entry with the detail template.
func StandardDetailView() DetailView {
	return &detailView{name: ViewDetail, resource: resourcePrefix + ViewDetail}
}

func CustomDetailView(resource string) DetailView {
	return &detailView{name: resource, resource: resource}
}

// Views holds the predefined overview and detail views by name.
type Views struct {
	overviews map[string]OverviewView
	details   map[string]DetailView
}

func NewViews() *Views {
	v := &Views{overviews: make(map[string]OverviewView), details: make(map[string]DetailView)}
	for _, o := range []OverviewView{ListView(), BlockView(), AlphabetView(), CloudView(DefaultCloudSteps)} {
		v.RegisterOverview(o)
	}
	v.RegisterDetail(StandardDetailView())
	return v
}

func (v *Views) RegisterOverview(o OverviewView) { v.overviews[o.Name()] = o }

func (v *Views) RegisterDetail(d DetailView) { v.details[d.Name()] = d }

// Overview returns the view by name. Other non-empty names are template
// resources, an empty name is the list view.
func (v *Views) Overview(name string) OverviewView {
	if o, ok := v.overviews[name]; ok {
		return o
	}
	if name == "" {
		return v.overviews[ViewList]
	}
	return CustomOverviewView(name)
}

func (v *Views) Detail(name string) DetailView {
	if d, ok := v.details[name]; ok {
		return d
	}
	if name == "" {
		return v.details[ViewDetail]
	}
	return CustomDetailView(name)
}

// OverviewNames returns the predefined overview names, sorted.
func (v *Views) OverviewNames() []string {
	names := make([]string, 0, len(v.overviews))
	for name := range v.overviews {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (v *Views) HasOverview(name string) bool {
	_, ok := v.overviews[name]
	return ok
}
