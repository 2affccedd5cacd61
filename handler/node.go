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

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/form"
	"github.com/tomoncle/ormcms/types"
	"github.com/tomoncle/ormcms/view"
	"github.com/tomoncle/ormcms/widget"
)

// renderWidget renders a widget instance of a node. The path below the
// widget id holds the route arguments.
func (h *Handler) renderWidget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, instance, err := h.loadWidget(ctx, r.PathValue("widget"))
	if err == nil && instance.NodeID != r.PathValue("node") {
		err = errors.Wrapf(cms.ErrWidgetNotFound, "widget %s on node %s", instance.ID, r.PathValue("node"))
	}
	if err != nil {
		h.writeLoadError(w, err)
		return
	}

	locale := h.locale(r)
	wc := widget.NewContext(node, instance, locale, r)
	wc.BaseScript = h.opts.BaseScript
	var args []string
	for _, arg := range strings.Split(r.PathValue("args"), "/") {
		if arg != "" {
			args = append(args, arg)
		}
	}

	if err := h.opts.Widgets.Render(ctx, instance.Name, wc, args); err != nil {
		if errors.Is(err, widget.ErrUnknownWidget) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := wc.Response
	if resp.RedirectURL != "" {
		http.Redirect(w, r, resp.RedirectURL, resp.StatusCode)
		return
	}
	if resp.IsHandled() && resp.View == nil {
		http.Error(w, http.StatusText(resp.StatusCode), resp.StatusCode)
		return
	}
	if resp.View == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := h.opts.Renderer.RenderString(resp.View)
	if err == nil && !resp.ContentOnly {
		body, err = h.opts.Renderer.RenderString(h.page(wc, body))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if wc.Properties.IsCacheEnabled() && wc.Properties.CacheTTL() > 0 {
		w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(wc.Properties.CacheTTL()))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if resp.StatusCode != 0 {
		w.WriteHeader(resp.StatusCode)
	}
	_, _ = w.Write([]byte(body))
}

// page wraps the output of a widget in the page document.
func (h *Handler) page(wc *widget.Context, body string) *view.TemplateView {
	page := view.NewTemplateView(view.PageResource)
	title := wc.Page.Title()
	if title == "" {
		title = wc.Node.Name(wc.Locale)
	}
	page.Set("locale", wc.Locale)
	page.Set("title", title)
	page.Set("meta", wc.Node.Meta())
	page.Set("breadcrumbs", wc.Page.Breadcrumbs())
	page.Set("block", wc.IsBlock)
	page.Set("content", body)
	page.Javascripts = wc.Response.View.Javascripts
	page.Styles = wc.Response.View.Styles
	return page
}

func (h *Handler) loadWidget(ctx context.Context, id string) (*cms.Node, *cms.Widget, error) {
	instance, err := h.opts.Services.Nodes.GetWidget(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	node, err := h.opts.Services.Nodes.GetNode(ctx, instance.NodeID)
	if err != nil {
		return nil, nil, err
	}
	return node, instance, nil
}

func (h *Handler) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, cms.ErrWidgetNotFound) || errors.Is(err, cms.ErrNodeNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

// component returns the property form of a widget type.
func (h *Handler) component(ctx context.Context, name string, node *cms.Node, locale string) (form.Component, error) {
	switch name {
	case widget.OverviewName:
		c := form.NewOverviewComponent(h.fields, h.opts.Services.Content, h.opts.Advanced)
		c.Templates = optionList(h.opts.Services.Views.OverviewNames())
		c.ViewProcessors = optionList(h.opts.Services.Processors.ViewNames())
		c.FilterTypes = optionList(h.opts.Services.Filters.Names())
		c.Translator = h.opts.Services.Translator
		nodes, err := h.opts.Services.Nodes.NodeOptions(ctx, node.RootNodeID(), locale)
		if err != nil {
			return nil, err
		}
		c.NodeOptions = nodes
		return c, nil
	case widget.DetailName:
		c := form.NewDetailComponent(h.fields, h.opts.Advanced)
		c.ViewProcessors = optionList(h.opts.Services.Processors.ViewNames())
		c.Translator = h.opts.Services.Translator
		return c, nil
	case widget.EntryName:
		c := form.NewEntryComponent(h.fields, h.opts.Advanced)
		c.ViewProcessors = optionList(h.opts.Services.Processors.ViewNames())
		c.Translator = h.opts.Services.Translator
		return c, nil
	}
	return nil, errors.Wrap(widget.ErrUnknownWidget, name)
}

func optionList(values []string) types.Options {
	options := make(types.Options, 0, len(values))
	for _, v := range values {
		options.Add(v, v)
	}
	return options
}

type propertiesResponse struct {
	Widget  string                 `json:"widget"`
	Preview string                 `json:"preview"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Rows    []form.Row             `json:"rows,omitempty"`
	Errors  map[string]string      `json:"errors,omitempty"`
}

// widgetProperties returns the property form of a widget with its current
// values.
func (h *Handler) widgetProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, instance, err := h.loadWidget(ctx, r.PathValue("widget"))
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	locale := h.locale(r)
	wc := widget.NewContext(node, instance, locale, r)
	impl, err := h.opts.Widgets.Get(instance.Name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	c, err := h.component(ctx, instance.Name, node, locale)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	props := cms.FromWidgetProperties(wc.Properties, locale)
	data := c.ParseSetData(props)
	rows, err := c.Rows(ctx, props, locale)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, propertiesResponse{
		Widget:  instance.Name,
		Preview: impl.PropertiesPreview(wc),
		Data:    data,
		Rows:    rows,
	})
}

type propertiesSaver interface {
	SaveProperties(wc *widget.Context, props *cms.ContentProperties)
}

// saveWidgetProperties validates the submitted form and stores the
// properties for the requested locale.
func (h *Handler) saveWidgetProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, instance, err := h.loadWidget(ctx, r.PathValue("widget"))
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	locale := h.locale(r)
	wc := widget.NewContext(node, instance, locale, r)
	impl, err := h.opts.Widgets.Get(instance.Name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	saver, ok := impl.(propertiesSaver)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("widget %s has no properties", instance.Name))
		return
	}
	c, err := h.component(ctx, instance.Name, node, locale)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	c.ParseSetData(cms.FromWidgetProperties(wc.Properties, locale))
	props, err := c.ParseGetData(form.FromValues(r.PostForm))
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, propertiesResponse{Widget: instance.Name, Errors: verr.Errors})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	saver.SaveProperties(wc, props)
	if err := h.opts.Services.Nodes.SaveWidget(ctx, instance); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.WithFields(logrus.Fields{"widget": instance.ID, "type": instance.Name, "locale": locale}).Info("widget properties saved")
	writeJSON(w, http.StatusOK, propertiesResponse{Widget: instance.Name, Preview: impl.PropertiesPreview(wc)})
}
