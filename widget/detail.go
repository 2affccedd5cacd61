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
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/orm"
)

// Page context key of the content shown by a detail widget.
const ContextContent = "content"

// DetailWidget shows the entry addressed by the last URL token.
type DetailWidget struct {
	ormWidget
	reflection *orm.ReflectionHelper
}

func NewDetailWidget(services *Services) *DetailWidget {
	return &DetailWidget{ormWidget: ormWidget{services: services}, reflection: orm.NewReflectionHelper()}
}

func (w *DetailWidget) Name() string { return DetailName }

func (w *DetailWidget) Routes(wc *Context) []Route {
	if w.contentProperties(wc).ModelName == "" {
		return nil
	}
	return []Route{{Path: "/%id%", Name: "detail", Methods: []string{http.MethodHead, http.MethodGet, http.MethodPost}}}
}

func (w *DetailWidget) Templates(wc *Context) []string {
	return []string{w.services.Views.Detail(w.contentProperties(wc).Template).Resource()}
}

func (w *DetailWidget) Handle(ctx context.Context, wc *Context, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	return w.Index(ctx, wc, id)
}

// Index renders the entry with id. An empty id means none was requested.
func (w *DetailWidget) Index(ctx context.Context, wc *Context, id string) error {
	props := w.contentProperties(wc)
	if props.ModelName == "" {
		return nil
	}
	if id == "" {
		w.notFound(wc, props)
		return nil
	}

	model, err := w.model(props)
	if err != nil {
		return err
	}

	c, err := w.find(ctx, wc, model, props, wc.Locale, id, false)
	if err != nil {
		return err
	}
	if c == nil && props.IncludeUnlocalized {
		for _, locale := range w.services.Locales {
			if locale == wc.Locale {
				continue
			}
			if c, err = w.find(ctx, wc, model, props, locale, id, false); err != nil {
				return err
			} else if c != nil {
				break
			}
		}
	}

	idField := props.IDFieldOrDefault()
	if c == nil && idField != model.PrimaryKey() && w.services.EntryLog != nil {
		_, current, found, err := w.services.EntryLog.FindCurrentValue(ctx, model.Name(), idField, id)
		if err != nil {
			return err
		}
		if found && current != "" {
			log.WithFields(logrus.Fields{"model": model.Name(), "from": id, "to": current}).Debug("redirect outdated id")
			wc.Response.SetRedirect(wc.NodeURL()+"/"+current, http.StatusMovedPermanently)
			return nil
		}
	}

	if c != nil && !props.IncludeUnlocalized && !w.isLocalized(model, c.Data, wc.Locale) {
		c = nil
	}
	if c == nil {
		w.notFound(wc, props)
		return nil
	}

	wc.Page.Set(ContextContent, c)
	wc.Page.AddBreadcrumb(wc.NodeURL()+"/"+id, c.Title)
	if props.Title != "" {
		wc.Page.SetTitle(c.Title)
	}
	if err := w.setView(wc, props, c); err != nil {
		return err
	}
	if props.MetaOg {
		w.setMetaOg(wc, model, props, c)
	}
	wc.applyStyle()
	return nil
}

func (w *DetailWidget) notFound(wc *Context, props *cms.ContentProperties) {
	if props.NoParametersAction != cms.NoParametersIgnore {
		wc.setNotFound()
	}
}

// find fetches the entry whose id field equals id in locale. Entries of
// other locales are only found when fetchUnlocalized is set.
func (w *ormWidget) find(ctx context.Context, wc *Context, model *orm.Model, props *cms.ContentProperties, locale, id string, fetchUnlocalized bool) (*content.Content, error) {
	query := w.createQuery(model, props, locale, wc.Request).SetFetchUnlocalized(fetchUnlocalized)
	query.AddCondition("{"+props.IDFieldOrDefault()+"} = %1%", id)
	if props.Condition != "" {
		query.AddCondition(props.Condition)
	}
	if props.Order != "" {
		query.AddOrderBy(props.Order)
	}

	entry, err := query.First(ctx)
	if orm.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return w.services.Content.GetContentForEntry(ctx, model, entry, wc.Node.RootNodeID(), wc.Locale, "", w.formats(model, props))
}

func (w *DetailWidget) isLocalized(model *orm.Model, entry interface{}, locale string) bool {
	if !model.IsLocalized() {
		return true
	}
	value, ok := w.reflection.GetProperty(entry, orm.LocaleField)
	return ok && fmt.Sprint(value) == locale
}

func (w *ormWidget) setView(wc *Context, props *cms.ContentProperties, c *content.Content) error {
	v := w.services.Views.Detail(props.Template).NewView(wc.Locale, wc.ID, c, props)
	if err := w.processView(props, v); err != nil {
		return err
	}
	wc.Response.View = v
	return nil
}

// setMetaOg adds the open graph meta of the content to the node.
func (w *DetailWidget) setMetaOg(wc *Context, model *orm.Model, props *cms.ContentProperties, c *content.Content) {
	formatter := w.services.Manager.Formatter()

	title := props.OgTitleFormat
	if title == "" {
		title = model.DataFormat(orm.FormatTitle)
	}
	wc.Node.SetMeta("og:title", formatter.Format(c.Data, title))

	teaser := props.OgTeaserFormat
	if teaser == "" {
		teaser = model.DataFormat(orm.FormatTeaser)
	}
	if teaser != "" {
		if value := formatter.Format(c.Data, teaser); value != "" {
			wc.Node.SetMeta("og:description", value)
		}
	}

	image := props.OgImageFormat
	if image == "" {
		image = model.DataFormat(orm.FormatImage)
	}
	if image != "" {
		if value := formatter.Format(c.Data, image); value != "" {
			wc.Node.SetMeta("og:image", value)
		}
	}
}

func (w *DetailWidget) PropertiesPreview(wc *Context) string {
	props := w.contentProperties(wc)
	if props.ModelName == "" {
		return w.translate("label.widget.properties.unset", nil)
	}

	var b strings.Builder
	line := func(label, value string) {
		b.WriteString("<strong>" + w.translate(label, nil) + "</strong>: " + value + "<br />")
	}
	line("label.model", props.ModelName)
	if len(props.ModelFields) > 0 {
		line("label.fields", strings.Join(props.ModelFields, ", "))
	}
	if props.RecursiveDepth > 0 {
		line("label.depth.recursive", fmt.Sprint(props.RecursiveDepth))
	}
	line("label.unlocalized", w.yesNo(props.IncludeUnlocalized))
	if props.IDField != "" && props.IDField != "id" {
		line("label.field.id", props.IDField)
	}
	line("label.template", w.Templates(wc)[0])
	return b.String()
}

// EntryWidget shows one configured entry.
type EntryWidget struct {
	DetailWidget
}

func NewEntryWidget(services *Services) *EntryWidget {
	return &EntryWidget{DetailWidget: *NewDetailWidget(services)}
}

func (w *EntryWidget) Name() string { return EntryName }

func (w *EntryWidget) Routes(wc *Context) []Route { return nil }

func (w *EntryWidget) Handle(ctx context.Context, wc *Context, args []string) error {
	return w.Index(ctx, wc)
}

// ContextKey returns the page context key of the entry of widget id.
func ContextKey(widgetID string) string {
	return "orm.entry." + widgetID
}

// Index renders the configured entry.
func (w *EntryWidget) Index(ctx context.Context, wc *Context) error {
	props := w.contentProperties(wc)
	if props.EntryID == "" || props.ModelName == "" {
		return nil
	}
	model, err := w.model(props)
	if err != nil {
		return err
	}
	props.IDField = model.PrimaryKey()

	c, err := w.find(ctx, wc, model, props, wc.Locale, props.EntryID, props.IncludeUnlocalized)
	if err != nil || c == nil {
		return err
	}

	wc.Page.Set(ContextKey(wc.ID), c)
	if props.Breadcrumb {
		wc.Page.AddBreadcrumb(wc.NodeURL()+"/"+props.EntryID, c.Title)
	}
	if props.Title != "" {
		wc.Page.SetTitle(c.Title)
	}
	if err := w.setView(wc, props, c); err != nil {
		return err
	}
	wc.applyStyle()
	return nil
}

func (w *EntryWidget) PropertiesPreview(wc *Context) string {
	props := w.contentProperties(wc)
	if props.ModelName == "" {
		return w.translate("label.widget.properties.unset", nil)
	}
	entry := "<strong>" + w.translate("label.entry", nil) + "</strong>: #" + props.EntryID + "<br />"
	preview := w.DetailWidget.PropertiesPreview(wc)
	if i := strings.Index(preview, "<br />"); i >= 0 {
		return preview[:i+6] + entry + preview[i+6:]
	}
	return preview + entry
}
