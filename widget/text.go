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
	"html/template"
	"strings"

	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/view"
)

// TextResource is the template of the text widget.
const TextResource = "cms/widget/text"

// TextWidget shows a stored text.
type TextWidget struct {
	ormWidget
}

func NewTextWidget(services *Services) *TextWidget {
	return &TextWidget{ormWidget: ormWidget{services: services}}
}

func (w *TextWidget) Name() string { return text.WidgetName }

func (w *TextWidget) Routes(wc *Context) []Route { return nil }

func (w *TextWidget) Templates(wc *Context) []string { return []string{TextResource} }

func (w *TextWidget) Handle(ctx context.Context, wc *Context, args []string) error {
	t, err := w.services.Texts.GetText(ctx, wc.Properties, wc.Locale)
	if err != nil {
		return err
	}
	w.autoCache(wc)
	if t.Title == "" && t.Body == "" && t.Image == "" {
		return nil
	}

	v := view.NewTemplateView(TextResource)
	v.Set("widgetId", wc.ID)
	v.Set("text", t)
	v.Set("body", textBody(t))
	wc.Response.View = v
	wc.applyStyle()
	return nil
}

// textBody returns the body as HTML, escaping plain text bodies and keeping
// their line breaks.
func textBody(t *text.Text) template.HTML {
	if t.IsHTML() {
		return template.HTML(t.Body)
	}
	escaped := template.HTMLEscapeString(strings.ReplaceAll(t.Body, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br />\n"))
}

func (w *TextWidget) PropertiesPreview(wc *Context) string {
	id := text.TextID(wc.Properties)
	if id == 0 {
		return w.translate("label.widget.properties.unset", nil)
	}
	t, err := w.services.Texts.GetText(context.Background(), wc.Properties, wc.Locale)
	if err != nil {
		log.WithError(err).WithField("widget", wc.ID).Warn("text preview")
		return ""
	}
	return "<strong>" + w.translate("label.text", nil) + "</strong>: " + template.HTMLEscapeString(t.Name)
}
