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
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/view"
)

func TestTextWidget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := NewTextWidget(f.services)

	instance := cms.NewWidget(f.news, text.WidgetName)
	wc := NewContext(f.news, instance, "en", httptest.NewRequest(http.MethodGet, "/news", nil))
	wc.Properties.SetAutoCache(true)
	require.NoError(t, w.Handle(ctx, wc, nil))
	assert.Nil(t, wc.Response.View)
	assert.True(t, wc.Properties.IsCacheEnabled())
	assert.Equal(t, "[label.widget.properties.unset]", w.PropertiesPreview(wc))

	plain := &text.Text{Title: "Hours", Body: "mon<fri\nsat", Format: text.FormatPlain}
	require.NoError(t, f.services.Texts.SetText(ctx, wc.Properties, []string{"en"}, plain, text.Submission{}))
	require.NoError(t, w.Handle(ctx, wc, nil))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, TextResource, wc.Response.View.Resource)
	assert.Equal(t, template.HTML("mon&lt;fri<br />\nsat"), wc.Response.View.Get("body"))
	assert.Equal(t, autoCacheTTL, wc.Properties.CacheTTL())
	assert.Contains(t, w.PropertiesPreview(wc), "Hours")

	out, err := view.NewRenderer().RenderString(wc.Response.View)
	require.NoError(t, err)
	assert.Contains(t, out, "<h2>Hours</h2>")
	assert.Contains(t, out, "mon&lt;fri<br />")

	html := &text.Text{Body: "<p>Open <b>daily</b></p>"}
	require.NoError(t, f.services.Texts.SetText(ctx, wc.Properties, []string{"en"}, html, text.Submission{Version: 1}))
	wc = NewContext(f.news, instance, "en", httptest.NewRequest(http.MethodGet, "/news", nil))
	require.NoError(t, w.Handle(ctx, wc, nil))
	assert.Equal(t, template.HTML("<p>Open <b>daily</b></p>"), wc.Response.View.Get("body"))
}

func (f *fixture) contact(t *testing.T, method, target string, form url.Values, configure func(p *cms.WidgetProperties)) *Context {
	t.Helper()
	instance := cms.NewWidget(f.news, ContactName)
	props := cms.NewContentProperties()
	props.ModelName = "Message"
	props.ToWidgetProperties(instance.WidgetProperties(), "en")
	wp := instance.WidgetProperties()
	wp.Set(PropertyContactRequired, "name, email")
	wp.Set(PropertyContactEmail, "email")
	if configure != nil {
		configure(wp)
	}
	req := httptest.NewRequest(method, target, nil)
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return NewContext(f.news, instance, "en", req)
}

func contactFields(v *view.TemplateView) map[string]*ContactField {
	fields := make(map[string]*ContactField)
	for _, field := range v.Get("fields").([]*ContactField) {
		fields[field.Name] = field
	}
	return fields
}

func TestContactForm(t *testing.T) {
	f := newFixture(t)
	w := NewContactWidget(f.services)
	wc := f.contact(t, http.MethodGet, "/news", nil, nil)

	require.NoError(t, w.Handle(context.Background(), wc, nil))
	require.NotNil(t, wc.Response.View)
	assert.Equal(t, ContactResource, wc.Response.View.Resource)
	assert.Equal(t, "/news", wc.Response.View.Get("action"))
	assert.Equal(t, false, wc.Response.View.Get("sent"))

	fields := wc.Response.View.Get("fields").([]*ContactField)
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}
	assert.Equal(t, []string{"name", "email", "body", "rating"}, names)
	assert.True(t, fields[0].Required)
	assert.True(t, fields[1].Email)
	assert.False(t, fields[2].Required)

	out, err := view.NewRenderer().RenderString(wc.Response.View)
	require.NoError(t, err)
	assert.Contains(t, out, `type="email"`)

	wc = f.contact(t, http.MethodGet, "/news?sent=1", nil, func(p *cms.WidgetProperties) {
		p.SetLocalized("en", PropertyContactFinish, "We will call you")
	})
	require.NoError(t, w.Handle(context.Background(), wc, nil))
	assert.Equal(t, true, wc.Response.View.Get("sent"))
	out, err = view.NewRenderer().RenderString(wc.Response.View)
	require.NoError(t, err)
	assert.Contains(t, out, "We will call you")

	wc = f.contact(t, http.MethodGet, "/news", nil, func(p *cms.WidgetProperties) { p.Set(cms.PropertyModelFields, "name,missing") })
	err = w.Handle(context.Background(), wc, nil)
	assert.ErrorIs(t, err, orm.ErrFieldNotFound)
}

func TestContactSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := NewContactWidget(f.services)

	wc := f.contact(t, http.MethodPost, "/news", url.Values{"email": {"nope"}, "body": {"  hi  "}, "rating": {"many"}}, nil)
	require.NoError(t, w.Handle(ctx, wc, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, wc.Response.StatusCode)
	fields := contactFields(wc.Response.View)
	assert.NotEmpty(t, fields["name"].Error)
	assert.NotEmpty(t, fields["email"].Error)
	assert.NotEmpty(t, fields["rating"].Error)
	assert.Empty(t, fields["body"].Error)
	assert.Equal(t, "hi", fields["body"].Value)
	assert.Equal(t, "nope", fields["email"].Value)

	wc = f.contact(t, http.MethodPost, "/news", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "body": {"Call me"}, "rating": {"4"}}, nil)
	require.NoError(t, w.Handle(ctx, wc, nil))
	assert.Equal(t, "/news?sent=1", wc.Response.RedirectURL)
	assert.Equal(t, http.StatusSeeOther, wc.Response.StatusCode)
	assert.Nil(t, wc.Response.View)

	var stored []*message
	require.NoError(t, f.services.Manager.DB().NewSelect().Model(&stored).Scan(ctx))
	require.Len(t, stored, 1)
	assert.Equal(t, "Ann", stored[0].Name)
	assert.Equal(t, "ann@example.com", stored[0].Email)
	assert.Equal(t, 4, stored[0].Rating)
	assert.Contains(t, w.PropertiesPreview(wc), "Message")
}
