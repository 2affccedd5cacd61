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
	"net/http"
	"reflect"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/view"
	"github.com/uptrace/bun/schema"
)

const (
	ContactName     = "orm.contact"
	ContactResource = "cms/widget/orm/contact"

	PropertyContactRequired = "contact.required"
	PropertyContactEmail    = "contact.email"
	PropertyContactFinish   = "contact.finish"

	// ParamSent marks the redirect after a stored submission.
	ParamSent = "sent"
)

// ContactField is an input of the contact form.
type ContactField struct {
	Name     string
	Label    string
	Value    string
	Required bool
	Email    bool
	Error    string
}

// ContactWidget stores submitted contact forms as entries of a model.
type ContactWidget struct {
	ormWidget
}

func NewContactWidget(services *Services) *ContactWidget {
	return &ContactWidget{ormWidget: ormWidget{services: services}}
}

func (w *ContactWidget) Name() string { return ContactName }

func (w *ContactWidget) Routes(wc *Context) []Route {
	return []Route{{Path: "", Name: "contact", Methods: []string{http.MethodGet, http.MethodPost}}}
}

func (w *ContactWidget) Templates(wc *Context) []string { return []string{ContactResource} }

func (w *ContactWidget) Handle(ctx context.Context, wc *Context, args []string) error {
	props := w.contentProperties(wc)
	if props.ModelName == "" {
		return nil
	}
	model, err := w.model(props)
	if err != nil {
		return err
	}
	fields, err := w.fields(wc, model, props)
	if err != nil {
		return err
	}

	if wc.Request != nil && wc.Request.Method == http.MethodPost {
		stored, err := w.submit(ctx, wc, model, fields)
		if err != nil || stored {
			return err
		}
	}

	v := view.NewTemplateView(ContactResource)
	v.Set("widgetId", wc.ID)
	v.Set("action", wc.NodeURL())
	v.Set("fields", fields)
	v.Set("sent", wc.query().Get(ParamSent) != "")
	v.Set("finish", wc.Properties.GetLocalized(wc.Locale, PropertyContactFinish))
	wc.Response.View = v
	wc.applyStyle()
	return nil
}

// fields returns the inputs of the form: the configured fields, or every
// scalar column of the model.
func (w *ContactWidget) fields(wc *Context, model *orm.Model, props *cms.ContentProperties) ([]*ContactField, error) {
	required := splitList(wc.Properties.Get(PropertyContactRequired))
	email := wc.Properties.Get(PropertyContactEmail)

	names := props.ModelFields
	if len(names) == 0 {
		for _, f := range model.Table().DataFields {
			if isScalar(f) {
				names = append(names, f.Name)
			}
		}
	}
	fields := make([]*ContactField, 0, len(names))
	for _, name := range names {
		f := model.Table().LookupField(name)
		if f == nil || f.IsPK {
			return nil, errors.Wrapf(orm.ErrFieldNotFound, "contact field %s of %s", name, model.Name())
		}
		fields = append(fields, &ContactField{
			Name:     f.Name,
			Label:    w.translate("label."+f.Name, nil),
			Required: required[f.Name],
			Email:    f.Name == email,
		})
	}
	return fields, nil
}

func isScalar(f *schema.Field) bool {
	switch f.IndirectType.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func splitList(s string) map[string]bool {
	values := make(map[string]bool)
	for _, value := range strings.Split(s, ",") {
		if value = strings.TrimSpace(value); value != "" {
			values[value] = true
		}
	}
	return values
}

// submit validates the posted form and stores it. Invalid forms are left for
// the view with their errors.
func (w *ContactWidget) submit(ctx context.Context, wc *Context, model *orm.Model, fields []*ContactField) (bool, error) {
	if err := wc.Request.ParseForm(); err != nil {
		wc.Response.StatusCode = http.StatusBadRequest
		return true, nil
	}

	entry := model.NewEntry()
	strct := reflect.ValueOf(entry).Elem()
	valid := true
	for _, field := range fields {
		field.Value = govalidator.Trim(wc.Request.PostForm.Get(field.Name), "")
		switch {
		case field.Value == "" && field.Required:
			field.Error = w.translate("error.validation.required", nil)
		case field.Value != "" && field.Email && !govalidator.IsEmail(field.Value):
			field.Error = w.translate("error.validation.email", nil)
		case field.Value != "":
			if err := model.Table().LookupField(field.Name).ScanValue(strct, field.Value); err != nil {
				field.Error = w.translate("error.validation.invalid", nil)
			}
		}
		if field.Error != "" {
			valid = false
		}
	}
	if !valid {
		wc.Response.StatusCode = http.StatusUnprocessableEntity
		return false, nil
	}

	if _, err := w.services.Manager.DB().NewInsert().Model(entry).Exec(ctx); err != nil {
		return false, errors.Wrapf(err, "store contact %s", model.Name())
	}
	log.WithField("model", model.Name()).WithField("widget", wc.ID).Info("contact stored")
	wc.Response.SetRedirect(wc.NodeURL()+"?"+ParamSent+"=1", http.StatusSeeOther)
	return true, nil
}

func (w *ContactWidget) PropertiesPreview(wc *Context) string {
	props := w.contentProperties(wc)
	if props.ModelName == "" {
		return w.translate("label.widget.properties.unset", nil)
	}
	return "<strong>" + w.translate("label.model", nil) + "</strong>: " + props.ModelName
}
