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

package form

import (
	"context"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

// Component is the property form of a widget.
type Component interface {
	// Rows returns the form rows for the properties being edited.
	Rows(ctx context.Context, props *cms.ContentProperties, locale string) ([]Row, error)
	ParseSetData(props *cms.ContentProperties) Data
	// ParseGetData validates data and applies it to the properties passed to
	// ParseSetData, or to new properties.
	ParseGetData(data Data) (*cms.ContentProperties, error)
}

// base holds the rows shared by the ORM widget forms. Most of them are only
// editable by advanced users.
type base struct {
	fields   *orm.FieldService
	advanced bool
	data     *cms.ContentProperties

	// Templates and ViewProcessors are the selectable values, nil allows
	// any value.
	Templates      types.Options
	ViewProcessors types.Options
	Translator     cms.Translator
}

func newBase(fields *orm.FieldService, advanced bool) base {
	return base{fields: fields, advanced: advanced}
}

func (b *base) label(key string) string {
	if b.Translator == nil {
		return key
	}
	return b.Translator.Translate(key, nil)
}

func (b *base) modelOptions() types.Options {
	options := types.Options{}
	for _, name := range b.fields.Manager().ModelNames() {
		options.Add(name, name)
	}
	return options
}

// modelName returns the edited model, or the first model when none is set.
func (b *base) modelName(props *cms.ContentProperties) string {
	if props != nil && props.ModelName != "" {
		return props.ModelName
	}
	if names := b.fields.Manager().ModelNames(); len(names) > 0 {
		return names[0]
	}
	return ""
}

func (b *base) noParametersOptions(render bool) types.Options {
	options := types.Options{}
	options.Add(cms.NoParameters404.Name(), b.label("label.parameters.none.404"))
	options.Add(cms.NoParametersIgnore.Name(), b.label("label.parameters.none.ignore"))
	if render {
		options.Add(cms.NoParametersRender.Name(), b.label("label.parameters.none.render"))
	}
	return options
}

func (b *base) rows(props *cms.ContentProperties, render bool) ([]Row, error) {
	if !b.advanced {
		return nil, nil
	}
	fields, err := b.fields.GetFields(b.modelName(props), false, false, 0)
	if err != nil {
		return nil, err
	}
	return []Row{
		{Name: "model", Type: TypeSelect, Label: b.label("label.model"), Options: b.modelOptions(), Validators: []string{"required"}},
		{Name: "fields", Type: TypeCollection, Label: b.label("label.fields"), Options: fields},
		{Name: "recursive-depth", Type: TypeSelect, Label: b.label("label.depth.recursive"), Options: NumericOptions(0, 5)},
		{Name: "include-unlocalized", Type: TypeBoolean, Label: b.label("label.unlocalized")},
		{Name: "template", Type: TypeSelect, Label: b.label("label.template"), Options: b.Templates},
		{Name: "view-processor", Type: TypeSelect, Label: b.label("label.processor.view"), Options: b.ViewProcessors},
		{Name: "format-title", Type: TypeString, Label: b.label("label.format.title")},
		{Name: "format-teaser", Type: TypeString, Label: b.label("label.format.teaser")},
		{Name: "format-image", Type: TypeString, Label: b.label("label.format.image")},
		{Name: "format-date", Type: TypeString, Label: b.label("label.format.date")},
		{Name: "parameters-none", Type: TypeSelect, Label: b.label("label.parameters.none"), Options: b.noParametersOptions(render)},
	}, nil
}

func (b *base) parseSetData(props *cms.ContentProperties) Data {
	b.data = props
	return Data{
		"model":               props.ModelName,
		"fields":              props.ModelFields,
		"recursive-depth":     props.RecursiveDepth,
		"include-unlocalized": props.IncludeUnlocalized,
		"parameters-none":     props.NoParametersAction.Name(),
		"template":            props.Template,
		"view-processor":      props.ViewProcessor,
		"format-title":        props.TitleFormat,
		"format-teaser":       props.TeaserFormat,
		"format-image":        props.ImageFormat,
		"format-date":         props.DateFormat,
	}
}

// parseGetData applies the shared rows. Without advanced rights the stored
// values are kept.
func (b *base) parseGetData(errs *ValidationError, data Data, render bool) *cms.ContentProperties {
	props := b.data
	if props == nil {
		props = cms.NewContentProperties()
	}
	if !b.advanced {
		return props
	}

	props.ModelName = data.String("model")
	if govalidator.IsNull(props.ModelName) {
		errs.add("model", "required")
	} else if !b.fields.Manager().HasModel(props.ModelName) {
		errs.add("model", "unknown model "+strconv.Quote(props.ModelName))
	}
	props.ModelFields = data.Strings("fields")
	for _, field := range props.ModelFields {
		b.checkPaths(errs, "fields", props, "{"+strings.Trim(field, "{} ")+"}")
	}
	props.RecursiveDepth = validateRange(errs, data, "recursive-depth", 0, 5)
	props.IncludeUnlocalized = data.Bool("include-unlocalized")

	props.Template = data.String("template")
	validateOption(errs, "template", props.Template, b.Templates)
	props.ViewProcessor = data.String("view-processor")
	validateOption(errs, "view-processor", props.ViewProcessor, b.ViewProcessors)

	props.TitleFormat = data.String("format-title")
	props.TeaserFormat = data.String("format-teaser")
	props.ImageFormat = data.String("format-image")
	props.DateFormat = data.String("format-date")

	action := data.String("parameters-none")
	validateOption(errs, "parameters-none", action, b.noParametersOptions(render))
	props.NoParametersAction = cms.ParseNoParametersAction(action)
	return props
}

// checkPaths adds an error for key when a field of exprs is unknown to the
// model of props.
func (b *base) checkPaths(errs *ValidationError, key string, props *cms.ContentProperties, exprs ...string) {
	if props.ModelName == "" || errs.Errors["model"] != "" || errs.Errors[key] != "" {
		return
	}
	model, err := b.fields.Manager().Model(props.ModelName)
	if err != nil {
		return
	}
	for _, expr := range exprs {
		if err := model.CheckPaths(expr); err != nil {
			errs.add(key, err.Error())
			return
		}
	}
}

// DetailComponent edits orm.detail widgets.
type DetailComponent struct {
	base
}

func NewDetailComponent(fields *orm.FieldService, advanced bool) *DetailComponent {
	return &DetailComponent{base: newBase(fields, advanced)}
}

func (c *DetailComponent) Rows(ctx context.Context, props *cms.ContentProperties, locale string) ([]Row, error) {
	rows, err := c.rows(props, false)
	if err != nil {
		return nil, err
	}
	unique, err := c.fields.GetUniqueFields(c.modelName(props))
	if err != nil {
		return nil, err
	}
	return append(rows,
		Row{Name: "field-id", Type: TypeSelect, Label: c.label("label.field.id"), Options: unique},
		Row{Name: "primary", Type: TypeBoolean, Label: c.label("label.content.mapper.primary")},
		Row{Name: "title", Type: TypeBoolean, Label: c.label("label.title")},
		Row{Name: "meta-og", Type: TypeBoolean, Label: c.label("label.meta.og")},
	), nil
}

func (c *DetailComponent) ParseSetData(props *cms.ContentProperties) Data {
	data := c.parseSetData(props)
	data["field-id"] = props.IDField
	data["primary"] = props.PrimaryMapper
	data["title"] = props.Title != ""
	data["meta-og"] = props.MetaOg
	return data
}

func (c *DetailComponent) ParseGetData(data Data) (*cms.ContentProperties, error) {
	errs := newValidationError()
	props := c.parseGetData(errs, data, false)

	props.IDField = data.String("field-id")
	if props.IDField != "" && props.ModelName != "" && errs.Errors["model"] == "" {
		unique, err := c.fields.GetUniqueFields(props.ModelName)
		if err != nil {
			return nil, err
		}
		validateOption(errs, "field-id", props.IDField, unique)
	}
	props.PrimaryMapper = data.Bool("primary")
	props.Title = flag(data.Bool("title"))
	props.MetaOg = data.Bool("meta-og")
	return props, errs.orNil()
}

// flag stores a boolean in a text property.
func flag(v bool) string {
	if v {
		return "1"
	}
	return ""
}

// EntryComponent edits orm.entry widgets.
type EntryComponent struct {
	base
}

func NewEntryComponent(fields *orm.FieldService, advanced bool) *EntryComponent {
	return &EntryComponent{base: newBase(fields, advanced)}
}

// Rows lists the entries of the model in locale as entry options.
func (c *EntryComponent) Rows(ctx context.Context, props *cms.ContentProperties, locale string) ([]Row, error) {
	rows, err := c.rows(props, false)
	if err != nil {
		return nil, err
	}

	entries := types.Options{}
	entries.Add("", orm.EmptyOption)
	if name := c.modelName(props); name != "" {
		model, err := c.fields.Manager().Model(name)
		if err != nil {
			return nil, err
		}
		found, err := model.CreateQuery(locale).Find(ctx)
		if err != nil {
			return nil, err
		}
		for _, option := range model.EntryOptions(found) {
			entries.Add(option.Value, option.Label)
		}
	}
	return append(rows,
		Row{Name: "entry", Type: TypeSelect, Label: c.label("label.entry"), Options: entries, Validators: []string{"required"}},
		Row{Name: "breadcrumb", Type: TypeBoolean, Label: c.label("label.breadcrumb.add")},
		Row{Name: "title", Type: TypeBoolean, Label: c.label("label.title")},
	), nil
}

func (c *EntryComponent) ParseSetData(props *cms.ContentProperties) Data {
	data := c.parseSetData(props)
	data["entry"] = props.EntryID
	data["title"] = props.Title != ""
	data["breadcrumb"] = props.Breadcrumb
	return data
}

func (c *EntryComponent) ParseGetData(data Data) (*cms.ContentProperties, error) {
	errs := newValidationError()
	props := c.parseGetData(errs, data, false)
	props.EntryID = data.String("entry")
	if govalidator.IsNull(props.EntryID) {
		errs.add("entry", "required")
	}
	props.Title = flag(data.Bool("title"))
	props.Breadcrumb = data.Bool("breadcrumb")
	return props, errs.orNil()
}
