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

	"github.com/asaskevich/govalidator"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/types"
)

// TextComponent edits the text of a text widget.
type TextComponent struct {
	store      *text.Store
	Translator cms.Translator
}

func NewTextComponent(store *text.Store) *TextComponent {
	return &TextComponent{store: store}
}

func (c *TextComponent) label(key string) string {
	if c.Translator == nil {
		return key
	}
	return c.Translator.Translate(key, nil)
}

func formatOptions() types.Options {
	options := types.Options{}
	options.Add(text.FormatHTML, "HTML")
	options.Add(text.FormatPlain, "Plain text")
	return options
}

// existing lists the other texts of locale.
func (c *TextComponent) existing(ctx context.Context, locale string, current int64) (types.Options, error) {
	stored, err := c.store.Options(ctx, locale)
	if err != nil {
		return nil, err
	}
	options := types.Options{}
	options.Add("", orm.EmptyOption)
	for _, option := range stored {
		if option.Value != strconv.FormatInt(current, 10) {
			options.Add(option.Value, option.Label)
		}
	}
	return options, nil
}

func (c *TextComponent) Rows(ctx context.Context, t *text.Text, locale string) ([]Row, error) {
	existing, err := c.existing(ctx, locale, t.ID)
	if err != nil {
		return nil, err
	}
	return []Row{
		{Name: "title", Type: TypeString, Label: c.label("label.title")},
		{Name: "body", Type: TypeText, Label: c.label("label.text")},
		{Name: "format", Type: TypeSelect, Label: c.label("label.format"), Options: formatOptions(), Validators: []string{"required"}},
		{Name: "image", Type: TypeString, Label: c.label("label.image")},
		{Name: "existing", Type: TypeSelect, Label: c.label("label.text.existing"), Description: c.label("label.text.existing.description"), Options: existing},
		{Name: "existing-new", Type: TypeBoolean, Label: c.label("label.text.new"), Description: c.label("label.text.new.description")},
		{Name: "version", Type: TypeHidden},
	}, nil
}

func (c *TextComponent) ParseSetData(t *text.Text) Data {
	format := t.Format
	if format == "" {
		format = text.FormatHTML
	}
	return Data{
		"title":   t.Title,
		"body":    t.Body,
		"format":  format,
		"image":   t.Image,
		"version": t.Version,
	}
}

// ParseGetData validates data into the text to save in locale and the
// submission for the text IO.
func (c *TextComponent) ParseGetData(ctx context.Context, data Data, locale string, current int64) (*text.Text, text.Submission, error) {
	errs := newValidationError()
	t := &text.Text{
		Locale: locale,
		Title:  data.String("title"),
		Body:   data.String("body"),
		Format: data.String("format"),
		Image:  data.String("image"),
	}
	sub := text.Submission{New: data.Bool("existing-new")}

	if t.Format == "" {
		t.Format = text.FormatHTML
	}
	validateOption(errs, "format", t.Format, formatOptions())

	if value := data.String("version"); value != "" {
		version, ok := data.Int("version")
		if !ok || version < 0 {
			errs.add("version", "not a version")
		}
		sub.Version = version
	}

	if value := data.String("existing"); value != "" {
		options, err := c.existing(ctx, locale, current)
		if err != nil {
			return nil, sub, err
		}
		validateOption(errs, "existing", value, options)
		sub.Existing, _ = strconv.ParseInt(value, 10, 64)
		if sub.New {
			errs.add("existing-new", "choose an existing text or a new one")
		}
	} else if govalidator.IsNull(t.Title) && govalidator.IsNull(t.Body) && govalidator.IsNull(t.Image) {
		errs.add("body", "required")
	}
	return t, sub, errs.orNil()
}
