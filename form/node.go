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
	"strings"

	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

const (
	// OptionEntryNode marks the models whose entries can get their own node.
	OptionEntryNode = "cms.node"
	// OptionScaffoldTitle is the display name of a model.
	OptionScaffoldTitle = "scaffold.title"
)

// EntryNodeComponent edits the nodes showing a single entry.
type EntryNodeComponent struct {
	manager *orm.Manager

	// Layouts and Themes are the selectable values. Locales are the locales
	// a node can be limited to.
	Layouts    types.Options
	Themes     types.Options
	Locales    types.Options
	Translator cms.Translator
}

func NewEntryNodeComponent(manager *orm.Manager) *EntryNodeComponent {
	return &EntryNodeComponent{manager: manager}
}

func (c *EntryNodeComponent) label(key string) string {
	if c.Translator == nil {
		return key
	}
	return c.Translator.Translate(key, nil)
}

// models lists the models flagged with OptionEntryNode.
func (c *EntryNodeComponent) models() types.Options {
	options := types.Options{}
	for _, model := range c.manager.Models() {
		switch strings.ToLower(model.Option(OptionEntryNode)) {
		case "1", "true", "yes", "on":
		default:
			continue
		}
		title := model.Option(OptionScaffoldTitle)
		if title == "" {
			title = model.Name()
		}
		options.Add(model.Name(), title)
	}
	return options
}

// entries lists the entries of model in locale.
func (c *EntryNodeComponent) entries(ctx context.Context, name, locale string) (types.Options, error) {
	options := types.Options{}
	options.Add("", orm.EmptyOption)
	if name == "" {
		return options, nil
	}
	model, err := c.manager.Model(name)
	if err != nil {
		return nil, err
	}
	found, err := model.CreateQuery(locale).Find(ctx)
	if err != nil {
		return nil, err
	}
	for _, option := range model.EntryOptions(found) {
		options.Add(option.Value, option.Label)
	}
	return options, nil
}

// Rows lists the entries of the model of node, or of the first entry node
// model.
func (c *EntryNodeComponent) Rows(ctx context.Context, node *cms.Node, locale string) ([]Row, error) {
	models := c.models()
	name := node.EntryModel
	if name == "" && len(models) > 0 {
		name = models[0].Value
	}
	entries, err := c.entries(ctx, name, locale)
	if err != nil {
		return nil, err
	}
	rows := []Row{
		{Name: "model", Type: TypeSelect, Label: c.label("label.model"), Options: models, Validators: []string{"required"}},
		{Name: "entry", Type: TypeSelect, Label: c.label("label.entry"), Options: entries, Validators: []string{"required"}},
		{Name: "name", Type: TypeString, Label: c.label("label.name"), Description: c.label("label.name.entry.description")},
		{Name: "route", Type: TypeString, Label: c.label("label.route")},
		{Name: "layout", Type: TypeSelect, Label: c.label("label.layout"), Options: c.Layouts, Validators: []string{"required"}},
	}
	if len(c.Themes) > 0 {
		rows = append(rows, Row{Name: "theme", Type: TypeSelect, Label: c.label("label.theme"), Options: c.Themes})
	}
	if len(c.Locales) > 1 {
		rows = append(rows, Row{Name: "locales", Type: TypeOption, Label: c.label("label.locales.available"), Options: c.Locales})
	}
	return rows, nil
}

func (c *EntryNodeComponent) ParseSetData(node *cms.Node, locale string) Data {
	return Data{
		"model":   node.EntryModel,
		"entry":   node.EntryID,
		"name":    node.Name(locale),
		"route":   node.Routes[locale],
		"layout":  node.Layout,
		"theme":   node.Theme,
		"locales": node.AvailableLocales(),
	}
}

// ParseGetData validates data and applies it to node for locale. An empty
// name takes the title of the entry.
func (c *EntryNodeComponent) ParseGetData(ctx context.Context, data Data, node *cms.Node, locale string) error {
	errs := newValidationError()

	model := data.String("model")
	if model == "" {
		errs.add("model", "required")
	}
	validateOption(errs, "model", model, c.models())

	entry := data.String("entry")
	var entries types.Options
	if entry == "" {
		errs.add("entry", "required")
	} else if _, failed := errs.Errors["model"]; !failed {
		var err error
		if entries, err = c.entries(ctx, model, locale); err != nil {
			return err
		}
		validateOption(errs, "entry", entry, entries)
	}

	route := data.String("route")
	if route != "" && !strings.HasPrefix(route, "/") {
		errs.add("route", "must start with /")
	}

	layout := data.String("layout")
	if layout == "" {
		errs.add("layout", "required")
	}
	validateOption(errs, "layout", layout, c.Layouts)
	theme := data.String("theme")
	validateOption(errs, "theme", theme, c.Themes)
	locales := data.Strings("locales")
	for _, l := range locales {
		validateOption(errs, "locales", l, c.Locales)
	}
	if err := errs.orNil(); err != nil {
		return err
	}

	name := data.String("name")
	if name == "" {
		for _, option := range entries {
			if option.Value == entry {
				name = option.Label
			}
		}
	}
	node.Type = cms.NodeTypeEntry
	node.EntryModel = model
	node.EntryID = entry
	node.SetName(locale, name)
	node.SetRoute(locale, route)
	node.Layout = layout
	node.Theme = theme
	node.Locales = strings.Join(locales, ",")
	return nil
}
