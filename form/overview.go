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
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

// Parameter types of the overview form.
const (
	ParametersNone    = "none"
	ParametersNumeric = "numeric"
	ParametersNamed   = "named"
)

// FilterComponent edits one exposed filter of an overview.
type FilterComponent struct {
	// Types and Fields are the selectable filter types and model fields.
	Types  types.Options
	Fields types.Options
}

func (c *FilterComponent) Rows() []Row {
	return []Row{
		{Name: "name", Type: TypeString, Label: "label.name", Validators: []string{"required"}},
		{Name: "type", Type: TypeSelect, Label: "label.type", Options: c.Types, Validators: []string{"required"}},
		{Name: "field", Type: TypeSelect, Label: "label.field", Options: c.Fields, Validators: []string{"required"}},
	}
}

func (c *FilterComponent) ParseSetData(f cms.FilterDefinition) Data {
	return Data{"name": f.Name, "type": f.Type, "field": f.Field}
}

// ParseGetData validates a filter. Errors are keyed by prefix and row.
func (c *FilterComponent) ParseGetData(errs *ValidationError, prefix string, data Data) cms.FilterDefinition {
	f := cms.FilterDefinition{Name: data.String("name"), Type: data.String("type"), Field: data.String("field")}
	if !parameterName.MatchString(f.Name) {
		errs.add(prefix+"name", "invalid name")
	}
	if govalidator.IsNull(f.Type) {
		errs.add(prefix+"type", "required")
	}
	validateOption(errs, prefix+"type", f.Type, c.Types)
	if govalidator.IsNull(f.Field) {
		errs.add(prefix+"field", "required")
	}
	validateOption(errs, prefix+"field", f.Field, c.Fields)
	return f
}

// OverviewComponent edits orm.overview widgets.
type OverviewComponent struct {
	base

	Content *content.Service
	// NodeOptions are the nodes a more link can point to.
	NodeOptions types.Options
	FilterTypes types.Options
}

func NewOverviewComponent(fields *orm.FieldService, contentService *content.Service, advanced bool) *OverviewComponent {
	return &OverviewComponent{base: newBase(fields, advanced), Content: contentService}
}

func (c *OverviewComponent) filterComponent(model string) (*FilterComponent, error) {
	fields, err := c.fields.GetFields(model, true, true, 2)
	if err != nil {
		return nil, err
	}
	return &FilterComponent{Types: c.FilterTypes, Fields: fields}, nil
}

func (c *OverviewComponent) Rows(ctx context.Context, props *cms.ContentProperties, locale string) ([]Row, error) {
	rows, err := c.rows(props, true)
	if err != nil {
		return nil, err
	}
	model := c.modelName(props)

	orderFields, err := c.fields.GetFields(model, true, false, 1)
	if err != nil {
		return nil, err
	}
	filters, err := c.filterComponent(model)
	if err != nil {
		return nil, err
	}
	mappers := types.Options{}
	mappers.Add("", orm.EmptyOption)
	if c.Content != nil && model != "" {
		options, err := c.Content.MappersForModel(ctx, model, locale)
		if err != nil {
			return nil, err
		}
		for _, option := range options {
			mappers.Add(option.Value, option.Label)
		}
	}

	directions := types.Options{}
	directions.Add("ASC", c.label("label.order.direction.asc"))
	directions.Add("DESC", c.label("label.order.direction.desc"))
	parameterTypes := types.Options{}
	parameterTypes.Add(ParametersNone, c.label("label.parameters.none"))
	parameterTypes.Add(ParametersNumeric, c.label("label.parameters.numeric"))
	parameterTypes.Add(ParametersNamed, c.label("label.parameters.type.named"))

	return append(rows,
		Row{Name: "condition", Type: TypeText, Label: c.label("label.condition")},
		Row{Name: "order-field", Type: TypeSelect, Label: c.label("label.order.field"), Options: orderFields},
		Row{Name: "order-direction", Type: TypeSelect, Label: c.label("label.order.direction"), Options: directions},
		Row{Name: "order", Type: TypeString, Label: c.label("label.order")},
		Row{Name: "pagination-enable", Type: TypeOption, Label: c.label("label.pagination.enabled")},
		Row{Name: "pagination-rows", Type: TypeSelect, Label: c.label("label.pagination.rows"), Options: NumericOptions(1, 50)},
		Row{Name: "pagination-offset", Type: TypeSelect, Label: c.label("label.pagination.offset"), Options: NumericOptions(0, 50)},
		Row{Name: "pagination-show", Type: TypeOption, Label: c.label("label.pagination.show")},
		Row{Name: "pagination-ajax", Type: TypeOption, Label: c.label("label.pagination.ajax")},
		Row{Name: "parameters-type", Type: TypeOption, Label: c.label("label.parameters.type"), Options: parameterTypes},
		Row{Name: "parameters-number", Type: TypeSelect, Label: c.label("label.parameters.number"), Options: NumericOptions(1, 5)},
		Row{Name: "parameters-name", Type: TypeCollection, Label: c.label("label.parameter")},
		Row{Name: "content-mapper", Type: TypeSelect, Label: c.label("label.content.mapper.select"), Options: mappers},
		Row{Name: "title", Type: TypeString, Label: c.label("label.title")},
		Row{Name: "filters", Type: TypeCollection, Label: c.label("label.filters"), Rows: filters.Rows()},
		Row{Name: "empty-result-view", Type: TypeBoolean, Label: c.label("label.result.empty")},
		Row{Name: "empty-result-message", Type: TypeText, Label: c.label("label.message")},
		Row{Name: "more-show", Type: TypeOption, Label: c.label("label.more.show")},
		Row{Name: "more-node", Type: TypeSelect, Label: c.label("label.more.node"), Options: c.NodeOptions},
		Row{Name: "more-label", Type: TypeString, Label: c.label("label.more.label")},
	), nil
}

func (c *OverviewComponent) ParseSetData(props *cms.ContentProperties) Data {
	data := c.parseSetData(props)
	data["condition"] = props.Condition
	data["order"] = props.Order
	data["pagination-enable"] = props.PaginationEnabled
	data["pagination-rows"] = props.PaginationRows
	data["pagination-offset"] = props.PaginationOffset
	data["pagination-show"] = props.ShowPagination
	data["pagination-ajax"] = props.UseAjaxForPagination
	data["content-mapper"] = props.ContentMapper
	data["title"] = props.Title
	data["empty-result-view"] = props.EmptyResultView
	data["empty-result-message"] = props.EmptyResultMessage
	data["more-show"] = props.ShowMore
	data["more-label"] = props.MoreLabel
	data["more-node"] = props.MoreNode

	filters := make([]Data, len(props.Filters))
	component := &FilterComponent{}
	for i, f := range props.Filters {
		filters[i] = component.ParseSetData(f)
	}
	data["filters"] = filters

	switch {
	case props.Parameters.IsNamed():
		data["parameters-type"] = ParametersNamed
		data["parameters-name"] = props.Parameters.Names
	case props.Parameters.IsSet():
		data["parameters-type"] = ParametersNumeric
		data["parameters-number"] = props.Parameters.Count
	default:
		data["parameters-type"] = ParametersNone
	}
	return data
}

func (c *OverviewComponent) ParseGetData(data Data) (*cms.ContentProperties, error) {
	errs := newValidationError()
	props := c.parseGetData(errs, data, true)

	props.Condition = data.String("condition")
	c.checkPaths(errs, "condition", props, props.Condition)
	props.Order = data.String("order")
	if props.Order == "" && data.String("order-field") != "" {
		field := data.String("order-field")
		c.checkPaths(errs, "order-field", props, "{"+field+"}")
		props.Order = "{" + field + "}"
		if direction := data.String("order-direction"); direction != "" {
			validateOption(errs, "order-direction", direction, types.Options{{Value: "ASC"}, {Value: "DESC"}})
			props.Order += " " + direction
		}
	} else {
		c.checkPaths(errs, "order", props, props.Order)
	}

	props.PaginationEnabled = data.Bool("pagination-enable")
	if props.PaginationEnabled {
		props.PaginationRows = validateRange(errs, data, "pagination-rows", 1, 50)
		if data.String("pagination-rows") == "" {
			errs.add("pagination-rows", "required")
		}
		props.PaginationOffset = validateRange(errs, data, "pagination-offset", 0, 50)
		props.ShowPagination = data.Bool("pagination-show")
		props.UseAjaxForPagination = data.Bool("pagination-ajax")
	} else {
		props.PaginationRows, props.PaginationOffset = 0, 0
		props.ShowPagination, props.UseAjaxForPagination = false, false
	}

	props.ContentMapper = data.String("content-mapper")
	props.Title = data.String("title")
	props.EmptyResultView = data.Bool("empty-result-view")
	props.EmptyResultMessage = data.String("empty-result-message")

	props.ShowMore = data.Bool("more-show")
	props.MoreLabel = data.String("more-label")
	props.MoreNode = data.String("more-node")
	if props.ShowMore {
		if govalidator.IsNull(props.MoreNode) {
			errs.add("more-node", "required")
		}
		validateOption(errs, "more-node", props.MoreNode, c.NodeOptions)
	}

	props.Parameters = cms.Parameters{}
	switch kind := data.String("parameters-type"); kind {
	case ParametersNamed:
		names := data.Strings("parameters-name")
		if len(names) == 0 {
			errs.add("parameters-name", "required")
		}
		for _, name := range names {
			if !parameterName.MatchString(name) {
				errs.add("parameters-name", "invalid name "+strconv.Quote(name))
			}
		}
		props.Parameters.Names = names
	case ParametersNumeric:
		props.Parameters.Count = validateRange(errs, data, "parameters-number", 1, 5)
		if props.Parameters.Count == 0 {
			errs.add("parameters-number", "must be between 1 and 5")
		}
	case "", ParametersNone:
	default:
		errs.add("parameters-type", "unknown value "+strconv.Quote(kind))
	}

	props.Filters = nil
	if collection := data.Collection("filters"); len(collection) > 0 {
		component := &FilterComponent{Types: c.FilterTypes}
		if props.ModelName != "" && errs.Errors["model"] == "" {
			fc, err := c.filterComponent(props.ModelName)
			if err != nil {
				return nil, err
			}
			component = fc
		}
		for i, item := range collection {
			props.Filters = append(props.Filters, component.ParseGetData(errs, "filters."+strconv.Itoa(i)+".", item))
		}
	}
	return props, errs.orNil()
}
