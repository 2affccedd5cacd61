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

package cms

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Widget property keys of the ORM widgets.
const (
	PropertyModelName          = "model"
	PropertyModelFields        = "fields"
	PropertyEntry              = "entry"
	PropertyRecursiveDepth     = "depth"
	PropertyIncludeUnlocalized = "include.unlocalized"
	PropertyCondition          = "condition"
	PropertyOrder              = "order"
	PropertySearch             = "search"
	PropertyPaginationEnable   = "pagination.enable"
	PropertyPaginationRows     = "pagination.rows"
	PropertyPaginationOffset   = "pagination.offset"
	PropertyPaginationShow     = "pagination.show"
	PropertyPaginationAjax     = "pagination.ajax"
	PropertyMoreShow           = "more.show"
	PropertyMoreNode           = "more.node"
	PropertyMoreLabel          = "more.label"
	PropertyParameters         = "parameters"
	PropertyParametersNone     = "parameters.none"
	PropertyIDField            = "field.id"
	PropertyPrimary            = "primary"
	PropertyMapper             = "mapper"
	PropertyTemplate           = "template"
	PropertyViewProcessor      = "view.processor"
	PropertyFormatTitle        = "format.title"
	PropertyFormatTeaser       = "format.teaser"
	PropertyFormatImage        = "format.image"
	PropertyFormatDate         = "format.date"
	PropertyFormatTitleOg      = "format.title.og"
	PropertyFormatTeaserOg     = "format.teaser.og"
	PropertyFormatImageOg      = "format.image.og"
	PropertyTitle              = "title"
	PropertyMetaOg             = "meta.og"
	PropertyEmptyResultView    = "view.result.empty"
	PropertyEmptyResultMessage = "message.result.empty"
	PropertyBreadcrumb         = "breadcrumb"
	PropertyFilters            = "filters"

	separator = ","
)

// FilterDefinition configures an overview filter: the query parameter name,
// the filter type and the field it filters on.
type FilterDefinition struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Field string `json:"field"`
}

// Parameters are the arguments an overview accepts: either a number of
// positional arguments or a list of names passed as name/value pairs.
type Parameters struct {
	Count int
	Names []string
}

// ParseParameters reads "3" or "category,year".
func ParseParameters(s string) Parameters {
	s = strings.TrimSpace(s)
	if s == "" {
		return Parameters{}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Parameters{Count: n}
	}
	var names []string
	for _, name := range strings.Split(s, separator) {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return Parameters{Names: names}
}

func (p Parameters) IsSet() bool {
	return p.Count > 0 || len(p.Names) > 0
}

// IsNamed reports whether the parameters are named pairs.
func (p Parameters) IsNamed() bool {
	return len(p.Names) > 0
}

// Expected returns the number of arguments the parameters take.
func (p Parameters) Expected() int {
	if p.IsNamed() {
		return 2 * len(p.Names)
	}
	return p.Count
}

func (p Parameters) String() string {
	if p.IsNamed() {
		return strings.Join(p.Names, separator)
	}
	if p.Count > 0 {
		return strconv.Itoa(p.Count)
	}
	return ""
}

// ContentProperties are the typed settings of the ORM widgets.
type ContentProperties struct {
	ModelName          string
	ModelFields        []string
	EntryID            string
	RecursiveDepth     int
	IncludeUnlocalized bool
	Condition          string
	HasSearch          bool
	Filters            []FilterDefinition
	Order              string

	PaginationEnabled    bool
	PaginationRows       int
	PaginationOffset     int
	ShowPagination       bool
	UseAjaxForPagination bool
	ShowMore             bool
	MoreNode             string
	MoreLabel            string

	Parameters         Parameters
	NoParametersAction NoParametersAction

	IDField       string
	PrimaryMapper bool
	ContentMapper string
	Template      string
	ViewProcessor string

	TitleFormat  string
	TeaserFormat string
	ImageFormat  string
	DateFormat   string

	Title              string
	EmptyResultView    bool
	EmptyResultMessage string

	MetaOg         bool
	OgTitleFormat  string
	OgTeaserFormat string
	OgImageFormat  string

	Breadcrumb bool
}

// NewContentProperties returns the defaults of a new widget.
func NewContentProperties() *ContentProperties {
	return &ContentProperties{NoParametersAction: NoParameters404}
}

// Filter returns a filter definition by name.
func (c *ContentProperties) Filter(name string) (FilterDefinition, bool) {
	for _, f := range c.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return FilterDefinition{}, false
}

// IDFieldOrDefault returns the field used to look entries up in URLs.
func (c *ContentProperties) IDFieldOrDefault() string {
	if c.IDField == "" {
		return "id"
	}
	return c.IDField
}

// ParseFilters reads "name:type:field,...".
func ParseFilters(s string) ([]FilterDefinition, error) {
	var filters []FilterDefinition
	for _, token := range strings.Split(s, separator) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		parts := strings.Split(token, ":")
		if len(parts) != 3 {
			return nil, errors.Errorf("invalid filter %q, expected name:type:field", token)
		}
		filters = append(filters, FilterDefinition{Name: parts[0], Type: parts[1], Field: parts[2]})
	}
	return filters, nil
}

// FormatFilters writes filters as "name:type:field,...".
func FormatFilters(filters []FilterDefinition) string {
	values := make([]string, len(filters))
	for i, f := range filters {
		values[i] = f.Name + ":" + f.Type + ":" + f.Field
	}
	return strings.Join(values, separator)
}

// FromWidgetProperties reads the settings for locale. Malformed filters are
// skipped.
func FromWidgetProperties(p *WidgetProperties, locale string) *ContentProperties {
	c := &ContentProperties{
		ModelName:          p.Get(PropertyModelName),
		EntryID:            p.Get(PropertyEntry),
		RecursiveDepth:     p.GetInt(PropertyRecursiveDepth, 0),
		IncludeUnlocalized: p.GetBool(PropertyIncludeUnlocalized),
		Condition:          p.GetLocalized(locale, PropertyCondition),
		HasSearch:          p.GetBool(PropertySearch),
		Order:              p.Get(PropertyOrder),

		PaginationEnabled:    p.GetBool(PropertyPaginationEnable),
		PaginationRows:       p.GetInt(PropertyPaginationRows, 0),
		PaginationOffset:     p.GetInt(PropertyPaginationOffset, 0),
		ShowPagination:       p.GetBool(PropertyPaginationShow),
		UseAjaxForPagination: p.GetBool(PropertyPaginationAjax),
		ShowMore:             parseBool(p.GetLocalized(locale, PropertyMoreShow)),
		MoreNode:             p.GetLocalized(locale, PropertyMoreNode),
		MoreLabel:            p.GetLocalized(locale, PropertyMoreLabel),

		Parameters:         ParseParameters(p.Get(PropertyParameters)),
		NoParametersAction: ParseNoParametersAction(p.Get(PropertyParametersNone)),

		IDField:       p.Get(PropertyIDField),
		PrimaryMapper: p.GetBool(PropertyPrimary),
		ContentMapper: p.Get(PropertyMapper),
		Template:      p.Get(PropertyTemplate),
		ViewProcessor: p.Get(PropertyViewProcessor),

		TitleFormat:  p.GetLocalized(locale, PropertyFormatTitle),
		TeaserFormat: p.GetLocalized(locale, PropertyFormatTeaser),
		ImageFormat:  p.GetLocalized(locale, PropertyFormatImage),
		DateFormat:   p.GetLocalized(locale, PropertyFormatDate),

		Title:              p.GetLocalized(locale, PropertyTitle),
		EmptyResultView:    p.GetBool(PropertyEmptyResultView),
		EmptyResultMessage: p.GetLocalized(locale, PropertyEmptyResultMessage),

		MetaOg:         p.GetBool(PropertyMetaOg),
		OgTitleFormat:  p.GetLocalized(locale, PropertyFormatTitleOg),
		OgTeaserFormat: p.GetLocalized(locale, PropertyFormatTeaserOg),
		OgImageFormat:  p.GetLocalized(locale, PropertyFormatImageOg),

		Breadcrumb: p.GetBool(PropertyBreadcrumb),
	}

	if filters, err := ParseFilters(p.Get(PropertyFilters)); err == nil {
		c.Filters = filters
	}
	if fields := p.Get(PropertyModelFields); fields != "" {
		for _, field := range strings.Split(fields, separator) {
			if field = strings.TrimSpace(field); field != "" {
				c.ModelFields = append(c.ModelFields, field)
			}
		}
	}
	return c
}

// ToWidgetProperties writes the settings for locale. Pagination settings are
// removed when pagination is disabled, the more link settings when it is not
// shown.
func (c *ContentProperties) ToWidgetProperties(p *WidgetProperties, locale string) {
	p.Set(PropertyModelName, c.ModelName)
	p.Set(PropertyEntry, c.EntryID)
	p.Set(PropertyModelFields, strings.Join(c.ModelFields, separator))
	if c.RecursiveDepth > 0 {
		p.SetInt(PropertyRecursiveDepth, c.RecursiveDepth)
	} else {
		p.Set(PropertyRecursiveDepth, "")
	}
	p.SetBool(PropertyIncludeUnlocalized, c.IncludeUnlocalized)
	p.SetBool(PropertySearch, c.HasSearch)
	p.SetLocalized(locale, PropertyCondition, c.Condition)
	p.Set(PropertyOrder, c.Order)

	p.SetBool(PropertyPaginationEnable, c.PaginationEnabled)
	if c.PaginationEnabled {
		p.SetInt(PropertyPaginationRows, c.PaginationRows)
		p.SetInt(PropertyPaginationOffset, c.PaginationOffset)
		p.SetBool(PropertyPaginationShow, c.ShowPagination)
		p.SetBool(PropertyPaginationAjax, c.UseAjaxForPagination)
	} else {
		for _, key := range []string{PropertyPaginationRows, PropertyPaginationOffset, PropertyPaginationShow, PropertyPaginationAjax} {
			p.Set(key, "")
		}
	}
	if c.PaginationEnabled && c.ShowMore {
		p.SetLocalized(locale, PropertyMoreShow, "1")
		p.SetLocalized(locale, PropertyMoreLabel, c.MoreLabel)
		p.SetLocalized(locale, PropertyMoreNode, c.MoreNode)
	} else {
		for _, key := range []string{PropertyMoreShow, PropertyMoreLabel, PropertyMoreNode} {
			p.SetLocalized(locale, key, "")
		}
	}

	p.Set(PropertyIDField, c.IDField)
	p.SetBool(PropertyPrimary, c.PrimaryMapper)
	p.Set(PropertyMapper, c.ContentMapper)
	p.Set(PropertyTemplate, c.Template)
	p.Set(PropertyViewProcessor, c.ViewProcessor)
	p.SetLocalized(locale, PropertyFormatTitle, c.TitleFormat)
	p.SetLocalized(locale, PropertyFormatTeaser, c.TeaserFormat)
	p.SetLocalized(locale, PropertyFormatImage, c.ImageFormat)
	p.SetLocalized(locale, PropertyFormatDate, c.DateFormat)
	p.SetLocalized(locale, PropertyTitle, c.Title)
	p.SetBool(PropertyEmptyResultView, c.EmptyResultView)
	p.SetLocalized(locale, PropertyEmptyResultMessage, c.EmptyResultMessage)
	p.SetBool(PropertyMetaOg, c.MetaOg)
	p.SetLocalized(locale, PropertyFormatTitleOg, c.OgTitleFormat)
	p.SetLocalized(locale, PropertyFormatTeaserOg, c.OgTeaserFormat)
	p.SetLocalized(locale, PropertyFormatImageOg, c.OgImageFormat)
	p.SetBool(PropertyBreadcrumb, c.Breadcrumb)

	p.Set(PropertyParameters, c.Parameters.String())
	if c.NoParametersAction == NoParameters404 {
		p.Set(PropertyParametersNone, "")
	} else {
		p.Set(PropertyParametersNone, c.NoParametersAction.Name())
	}
	p.Set(PropertyFilters, FormatFilters(c.Filters))
}
