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

package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

// OrmMapper maps entries of a model without a detail page: the content has
// no URL.
type OrmMapper struct {
	model      *orm.Model
	formatter  *orm.EntryFormatter
	reflection *orm.ReflectionHelper

	RecursiveDepth   int
	FetchUnlocalized bool
}

func NewOrmMapper(model *orm.Model) *OrmMapper {
	return &OrmMapper{
		model:            model,
		formatter:        model.Manager().Formatter(),
		reflection:       orm.NewReflectionHelper(),
		RecursiveDepth:   1,
		FetchUnlocalized: true,
	}
}

func (m *OrmMapper) Model() *orm.Model {
	return m.model
}

func (m *OrmMapper) GetContent(ctx context.Context, site, locale string, data interface{}) (*Content, error) {
	if data == nil {
		return nil, ErrNoData
	}
	entry, err := m.entry(ctx, locale, data, m.RecursiveDepth, m.FetchUnlocalized, "")
	if err != nil || entry == nil {
		return nil, err
	}
	return m.contentFromEntry(entry, "", Formats{}), nil
}

func (m *OrmMapper) GetURL(ctx context.Context, site, locale string, data interface{}) (string, error) {
	return "", nil
}

// ModelFormats returns the data formats of the model.
func (m *OrmMapper) ModelFormats() Formats {
	return Formats{
		Title:  m.model.DataFormat(orm.FormatTitle),
		Teaser: m.model.DataFormat(orm.FormatTeaser),
		Image:  m.model.DataFormat(orm.FormatImage),
		Date:   m.model.DataFormat(orm.FormatDate),
	}
}

// entry returns data itself when it is an entry in locale; otherwise the
// entry is fetched by its id. A nil entry means it does not exist.
func (m *OrmMapper) entry(ctx context.Context, locale string, data interface{}, depth int, fetchUnlocalized bool, idField string) (interface{}, error) {
	var id interface{}
	if m.model.IsEntry(data) {
		if m.inLocale(data, locale) {
			return data, nil
		}
		pk, ok := m.model.ID(data)
		if !ok {
			return nil, ErrNoData
		}
		id, idField = pk, ""
	} else {
		id = data
	}

	query := m.model.CreateQuery(locale).
		SetRecursiveDepth(depth).
		SetFetchUnlocalized(fetchUnlocalized)
	if idField == "" {
		idField = m.model.PrimaryKey()
	}
	query.AddCondition("{"+idField+"} = %1%", id)

	entry, err := query.First(ctx)
	if orm.IsNotFound(err) {
		return nil, nil
	}
	return entry, errors.Wrapf(err, "fetch %s entry %v", m.model.Name(), id)
}

func (m *OrmMapper) inLocale(entry interface{}, locale string) bool {
	if !m.model.IsLocalized() {
		return true
	}
	value, ok := m.reflection.GetProperty(entry, orm.LocaleField)
	return ok && fmt.Sprint(value) == locale
}

// contentFromEntry formats entry. Empty formats fall back to the model.
func (m *OrmMapper) contentFromEntry(entry interface{}, url string, formats Formats) *Content {
	formats = formats.Or(m.ModelFormats())
	return &Content{
		Type:   m.model.Name(),
		Title:  m.formatter.Format(entry, formats.Title),
		URL:    url,
		Teaser: m.formatter.Format(entry, formats.Teaser),
		Image:  m.formatter.Format(entry, formats.Image),
		Date:   m.formatter.Format(entry, formats.Date),
		Data:   entry,
	}
}

type mapperArguments struct {
	depth              int
	includeUnlocalized bool
	idField            string
	formats            Formats
	url                string
}

// GenericOrmMapper maps entries of a model to the detail page of an
// orm.detail widget: the URL is the route of the node followed by the id
// field of the entry.
type GenericOrmMapper struct {
	*OrmMapper

	node       *cms.Node
	widget     *cms.Widget
	properties *cms.WidgetProperties
	baseURL    string

	// Searcher takes over SearchContent when set.
	Searcher SearchableModel

	mu        sync.Mutex
	arguments map[string]*mapperArguments
}

var _ SearchableMapper = (*GenericOrmMapper)(nil)

func NewGenericOrmMapper(model *orm.Model, node *cms.Node, widget *cms.Widget, baseURL string) *GenericOrmMapper {
	return &GenericOrmMapper{
		OrmMapper:  NewOrmMapper(model),
		node:       node,
		widget:     widget,
		properties: widget.WidgetProperties(),
		baseURL:    baseURL,
		arguments:  make(map[string]*mapperArguments),
	}
}

func (m *GenericOrmMapper) Node() *cms.Node {
	return m.node
}

func (m *GenericOrmMapper) Widget() *cms.Widget {
	return m.widget
}

// IsPrimary reports whether the widget is the primary detail page of its
// model.
func (m *GenericOrmMapper) IsPrimary() bool {
	return m.properties.GetBool(cms.PropertyPrimary)
}

// args parses the widget properties once per site and locale.
func (m *GenericOrmMapper) args(site, locale string) *mapperArguments {
	index := site + "-" + locale

	m.mu.Lock()
	defer m.mu.Unlock()
	if args, ok := m.arguments[index]; ok {
		return args
	}

	properties := cms.FromWidgetProperties(m.properties, locale)
	idField := properties.IDField
	if idField == "" {
		idField = m.model.PrimaryKey()
	}
	args := &mapperArguments{
		depth:              properties.RecursiveDepth,
		includeUnlocalized: properties.IncludeUnlocalized,
		idField:            idField,
		formats: Formats{
			Title:  properties.TitleFormat,
			Teaser: properties.TeaserFormat,
			Image:  properties.ImageFormat,
			Date:   properties.DateFormat,
		},
		url: strings.TrimRight(m.baseURL+m.node.Route(locale), "/") + "/",
	}
	m.arguments[index] = args
	return args
}

func (m *GenericOrmMapper) GetContent(ctx context.Context, site, locale string, data interface{}) (*Content, error) {
	if data == nil {
		return nil, ErrNoData
	}
	args := m.args(site, locale)
	idField := ""
	if !m.model.IsEntry(data) {
		idField = args.idField
	}
	entry, err := m.entry(ctx, locale, data, args.depth, args.includeUnlocalized, idField)
	if err != nil || entry == nil {
		return nil, err
	}
	return m.contentFromEntry(entry, m.url(args, entry), args.formats), nil
}

// GetURL returns the detail URL of an entry, or of an id field value.
func (m *GenericOrmMapper) GetURL(ctx context.Context, site, locale string, data interface{}) (string, error) {
	if data == nil {
		return "", ErrNoData
	}
	args := m.args(site, locale)
	if m.model.IsEntry(data) {
		return m.url(args, data), nil
	}
	return args.url + fmt.Sprint(data), nil
}

func (m *GenericOrmMapper) url(args *mapperArguments, entry interface{}) string {
	id, ok := m.reflection.GetProperty(entry, args.idField)
	if !ok || id == nil {
		return ""
	}
	value := fmt.Sprint(id)
	if value == "" || value == "0" {
		return ""
	}
	return args.url + value
}

var formatColumn = regexp.MustCompile(`\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*(?:\|[^}]*)?\}`)

// SearchContent finds entries whose title columns contain every token of
// query.
func (m *GenericOrmMapper) SearchContent(ctx context.Context, site, locale, query string, page, pageItems int) (*types.Pagination[Content], error) {
	if m.Searcher != nil {
		return m.Searcher.SearchContent(ctx, site, locale, query, strings.Fields(query), page, pageItems)
	}
	args := m.args(site, locale)
	request := types.NewDefaultPageRequest(page, pageItems)
	result := types.NewDefaultPagination[Content](request.GetPage(), request.GetPageSize())

	q := m.model.CreateQuery(locale).
		SetRecursiveDepth(args.depth).
		SetFetchUnlocalized(args.includeUnlocalized)
	if err := addSearchConditions(q, args.formats.Or(m.ModelFormats()).Title, query); err != nil {
		return nil, err
	}

	total, err := q.Count(ctx)
	if err != nil || total == 0 {
		return result, errors.Wrapf(err, "search %s", m.model.Name())
	}
	q.AddOrderBy("{" + m.model.PrimaryKey() + "} ASC").SetLimit(request.GetPageSize(), request.GetOffset())
	entries, err := q.Find(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "search %s", m.model.Name())
	}

	result.Total = total
	for _, entry := range entries {
		result.Items = append(result.Items, m.contentFromEntry(entry, m.url(args, entry), args.formats))
	}
	return result, nil
}

// addSearchConditions adds a LIKE condition per token over the fields used in
// format.
func addSearchConditions(q *orm.Query, format, query string) error {
	var columns []string
	seen := make(map[string]bool)
	for _, match := range formatColumn.FindAllStringSubmatch(format, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			columns = append(columns, match[1])
		}
	}
	if len(columns) == 0 {
		return errors.Errorf("no searchable fields in format %q", format)
	}

	for _, token := range strings.Fields(query) {
		likes := make([]string, len(columns))
		for i, column := range columns {
			likes[i] = "{" + column + "} LIKE %1% ESCAPE '" + likeEscape + "'"
		}
		q.AddCondition(strings.Join(likes, " OR "), "%"+escapeLike(token)+"%")
	}
	return q.Err()
}

const likeEscape = "!"

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// escapeLike makes the wildcards of a search token match literally.
func escapeLike(token string) string {
	return likeReplacer.Replace(token)
}
