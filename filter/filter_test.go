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

package filter

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/orm"
	"github.com/uptrace/bun"
)

type category struct {
	bun.BaseModel `bun:"table:categories,alias:category"`

	ID       int64     `bun:"id,pk,autoincrement"`
	Name     string    `bun:"name"`
	ParentID int64     `bun:"parent_id,nullzero"`
	Parent   *category `bun:"rel:belongs-to,join:parent_id=id"`
}

type tag struct {
	bun.BaseModel `bun:"table:tags,alias:tag"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name"`
}

type eventTag struct {
	bun.BaseModel `bun:"table:event_tags,alias:event_tag"`

	EventID int64  `bun:"event_id,pk"`
	Event   *event `bun:"rel:belongs-to,join:event_id=id"`
	TagID   int64  `bun:"tag_id,pk"`
	Tag     *tag   `bun:"rel:belongs-to,join:tag_id=id"`
}

type event struct {
	bun.BaseModel `bun:"table:events,alias:event"`

	ID         int64      `bun:"id,pk,autoincrement"`
	Title      string     `bun:"title"`
	CategoryID int64      `bun:"category_id"`
	Category   *category  `bun:"rel:belongs-to,join:category_id=id"`
	Tags       []*tag     `bun:"m2m:event_tags,join:Event=Tag"`
	Featured   bool       `bun:"featured"`
	DateStart  time.Time  `bun:"date_start"`
	DateStop   *time.Time `bun:"date_stop,nullzero"`
}

func newEvents(t *testing.T) *orm.Model {
	t.Helper()
	ctx := context.Background()

	registry := database.NewModelRegistry()
	registry.Register(database.NewModelAdapter((*eventTag)(nil), -10))
	registry.Register(database.NewModelAdapter((*category)(nil), 0))
	registry.Register(database.NewModelAdapter((*tag)(nil), 0))
	registry.Register(database.NewModelAdapter((*event)(nil), 10))
	factory, err := database.OpenMemory(ctx, registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	db := factory.GetDB()

	manager := orm.NewManager(db)
	_, err = manager.Register(orm.ModelDefinition{Name: "Category", Instance: (*category)(nil), Formats: map[string]string{orm.FormatTitle: "{name}"}})
	require.NoError(t, err)
	_, err = manager.Register(orm.ModelDefinition{Name: "Tag", Instance: (*tag)(nil), Formats: map[string]string{orm.FormatTitle: "{name}"}})
	require.NoError(t, err)
	model, err := manager.Register(orm.ModelDefinition{Name: "Event", Instance: (*event)(nil), Links: []interface{}{(*eventTag)(nil)}})
	require.NoError(t, err)

	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
	stop2, stop3 := day(2025, time.March, 15), day(2025, time.January, 5)
	insert := func(v interface{}) {
		_, err := db.NewInsert().Model(v).Exec(ctx)
		require.NoError(t, err)
	}
	insert(&[]*category{{Name: "News"}, {Name: "Sports", ParentID: 1}})
	insert(&[]*tag{{Name: "go"}, {Name: "sql"}})
	insert(&[]*event{
		{Title: "Launch", CategoryID: 2, Featured: true, DateStart: day(2025, time.January, 10)},
		{Title: "Expo", CategoryID: 1, DateStart: day(2025, time.February, 1), DateStop: &stop2},
		{Title: "Party", CategoryID: 2, DateStart: day(2024, time.December, 20), DateStop: &stop3},
	})
	insert(&[]*eventTag{{EventID: 1, TagID: 1}, {EventID: 1, TagID: 2}, {EventID: 2, TagID: 1}, {EventID: 3, TagID: 2}})
	return model
}

func count(t *testing.T, model *orm.Model, filterType, field string, value ...string) int {
	t.Helper()
	filter, err := NewRegistry().Get(filterType)
	require.NoError(t, err)
	query := model.CreateQuery("")
	applied, err := filter.ApplyQuery(model, query, field, value)
	require.NoError(t, err)
	require.True(t, applied)
	n, err := query.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestRelationFilters(t *testing.T) {
	model := newEvents(t)

	assert.Equal(t, 1, count(t, model, TypeSingle, "category", "1"))
	assert.Equal(t, 3, count(t, model, TypeSingleTaxonomy, "category", "1"))
	assert.Equal(t, 2, count(t, model, TypeSingleTaxonomy, "category", "2"))
	assert.Equal(t, 3, count(t, model, TypeMultiOr, "tags", "1", "2"))
	assert.Equal(t, 1, count(t, model, TypeMultiAnd, "tags", "1", "2"))
	assert.Equal(t, 2, count(t, model, TypeMultiAnd, "tags", "2"))
}

func TestDateFilters(t *testing.T) {
	model := newEvents(t)

	assert.Equal(t, 1, count(t, model, TypeDate, "dateStart", "2025-01"))
	assert.Equal(t, 2, count(t, model, TypeDate, "dateStart", "2024-12", "2025-01"))
	assert.Equal(t, 1, count(t, model, TypeDate, "dateStart", "2025-01-10"))
	assert.Equal(t, 3, count(t, model, TypeDate, "dateStart", "2024", "2025"))

	assert.Equal(t, 2, count(t, model, TypeCalendar, "", "2025-01"))
	assert.Equal(t, 1, count(t, model, TypeCalendar, "", "2025-03"))
	assert.Equal(t, 1, count(t, model, TypeBoolean, "featured", "1"))

	applied, err := NewBooleanFilter().ApplyQuery(model, model.CreateQuery(""), "featured", []string{"0"})
	require.NoError(t, err)
	assert.False(t, applied)

	query := model.CreateQuery("")
	applied, err = NewDateFilter().ApplyQuery(model, query, "dateStart", []string{"soon"})
	require.NoError(t, err)
	assert.False(t, applied)
	n, err := query.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	applied, err = NewCalendarFilter().ApplyQuery(model, model.CreateQuery(""), "", []string{"2025-13-x"})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestParsePeriod(t *testing.T) {
	from, until, err := ParsePeriod([]string{"2024-02"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), until)

	// the end of a range is the end of its second value
	_, until, err = ParsePeriod([]string{"2024-01", "2024-03-02"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC), until)
}

func TestStatesAndURLs(t *testing.T) {
	query, err := url.ParseQuery("category=2&tags[]=1&page=3")
	require.NoError(t, err)
	states := NewStates([]cms.FilterDefinition{
		{Name: "category", Type: TypeSingle, Field: "category"},
		{Name: "tags", Type: TypeMultiOr, Field: "tags"},
		{Name: "year", Type: TypeDate, Field: "dateStart"},
	}, query)

	require.Len(t, states, 3)
	assert.Equal(t, []string{"2"}, states.Get("category").Value)
	assert.True(t, states.Get("tags").List)
	assert.False(t, states.Get("year").HasValue())

	assert.Equal(t, "/events?tags[]=1", states.URL("/events", "category", []string{"2"}, false))
	assert.Equal(t, "/events?category=1&tags[]=1", states.URL("/events", "category", []string{"1"}, false))
	assert.Equal(t, "/events?category=2&tags[]=1&year=2025", states.URL("/events", "year", []string{"2025"}, false))
	assert.Equal(t, "/events?category=2", states.URL("/events", "tags", nil, true))
}

func TestSetVariables(t *testing.T) {
	model := newEvents(t)
	ctx := context.Background()
	query, err := url.ParseQuery("tags[]=1")
	require.NoError(t, err)
	states := NewStates([]cms.FilterDefinition{
		{Name: "category", Type: TypeSingle, Field: "category"},
		{Name: "tags", Type: TypeMultiAnd, Field: "tags"},
		{Name: "month", Type: TypeCalendar, Field: "dateStart"},
		{Name: "featured", Type: TypeBoolean, Field: "featured"},
	}, query)

	require.NoError(t, NewRegistry().SetVariables(ctx, model, states, "en", "/events"))

	category := states.Get("category")
	assert.Equal(t, []string{"1", "2"}, category.Options.Values())
	assert.Equal(t, "/events?category=1&tags[]=1", category.URLs["News"])
	assert.Equal(t, "/events?tags[]=1", category.Empty)

	tags := states.Get("tags")
	assert.Equal(t, "/events", tags.URLs["go"])
	assert.Equal(t, "/events?tags[]=1&tags[]=2", tags.URLs["sql"])
	assert.Equal(t, "2", tags.Values["sql"])
	assert.Len(t, tags.Entries, 2)

	assert.Equal(t, []string{"2025-02", "2025-01", "2024-12"}, states.Get("month").Options.Values())
	assert.Equal(t, "/events?tags[]=1&featured=1", states.Get("featured").URLs["featured"])
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"boolean", "calendar", "date", "multi-and", "multi-or", "single", "single-taxonomy"}, r.Names())
	_, err := r.Get("bogus")
	assert.ErrorIs(t, err, ErrUnknownFilter)
	assert.Equal(t, "AND", NewMultiFilter(OperatorAnd).Operator().Name())
}
