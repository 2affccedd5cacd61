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

package orm

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	f := newFixture(t)
	table := f.article.Table()

	cases := []struct {
		path   string
		alias  string
		column string
		joins  int
		toMany bool
	}{
		{"title", "article", "title", 0, false},
		{"Title", "article", "title", 0, false},
		{"category", "article", "category_id", 0, false},
		{"category.name", "article__category", "name", 1, false},
		{"category.parent.name", "article__category__parent", "name", 2, false},
		{"comments", "article__comments", "id", 1, true},
		{"comments.body", "article__comments", "body", 1, true},
		{"tags", "article__tags_link", "tag_id", 1, true},
		{"tags.name", "article__tags", "name", 2, true},
	}
	for _, c := range cases {
		resolved, err := ResolvePath(table, "article", c.path, "")
		require.NoError(t, err, c.path)
		assert.Equal(t, c.alias, resolved.Alias, c.path)
		assert.Equal(t, c.column, resolved.Column, c.path)
		assert.Len(t, resolved.Joins, c.joins, c.path)
		assert.Equal(t, c.toMany, resolved.ToMany, c.path)
	}

	scoped, err := ResolvePath(table, "article", "tags", "s1")
	require.NoError(t, err)
	assert.Equal(t, "article__tags_s1_link", scoped.Alias)

	_, err = ResolvePath(table, "article", "title.length", "")
	assert.True(t, errors.Is(err, ErrInvalidPath))
	_, err = ResolvePath(table, "article", "unknown", "")
	assert.True(t, errors.Is(err, ErrFieldNotFound))
	_, err = ResolvePath(table, "article", "", "")
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestModelCheckPaths(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.article.CheckPaths("{category.parent.name} = %1% AND {tags.name} IN %context.tags%"))
	assert.NoError(t, f.article.CheckPaths(""))

	err := f.article.CheckPaths("{title} ASC, {category.missing} DESC")
	assert.True(t, errors.Is(err, ErrFieldNotFound))
	err = f.article.CheckPaths("{slug.length} > 1")
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestQueryLocaleAndConditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.article.CreateQuery("en").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.article.CreateQuery("en").SetFetchUnlocalized(true).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := f.article.CreateQuery("en").
		AddCondition("{category.name} = %1%", "Sports").
		Find(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello", entries[0].(*article).Title)

	entries, err = f.article.CreateQuery("en").
		AddCondition("{title} LIKE '%orl%'").
		Find(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "World", entries[0].(*article).Title)
}

func TestQueryToManyIsDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := f.article.CreateQuery("en").
		AddConditionWithVariables("{tags.name} IN %names%", map[string]interface{}{"names": []string{"go", "sql"}}).
		AddOrderBy("{title} DESC")
	assert.True(t, q.IsDistinct())

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := FindAs[article](ctx, q)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "World", items[0].Title)
	assert.Equal(t, "Hello", items[1].Title)
}

func TestQueryScopedConditionsRequireEveryValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q := f.article.CreateQuery("en").
		AddScopedCondition("{tags.name} = %1%", "go").
		AddScopedCondition("{tags.name} = %1%", "sql")
	assert.Len(t, q.Joins(), 4)

	items, err := FindAs[article](ctx, q)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hello", items[0].Title)
}

func TestQueryRecursiveDepthAndLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.article.FindByID(ctx, 1, "en", 1, "")
	require.NoError(t, err)
	a := entry.(*article)
	require.NotNil(t, a.Category)
	assert.Equal(t, "Sports", a.Category.Name)
	assert.Len(t, a.Comments, 2)
	assert.Len(t, a.Tags, 2)

	_, err = f.article.FindByID(ctx, "missing", "en", 0, "slug")
	assert.True(t, IsNotFound(err))

	items, err := FindAs[article](ctx, f.article.CreateQuery("").AddFields("{title}").AddOrderBy("{id} ASC").SetLimit(2, 1))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, "World", items[0].Title)
	assert.Empty(t, items[0].Slug)
}

func TestQueryCollectsErrors(t *testing.T) {
	f := newFixture(t)
	q := f.article.CreateQuery("en").AddCondition("{nope} = %1%", 1)
	require.Error(t, q.Err())
	_, err := q.Find(context.Background())
	assert.True(t, errors.Is(err, ErrFieldNotFound))

	_, err = f.article.CreateQuery("en").AddFields("{category.name}").Find(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestQueryString(t *testing.T) {
	f := newFixture(t)
	sql := f.article.CreateQuery("en").AddCondition("{category.parent.name} = %1%", "News").String()
	assert.Contains(t, sql, `LEFT JOIN "categories" AS "article__category__parent"`)
	assert.Contains(t, sql, `"article"."locale" = 'en'`)
	assert.True(t, strings.Contains(sql, `"article__category__parent"."name" = 'News'`))
}
