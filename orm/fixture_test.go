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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/ormcms/database"
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
	Name string `bun:"name,unique"`
}

type comment struct {
	bun.BaseModel `bun:"table:comments,alias:comment"`

	ID        int64  `bun:"id,pk,autoincrement"`
	ArticleID int64  `bun:"article_id"`
	Body      string `bun:"body"`
}

type articleTag struct {
	bun.BaseModel `bun:"table:article_tags,alias:article_tag"`

	ArticleID int64    `bun:"article_id,pk"`
	Article   *article `bun:"rel:belongs-to,join:article_id=id"`
	TagID     int64    `bun:"tag_id,pk"`
	Tag       *tag     `bun:"rel:belongs-to,join:tag_id=id"`
}

type article struct {
	bun.BaseModel `bun:"table:articles,alias:article"`

	ID         int64      `bun:"id,pk,autoincrement"`
	Title      string     `bun:"title"`
	Slug       string     `bun:"slug,unique"`
	Locale     string     `bun:"locale"`
	CategoryID int64      `bun:"category_id"`
	Category   *category  `bun:"rel:belongs-to,join:category_id=id"`
	Comments   []*comment `bun:"rel:has-many,join:id=article_id"`
	Tags       []*tag     `bun:"m2m:article_tags,join:Article=Tag"`
	DateAdded  time.Time  `bun:"date_added"`
}

type fixture struct {
	db      *bun.DB
	manager *Manager
	article *Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	registry := database.NewModelRegistry()
	registry.Register(database.NewModelAdapter((*articleTag)(nil), -10))
	registry.Register(database.NewModelAdapter((*category)(nil), 0))
	registry.Register(database.NewModelAdapter((*tag)(nil), 0))
	registry.Register(database.NewModelAdapter((*comment)(nil), 0))
	registry.Register(database.NewModelAdapter((*article)(nil), 10))
	registry.Register(EntryLogModel())

	factory, err := database.OpenMemory(ctx, registry, EntryLogMigration())
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	db := factory.GetDB()

	manager := NewManager(db)
	_, err = manager.Register(ModelDefinition{Name: "Category", Instance: (*category)(nil), Formats: map[string]string{FormatTitle: "{name}"}})
	require.NoError(t, err)
	_, err = manager.Register(ModelDefinition{Name: "Tag", Instance: (*tag)(nil)})
	require.NoError(t, err)
	articleModel, err := manager.Register(ModelDefinition{
		Name:     "Article",
		Instance: (*article)(nil),
		Links:    []interface{}{(*articleTag)(nil)},
		Formats:  map[string]string{FormatTitle: "{title}", FormatTeaser: "{title|truncate:3}"},
		Options:  map[string]string{"behaviour.publish": "true"},
	})
	require.NoError(t, err)

	day := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	insert := func(model interface{}) {
		_, err := db.NewInsert().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	insert(&[]*category{{Name: "News"}, {Name: "Sports", ParentID: 1}})
	insert(&[]*tag{{Name: "go"}, {Name: "sql"}})
	insert(&[]*article{
		{Title: "Hello", Slug: "hello", Locale: "en", CategoryID: 2, DateAdded: day},
		{Title: "World", Slug: "world", Locale: "en", CategoryID: 1, DateAdded: day.AddDate(0, 1, 0)},
		{Title: "Hallo", Slug: "hallo", Locale: "nl", CategoryID: 2, DateAdded: day},
	})
	insert(&[]*comment{{ArticleID: 1, Body: "first"}, {ArticleID: 1, Body: "second"}})
	insert(&[]*articleTag{{ArticleID: 1, TagID: 1}, {ArticleID: 1, TagID: 2}, {ArticleID: 2, TagID: 1}})

	return &fixture{db: db, manager: manager, article: articleModel}
}
