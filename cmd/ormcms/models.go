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

package main

import (
	"time"

	"github.com/tomoncle/ormcms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/uptrace/bun"
)

// Category groups articles.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:category"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name"`
	Slug   string `bun:"slug,unique"`
	Locale string `bun:"locale"`
}

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:tag"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name"`
	Slug   string `bun:"slug,unique"`
	Locale string `bun:"locale"`
}

// ArticleTag links articles and tags.
type ArticleTag struct {
	bun.BaseModel `bun:"table:article_tags,alias:article_tag"`

	ArticleID int64    `bun:"article_id,pk"`
	Article   *Article `bun:"rel:belongs-to,join:article_id=id"`
	TagID     int64    `bun:"tag_id,pk"`
	Tag       *Tag     `bun:"rel:belongs-to,join:tag_id=id"`
}

// Article is published between the optional publication dates.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:article"`

	ID                int64      `bun:"id,pk,autoincrement"`
	Title             string     `bun:"title"`
	Slug              string     `bun:"slug,unique"`
	Teaser            string     `bun:"teaser"`
	Body              string     `bun:"body"`
	Image             string     `bun:"image"`
	Locale            string     `bun:"locale"`
	IsPublished       bool       `bun:"is_published"`
	DatePublishedFrom *time.Time `bun:"date_published_from,nullzero"`
	DatePublishedTill *time.Time `bun:"date_published_till,nullzero"`
	CategoryID        int64      `bun:"category_id,nullzero"`
	Category          *Category  `bun:"rel:belongs-to,join:category_id=id"`
	Tags              []*Tag     `bun:"m2m:article_tags,join:Article=Tag"`
}

func contentModels() []ormcms.Option {
	return []ormcms.Option{
		ormcms.WithModel(orm.ModelDefinition{
			Name:     "Category",
			Instance: (*Category)(nil),
			Formats:  map[string]string{orm.FormatTitle: "{name}"},
		}, 0),
		ormcms.WithModel(orm.ModelDefinition{
			Name:     "Tag",
			Instance: (*Tag)(nil),
			Formats:  map[string]string{orm.FormatTitle: "{name}"},
		}, 0),
		ormcms.WithModel(orm.ModelDefinition{
			Name:     "Article",
			Instance: (*Article)(nil),
			Links:    []interface{}{(*ArticleTag)(nil)},
			Formats: map[string]string{
				orm.FormatTitle:  "{title}",
				orm.FormatTeaser: "{teaser}",
				orm.FormatImage:  "{image}",
				orm.FormatDate:   "{datePublishedFrom}",
			},
			Options: map[string]string{"behaviour.publish": "true"},
		}, 10),
	}
}
