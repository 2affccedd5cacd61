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

	"github.com/tomoncle/ormcms/types"
)

// Content is the generic representation of an entry.
type Content struct {
	Type   string      `json:"type"`
	Title  string      `json:"title"`
	URL    string      `json:"url,omitempty"`
	Teaser string      `json:"teaser,omitempty"`
	Image  string      `json:"image,omitempty"`
	Date   string      `json:"date,omitempty"`
	Data   interface{} `json:"-"`
}

// Formats are the entry formats used to build Content. Empty formats fall
// back to the formats of the model.
type Formats struct {
	Title  string
	Teaser string
	Image  string
	Date   string
}

// Or returns f with its empty formats taken from fallback.
func (f Formats) Or(fallback Formats) Formats {
	if f.Title == "" {
		f.Title = fallback.Title
	}
	if f.Teaser == "" {
		f.Teaser = fallback.Teaser
	}
	if f.Image == "" {
		f.Image = fallback.Image
	}
	if f.Date == "" {
		f.Date = fallback.Date
	}
	return f
}

// Mapper maps data of one type to Content. The data is an entry or the id
// of an entry.
type Mapper interface {
	// GetContent returns nil content when the entry does not exist.
	GetContent(ctx context.Context, site, locale string, data interface{}) (*Content, error)
	GetURL(ctx context.Context, site, locale string, data interface{}) (string, error)
}

// SearchableMapper is a Mapper with full text search.
type SearchableMapper interface {
	Mapper
	SearchContent(ctx context.Context, site, locale, query string, page, pageItems int) (*types.Pagination[Content], error)
}

// SearchableModel searches the entries of a model itself, for example over a
// full text index. The tokens are the words of query.
type SearchableModel interface {
	SearchContent(ctx context.Context, site, locale, query string, tokens []string, page, pageItems int) (*types.Pagination[Content], error)
}
