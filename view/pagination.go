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

package view

import (
	"strconv"
	"strings"
)

// PagePlaceholder is replaced by the page number in pagination hrefs.
const PagePlaceholder = "%page%"

// Pagination describes the pages of an overview.
type Pagination struct {
	Pages int
	Page  int
	Href  string
	// Window is the number of pages shown around the current page; 0 shows
	// every page.
	Window int
}

// NewPagination clamps page to [1, pages]. Callers clamp the page before
// querying so the entries match the page shown.
func NewPagination(pages, page int) *Pagination {
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	} else if page > pages {
		page = pages
	}
	return &Pagination{Pages: pages, Page: page, Window: 3}
}

// URL returns the href for page.
func (p *Pagination) URL(page int) string {
	return strings.ReplaceAll(p.Href, PagePlaceholder, strconv.Itoa(page))
}

func (p *Pagination) HasPrevious() bool { return p.Page > 1 }

func (p *Pagination) HasNext() bool { return p.Page < p.Pages }

func (p *Pagination) PreviousURL() string {
	if !p.HasPrevious() {
		return ""
	}
	return p.URL(p.Page - 1)
}

func (p *Pagination) NextURL() string {
	if !p.HasNext() {
		return ""
	}
	return p.URL(p.Page + 1)
}

// PageList returns the pages to link to: the first, the last and the pages
// within Window of the current page. A 0 marks a gap.
func (p *Pagination) PageList() []int {
	var pages []int
	for i := 1; i <= p.Pages; i++ {
		inWindow := p.Window <= 0 || i == 1 || i == p.Pages || (i >= p.Page-p.Window && i <= p.Page+p.Window)
		if inWindow {
			pages = append(pages, i)
		} else if len(pages) > 0 && pages[len(pages)-1] != 0 {
			pages = append(pages, 0)
		}
	}
	return pages
}
