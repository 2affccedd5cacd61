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

package types

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes a page window: page number, rows per page and an
// optional number of leading rows to skip before the first page.
type PageRequest struct {
	page     int
	pageSize int
	skip     int
	filter   *QueryFilter
	orders   []string // "id ASC", "name DESC"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = 10
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

// GetSkip returns the rows skipped before the first page.
func (p *PageRequest) GetSkip() int {
	if p.skip < 0 {
		p.skip = 0
	}
	return p.skip
}

// GetOffset returns (page-1)*pageSize plus the skipped rows.
func (p *PageRequest) GetOffset() int {
	return (p.GetPage()-1)*p.GetPageSize() + p.GetSkip()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// WithSkip returns the request with leading rows to skip.
func (p *PageRequest) WithSkip(skip int) *PageRequest {
	p.skip = skip
	return p
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page: page, pageSize: pageSize, filter: filter, orders: orders}
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Skip     int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{Page: page, PageSize: pageSize, Items: make([]*T, 0)}
}

// Pages returns the number of pages for the total minus the skipped rows.
func (p *Pagination[T]) Pages() int {
	return PageCount(p.Total, p.PageSize, p.Skip)
}

// PageCount computes ceil(max(0, total-skip) / pageSize). A page size below
// one yields a single page.
func PageCount(total, pageSize, skip int) int {
	rows := total - skip
	if rows < 0 {
		rows = 0
	}
	if pageSize < 1 {
		return 1
	}
	return (rows + pageSize - 1) / pageSize
}
