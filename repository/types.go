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
package repository

import (
	"context"

	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Reader looks up the rows of one table.
type Reader[T any] interface {
	// Get returns the row with primary key id. A missing row is reported
	// with an error wrapping sql.ErrNoRows.
	Get(ctx context.Context, id any) (*T, error)

	FindOne(ctx context.Context, query string, args ...interface{}) (*T, error)

	Exists(ctx context.Context, id any) (bool, error)

	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// List returns the rows matching filter, by default in primary key order.
	List(ctx context.Context, filter *types.QueryFilter, orders ...string) ([]*T, error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Writer changes the rows of one table.
type Writer[T any] interface {
	Create(ctx context.Context, entity ...*T) error

	// Update writes columns of entity, all columns when none are given.
	Update(ctx context.Context, entity *T, columns ...string) error

	// Save inserts entity or, when its primary key exists, overwrites
	// columns. Without columns every non key column is written.
	Save(ctx context.Context, entity *T, columns ...string) error

	Delete(ctx context.Context, id any) error

	DeleteWhere(ctx context.Context, filter *types.QueryFilter) (int64, error)
}

// Repository is the table gateway used by the node store, the entry
// services and the entry log.
type Repository[T any] interface {
	Reader[T]
	Writer[T]

	Table() *schema.Table
	NewSelect() *bun.SelectQuery

	// WithTx returns a repository running its statements on tx.
	WithTx(tx bun.IDB) Repository[T]
}
