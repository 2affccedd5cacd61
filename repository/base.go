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
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type tableRepository[T any] struct {
	db    bun.IDB
	table *schema.Table
}

// NewRepository returns the repository of T's table. Lookups by id use the
// first primary key column.
func NewRepository[T any](db bun.IDB) Repository[T] {
	return &tableRepository[T]{
		db:    db,
		table: db.Dialect().Tables().Get(reflect.TypeOf((*T)(nil)).Elem()),
	}
}

func (r *tableRepository[T]) WithTx(tx bun.IDB) Repository[T] {
	return &tableRepository[T]{db: tx, table: r.table}
}

func (r *tableRepository[T]) Table() *schema.Table { return r.table }

func (r *tableRepository[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *tableRepository[T]) pk() bun.Ident {
	if len(r.table.PKs) == 0 {
		return bun.Ident("id")
	}
	return bun.Ident(r.table.PKs[0].Name)
}

func (r *tableRepository[T]) Get(ctx context.Context, id any) (*T, error) {
	entity := new(T)
	err := r.db.NewSelect().Model(entity).Where("? = ?", r.pk(), id).Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %v", r.table.Name, id)
	}
	return entity, nil
}

func (r *tableRepository[T]) FindOne(ctx context.Context, query string, args ...interface{}) (*T, error) {
	entity := new(T)
	err := r.db.NewSelect().Model(entity).Where(query, args...).Limit(1).Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", r.table.Name)
	}
	return entity, nil
}

func (r *tableRepository[T]) Exists(ctx context.Context, id any) (bool, error) {
	exists, err := r.db.NewSelect().Model((*T)(nil)).Where("? = ?", r.pk(), id).Exists(ctx)
	return exists, errors.Wrapf(err, "check %s %v", r.table.Name, id)
}

func (r *tableRepository[T]) filtered(query *bun.SelectQuery, filter *types.QueryFilter) *bun.SelectQuery {
	if filter != nil && filter.Schema != "" {
		query = query.Where(filter.Schema, filter.Args...)
	}
	return query
}

func (r *tableRepository[T]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	return r.filtered(r.db.NewSelect().Model((*T)(nil)), filter).Count(ctx)
}

func (r *tableRepository[T]) List(ctx context.Context, filter *types.QueryFilter, orders ...string) ([]*T, error) {
	var entities []*T
	query := r.filtered(r.db.NewSelect().Model(&entities), filter)
	if len(orders) == 0 {
		query = query.OrderExpr("? ASC", r.pk())
	} else {
		query = query.Order(orders...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, errors.Wrapf(err, "list %s", r.table.Name)
	}
	return entities, nil
}

func (r *tableRepository[T]) Page(ctx context.Context, request *types.PageRequest) (*types.Pagination[T], error) {
	var entities []*T
	query := r.filtered(r.db.NewSelect().Model(&entities), request.GetFilter())
	pagination := types.NewDefaultPagination[T](request.GetPage(), request.GetPageSize())
	pagination.Skip = request.GetSkip()
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	err = query.
		Offset(request.GetOffset()).
		Limit(request.GetPageSize()).
		Order(request.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "page %s", r.table.Name)
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *tableRepository[T]) Create(ctx context.Context, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().Model(&entity).Exec(ctx)
	return errors.Wrapf(err, "create %s", r.table.Name)
}

func (r *tableRepository[T]) Update(ctx context.Context, entity *T, columns ...string) error {
	_, err := r.db.NewUpdate().Model(entity).Column(columns...).WherePK().Exec(ctx)
	return errors.Wrapf(err, "update %s", r.table.Name)
}

func (r *tableRepository[T]) Delete(ctx context.Context, id any) error {
	_, err := r.db.NewDelete().Model((*T)(nil)).Where("? = ?", r.pk(), id).Exec(ctx)
	return errors.Wrapf(err, "delete %s %v", r.table.Name, id)
}

func (r *tableRepository[T]) DeleteWhere(ctx context.Context, filter *types.QueryFilter) (int64, error) {
	if filter == nil || filter.Schema == "" {
		return 0, errors.Errorf("delete %s without condition", r.table.Name)
	}
	result, err := r.db.NewDelete().Model((*T)(nil)).Where(filter.Schema, filter.Args...).Exec(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s", r.table.Name)
	}
	return result.RowsAffected()
}

// Save upserts with ON CONFLICT or ON DUPLICATE KEY when the dialect has
// them, and with a lookup followed by update or insert otherwise.
func (r *tableRepository[T]) Save(ctx context.Context, entity *T, columns ...string) error {
	if len(columns) == 0 {
		for _, field := range r.table.DataFields {
			columns = append(columns, field.Name)
		}
	}
	if len(columns) == 0 || len(r.table.PKs) == 0 {
		return r.saveByLookup(ctx, entity, columns)
	}

	features := r.db.Dialect().Features()
	query := r.db.NewInsert().Model(entity)
	switch {
	case features.Has(feature.InsertOnConflict):
		keys := make([]string, len(r.table.PKs))
		for i, field := range r.table.PKs {
			keys[i] = string(field.SQLName)
		}
		query = query.On("CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE")
		for _, column := range columns {
			query = query.Set("? = EXCLUDED.?", bun.Ident(column), bun.Ident(column))
		}
	case features.Has(feature.InsertOnDuplicateKey):
		set := make([]string, len(columns))
		args := make([]interface{}, 0, 2*len(columns))
		for i, column := range columns {
			set[i] = "? = VALUES(?)"
			args = append(args, bun.Ident(column), bun.Ident(column))
		}
		query = query.On("DUPLICATE KEY UPDATE "+strings.Join(set, ", "), args...)
	default:
		return r.saveByLookup(ctx, entity, columns)
	}
	_, err := query.Exec(ctx)
	return errors.Wrapf(err, "save %s", r.table.Name)
}

func (r *tableRepository[T]) saveByLookup(ctx context.Context, entity *T, columns []string) error {
	exists, err := r.db.NewSelect().Model(entity).WherePK().Exists(ctx)
	if err != nil {
		return errors.Wrapf(err, "save %s", r.table.Name)
	}
	if exists {
		return r.Update(ctx, entity, columns...)
	}
	return r.Create(ctx, entity)
}
