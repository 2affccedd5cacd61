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
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// placeholder matches {field.path} and %variable% tokens.
var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}|%([A-Za-z0-9_.]+)%`)

type clause struct {
	expr string
	args []interface{}
}

// Query builds a select on a model from templated expressions. Field paths
// in braces resolve to joined columns, %name% variables become bound
// parameters. Errors are collected and returned by the executing methods.
type Query struct {
	model  *Model
	db     bun.IDB
	locale string
	alias  string

	fields     []string
	conditions []clause
	orders     []clause

	joins     []Join
	joinIndex map[string]struct{}

	distinct         bool
	limit            int
	offset           int
	depth            int
	fetchUnlocalized bool
	scopes           int

	err error
}

func newQuery(model *Model, locale string) *Query {
	return &Query{
		model:     model,
		db:        model.manager.db,
		locale:    locale,
		alias:     model.table.Alias,
		joinIndex: make(map[string]struct{}),
	}
}

func (q *Query) Model() *Model { return q.model }

func (q *Query) Locale() string { return q.locale }

// Alias returns the alias of the model table in the query.
func (q *Query) Alias() string { return q.alias }

// Err returns the first error collected while building the query.
func (q *Query) Err() error { return q.err }

// WithDB runs the query on db, such as a transaction.
func (q *Query) WithDB(db bun.IDB) *Query {
	q.db = db
	return q
}

// AddFields restricts the selected columns, e.g. AddFields("{id}", "{title}").
// The primary key is always selected.
func (q *Query) AddFields(fields ...string) *Query {
	for _, field := range fields {
		path := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(field), "{"), "}")
		if path != "" {
			q.fields = append(q.fields, path)
		}
	}
	return q
}

// AddCondition adds a condition with positional variables %1%..%n%.
func (q *Query) AddCondition(expr string, args ...interface{}) *Query {
	return q.AddConditionWithVariables(expr, positional(args))
}

// AddConditionWithVariables adds a condition with named %name% variables.
func (q *Query) AddConditionWithVariables(expr string, vars map[string]interface{}) *Query {
	return q.addCondition(expr, vars, "")
}

// AddScopedCondition adds a condition whose relation joins are not shared
// with other conditions. It is used to require several values of a to-many
// relation at once.
func (q *Query) AddScopedCondition(expr string, args ...interface{}) *Query {
	q.scopes++
	return q.addCondition(expr, positional(args), "s"+strconv.Itoa(q.scopes))
}

func (q *Query) addCondition(expr string, vars map[string]interface{}, scope string) *Query {
	if strings.TrimSpace(expr) == "" {
		return q
	}
	text, args, err := q.translate(expr, vars, scope)
	if err != nil {
		q.setErr(err)
		return q
	}
	q.conditions = append(q.conditions, clause{expr: "(" + text + ")", args: args})
	return q
}

// AddOrderBy adds an order expression such as "{title} ASC, {date} DESC".
func (q *Query) AddOrderBy(expr string) *Query {
	if strings.TrimSpace(expr) == "" {
		return q
	}
	text, args, err := q.translate(expr, nil, "")
	if err != nil {
		q.setErr(err)
		return q
	}
	q.orders = append(q.orders, clause{expr: text, args: args})
	return q
}

func (q *Query) SetLimit(limit, offset int) *Query {
	q.limit, q.offset = limit, offset
	return q
}

// SetRecursiveDepth preloads relations up to depth levels.
func (q *Query) SetRecursiveDepth(depth int) *Query {
	q.depth = depth
	return q
}

// SetFetchUnlocalized drops the locale condition of localized models.
func (q *Query) SetFetchUnlocalized(fetch bool) *Query {
	q.fetchUnlocalized = fetch
	return q
}

func (q *Query) SetDistinct(distinct bool) *Query {
	q.distinct = distinct
	return q
}

func (q *Query) setErr(err error) {
	if q.err == nil {
		q.err = err
	}
}

func positional(args []interface{}) map[string]interface{} {
	vars := make(map[string]interface{}, len(args))
	for i, arg := range args {
		vars[strconv.Itoa(i+1)] = arg
	}
	return vars
}

// translate replaces {path} by resolved identifiers and known %name%
// variables by placeholders. Unknown %...% tokens are kept literally.
func (q *Query) translate(expr string, vars map[string]interface{}, scope string) (string, []interface{}, error) {
	var (
		b    strings.Builder
		args []interface{}
		last int
	)
	for _, loc := range placeholder.FindAllStringSubmatchIndex(expr, -1) {
		b.WriteString(expr[last:loc[0]])
		last = loc[1]

		if loc[2] >= 0 {
			resolved, err := q.resolve(expr[loc[2]:loc[3]], scope)
			if err != nil {
				return "", nil, err
			}
			b.WriteString("?")
			args = append(args, resolved.Ident())
			continue
		}

		name := expr[loc[4]:loc[5]]
		value, ok := vars[name]
		if !ok {
			b.WriteString(expr[loc[0]:loc[1]])
			continue
		}
		if isList(value) {
			b.WriteString("(?)")
			args = append(args, bun.In(value))
		} else {
			b.WriteString("?")
			args = append(args, value)
		}
	}
	b.WriteString(expr[last:])
	return b.String(), args, nil
}

func isList(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func (q *Query) resolve(path, scope string) (*ResolvedPath, error) {
	resolved, err := ResolvePath(q.model.table, q.alias, path, scope)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", q.model.name)
	}
	for _, join := range resolved.Joins {
		if _, ok := q.joinIndex[join.Alias]; ok {
			continue
		}
		q.joinIndex[join.Alias] = struct{}{}
		q.joins = append(q.joins, join)
	}
	if resolved.ToMany {
		q.distinct = true
	}
	return resolved, nil
}

// Joins returns the relation joins collected so far.
func (q *Query) Joins() []Join {
	return q.joins
}

// IsDistinct reports whether rows are de-duplicated.
func (q *Query) IsDistinct() bool {
	return q.distinct
}

func (q *Query) base(dest interface{}) *bun.SelectQuery {
	sq := q.db.NewSelect().Model(dest)
	for _, join := range q.joins {
		sq = join.AppendTo(sq)
	}
	if q.model.IsLocalized() && q.locale != "" && !q.fetchUnlocalized {
		sq = sq.Where("? = ?", bun.Ident(q.alias+"."+LocaleField), q.locale)
	}
	for _, c := range q.conditions {
		sq = sq.Where(c.expr, c.args...)
	}
	return sq
}

func (q *Query) selectQuery(dest interface{}) (*bun.SelectQuery, error) {
	if q.err != nil {
		return nil, q.err
	}
	sq := q.base(dest)

	if len(q.fields) > 0 {
		columns, err := q.columns()
		if err != nil {
			return nil, err
		}
		for _, column := range columns {
			sq = sq.ColumnExpr("?", bun.Ident(q.alias+"."+column))
		}
	}
	for _, path := range relationPaths(q.model.table, q.depth) {
		sq = sq.Relation(path)
	}
	if q.distinct {
		sq = sq.Distinct()
	}
	for _, o := range q.orders {
		sq = sq.OrderExpr(o.expr, o.args...)
	}
	if q.limit > 0 {
		sq = sq.Limit(q.limit)
	}
	if q.offset > 0 {
		sq = sq.Offset(q.offset)
	}
	return sq, nil
}

// columns resolves the selected fields, which must be columns of the model
// itself, and adds the primary key.
func (q *Query) columns() ([]string, error) {
	seen := map[string]bool{}
	var columns []string
	for _, pk := range q.model.table.PKs {
		seen[pk.Name] = true
		columns = append(columns, pk.Name)
	}
	for _, path := range q.fields {
		resolved, err := ResolvePath(q.model.table, q.alias, path, "")
		if err != nil {
			return nil, errors.Wrapf(err, "model %s", q.model.name)
		}
		if resolved.Alias != q.alias {
			return nil, errors.Wrapf(ErrInvalidPath, "field %s is not a column of %s", path, q.model.name)
		}
		if !seen[resolved.Column] {
			seen[resolved.Column] = true
			columns = append(columns, resolved.Column)
		}
	}
	return columns, nil
}

// relationPaths lists bun relation names to preload up to depth, without
// walking back into a table already on the path.
func relationPaths(table *schema.Table, depth int) []string {
	var paths []string
	var walk func(t *schema.Table, prefix string, level int, visited map[reflect.Type]bool)
	walk = func(t *schema.Table, prefix string, level int, visited map[reflect.Type]bool) {
		if level > depth {
			return
		}
		names := make([]string, 0, len(t.Relations))
		for name := range t.Relations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rel := t.Relations[name]
			if visited[rel.JoinTable.Type] {
				continue
			}
			path := prefix + name
			paths = append(paths, path)
			next := make(map[reflect.Type]bool, len(visited)+1)
			for k := range visited {
				next[k] = true
			}
			next[rel.JoinTable.Type] = true
			walk(rel.JoinTable, path+".", level+1, next)
		}
	}
	walk(table, "", 1, map[reflect.Type]bool{table.Type: true})
	return paths
}

// Count returns the number of matching entries, counting distinct primary
// keys when relation joins may multiply rows.
func (q *Query) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	sq := q.base(q.model.NewEntry())
	if !q.distinct {
		return sq.Count(ctx)
	}

	for _, pk := range q.model.table.PKs {
		sq = sq.ColumnExpr("?", bun.Ident(q.alias+"."+pk.Name))
	}
	sq = sq.Distinct()

	var count int
	err := q.db.NewSelect().
		TableExpr("(?) AS ?", sq, bun.Ident("_count")).
		ColumnExpr("count(*)").
		Scan(ctx, &count)
	return count, err
}

// Find returns the matching entries as pointers to model structs.
func (q *Query) Find(ctx context.Context) ([]interface{}, error) {
	slice := reflect.New(reflect.SliceOf(reflect.PtrTo(q.model.Type())))
	sq, err := q.selectQuery(slice.Interface())
	if err != nil {
		return nil, err
	}
	if err := sq.Scan(ctx); err != nil {
		return nil, errors.Wrapf(err, "query %s", q.model.name)
	}

	items := slice.Elem()
	entries := make([]interface{}, items.Len())
	for i := range entries {
		entries[i] = items.Index(i).Interface()
	}
	return entries, nil
}

// First returns the first matching entry or an error satisfying IsNotFound.
func (q *Query) First(ctx context.Context) (interface{}, error) {
	c := *q
	c.limit = 1
	entries, err := c.Find(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.Wrapf(sql.ErrNoRows, "query %s", q.model.name)
	}
	return entries[0], nil
}

// String renders the select statement, for logging.
func (q *Query) String() string {
	slice := reflect.New(reflect.SliceOf(reflect.PtrTo(q.model.Type())))
	sq, err := q.selectQuery(slice.Interface())
	if err != nil {
		return fmt.Sprintf("<invalid query: %v>", err)
	}
	return sq.String()
}

// FindAs runs q and converts the entries to *T.
func FindAs[T any](ctx context.Context, q *Query) ([]*T, error) {
	entries, err := q.Find(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*T, 0, len(entries))
	for _, entry := range entries {
		item, ok := entry.(*T)
		if !ok {
			return nil, errors.Errorf("entry of %s is %T", q.model.name, entry)
		}
		result = append(result, item)
	}
	return result, nil
}
