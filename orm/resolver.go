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
	"strings"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Join is a LEFT JOIN required to reach a resolved column.
type Join struct {
	Table *schema.Table
	Alias string
	// On holds column pairs: LeftAlias.Left[i] = Alias.Right[i].
	LeftAlias string
	Left      []string
	Right     []string
	ToMany    bool
}

// AppendTo adds the join to a bun select query.
func (j Join) AppendTo(q *bun.SelectQuery) *bun.SelectQuery {
	var on strings.Builder
	args := []interface{}{bun.Ident(j.Table.Name), bun.Ident(j.Alias)}
	for i := range j.Left {
		if i > 0 {
			on.WriteString(" AND ")
		}
		on.WriteString("? = ?")
		args = append(args,
			bun.Ident(j.LeftAlias+"."+j.Left[i]),
			bun.Ident(j.Alias+"."+j.Right[i]))
	}
	return q.Join("LEFT JOIN ? AS ? ON "+on.String(), args...)
}

// ResolvedPath is a dotted field path resolved to a single column.
type ResolvedPath struct {
	Path   string
	Alias  string
	Column string
	Joins  []Join
	// ToMany is set when any join may multiply the root rows.
	ToMany bool
}

// Ident returns the quoted alias.column identifier.
func (r *ResolvedPath) Ident() bun.Ident {
	return bun.Ident(r.Alias + "." + r.Column)
}

// ResolvePath resolves a dotted path on table, queried as alias, to a column
// and the joins needed to reach it:
//
//   - a property must be the last token;
//   - belongs-to as last token is the foreign key of the base table, else the
//     target is joined;
//   - has-one joins the target, as last token its primary key;
//   - has-many joins the target on its foreign key, as last token its
//     primary key;
//   - many-to-many joins the link table, as last token the link column
//     referencing the target, else the target is joined as well.
//
// Join aliases are alias__a__b followed by scope when scope is not empty.
func ResolvePath(table *schema.Table, alias, path, scope string) (*ResolvedPath, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.Wrap(ErrInvalidPath, "empty path")
	}
	tokens := strings.Split(path, ".")
	result := &ResolvedPath{Path: path}

	current := table
	currentAlias := alias
	prefix := alias
	for i, token := range tokens {
		last := i == len(tokens)-1
		if token == "" {
			return nil, errors.Wrapf(ErrInvalidPath, "empty token in %q", path)
		}
		prefix += "__" + token
		joinAlias := prefix + scopeSuffix(scope)

		if field := lookupColumn(current, token); field != nil {
			if !last {
				return nil, errors.Wrapf(ErrInvalidPath, "%s is a property and cannot be followed in %q", token, path)
			}
			result.Alias, result.Column = currentAlias, field.Name
			return result, nil
		}

		rel := lookupRelation(current, token)
		if rel == nil {
			return nil, errors.Wrapf(ErrFieldNotFound, "%s.%s", current.Type.Name(), token)
		}

		switch rel.Type {
		case schema.BelongsToRelation:
			if last {
				result.Alias, result.Column = currentAlias, rel.BasePKs[0].Name
				return result, nil
			}
			result.Joins = append(result.Joins, Join{
				Table:     rel.JoinTable,
				Alias:     joinAlias,
				LeftAlias: currentAlias,
				Left:      fieldNames(rel.BasePKs),
				Right:     fieldNames(rel.JoinPKs),
			})

		case schema.ManyToManyRelation:
			linkAlias := joinAlias + "_link"
			result.ToMany = true
			result.Joins = append(result.Joins, Join{
				Table:     rel.M2MTable,
				Alias:     linkAlias,
				LeftAlias: currentAlias,
				Left:      fieldNames(rel.BasePKs),
				Right:     fieldNames(rel.M2MBasePKs),
				ToMany:    true,
			})
			if last {
				result.Alias, result.Column = linkAlias, rel.M2MJoinPKs[0].Name
				return result, nil
			}
			result.Joins = append(result.Joins, Join{
				Table:     rel.JoinTable,
				Alias:     joinAlias,
				LeftAlias: linkAlias,
				Left:      fieldNames(rel.M2MJoinPKs),
				Right:     fieldNames(rel.JoinPKs),
			})

		default:
			toMany := rel.Type == schema.HasManyRelation
			result.ToMany = result.ToMany || toMany
			result.Joins = append(result.Joins, Join{
				Table:     rel.JoinTable,
				Alias:     joinAlias,
				LeftAlias: currentAlias,
				Left:      fieldNames(rel.BasePKs),
				Right:     fieldNames(rel.JoinPKs),
				ToMany:    toMany,
			})
			if last {
				result.Alias, result.Column = joinAlias, rel.JoinTable.PKs[0].Name
				return result, nil
			}
		}

		current = rel.JoinTable
		currentAlias = joinAlias
	}
	return result, nil
}

func scopeSuffix(scope string) string {
	if scope == "" {
		return ""
	}
	return "_" + scope
}

func lookupColumn(table *schema.Table, name string) *schema.Field {
	if f, ok := table.FieldMap[name]; ok {
		if _, isRel := table.Relations[f.GoName]; !isRel {
			return f
		}
	}
	for _, f := range table.Fields {
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.GoName, name) {
			return f
		}
	}
	return nil
}

func lookupRelation(table *schema.Table, name string) *schema.Relation {
	if rel, ok := table.Relations[name]; ok {
		return rel
	}
	for goName, rel := range table.Relations {
		if strings.EqualFold(goName, name) || strings.EqualFold(rel.Field.Name, name) {
			return rel
		}
	}
	return nil
}

func fieldNames(fields []*schema.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
