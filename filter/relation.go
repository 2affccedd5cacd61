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

package filter

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

// OptionCondition is the model option prefix holding a condition on the
// related entries offered by a relation filter, e.g.
// filter.condition.category: {parent} IS NULL
const OptionCondition = "filter.condition."

// Operator combines the values of a multi filter.
type Operator int

const (
	OperatorOr Operator = iota
	OperatorAnd
)

var operatorNames = []string{"OR", "AND"}

var _ types.BaseEnum = OperatorOr

func (o Operator) IsValid() bool { return o >= 0 && int(o) < len(operatorNames) }

func (o Operator) Number() int {
	if !o.IsValid() {
		return types.IllegalValue
	}
	return int(o)
}

func (o Operator) Name() string {
	if !o.IsValid() {
		return types.IllegalName
	}
	return operatorNames[o]
}

func (o Operator) String() string { return o.Name() }

func (o Operator) Desc() string {
	switch o {
	case OperatorOr:
		return "Match any of the values"
	case OperatorAnd:
		return "Match all of the values"
	}
	return types.IllegalDesc
}

// SingleFilter filters on one related entry.
type SingleFilter struct{}

func NewSingleFilter() *SingleFilter {
	return &SingleFilter{}
}

func (f *SingleFilter) ApplyQuery(model *orm.Model, query *orm.Query, field string, value []string) (bool, error) {
	v, ok := first(value)
	if !ok {
		return false, nil
	}
	query.AddCondition("{"+field+"} = %1%", v)
	return true, query.Err()
}

func (f *SingleFilter) SetVariables(ctx context.Context, states States, model *orm.Model, name, locale, baseURL string) error {
	state := states.Get(name)
	if state == nil {
		return nil
	}
	state.reset()
	if err := relationOptions(ctx, state, model, locale); err != nil {
		return err
	}
	state.Empty = states.URL(baseURL, name, nil, false)
	for _, option := range state.Options {
		state.URLs[option.Label] = states.URL(baseURL, name, []string{option.Value}, false)
		state.Values[option.Label] = option.Value
	}
	return nil
}

// relationOptions loads the entries of the model related through the state
// field.
func relationOptions(ctx context.Context, state *State, model *orm.Model, locale string) error {
	related, err := model.RelationModel(state.Field)
	if err != nil {
		return err
	}
	query := related.CreateQuery(locale)
	if condition := model.Option(OptionCondition + state.Field); condition != "" {
		query.AddCondition(condition)
	}
	query.AddOrderBy("{" + related.PrimaryKey() + "} ASC")
	entries, err := query.Find(ctx)
	if err != nil {
		return errors.Wrapf(err, "options of %s", state.Field)
	}
	state.Entries = entries
	state.Options = related.EntryOptions(entries)
	return nil
}

func first(value []string) (string, bool) {
	for _, v := range value {
		if v != "" {
			return v, true
		}
	}
	return "", false
}

// TaxonomyFilter filters on a related term or on its child terms.
type TaxonomyFilter struct {
	SingleFilter
}

func NewTaxonomyFilter() *TaxonomyFilter {
	return &TaxonomyFilter{}
}

func (f *TaxonomyFilter) ApplyQuery(model *orm.Model, query *orm.Query, field string, value []string) (bool, error) {
	v, ok := first(value)
	if !ok {
		return false, nil
	}
	query.AddCondition("{"+field+"} = %1% OR {"+parentField(field)+"} = %1%", v)
	return true, query.Err()
}

// parentField returns the parent path of the term referenced by field:
// category becomes category.parent, tags.term becomes tags.parent.
func parentField(field string) string {
	tokens := strings.Split(field, ".")
	if len(tokens) == 1 {
		return field + ".parent"
	}
	tokens[len(tokens)-1] = "parent"
	return strings.Join(tokens, ".")
}

// MultiFilter filters on a set of related entries.
type MultiFilter struct {
	operator Operator
}

func NewMultiFilter(operator Operator) *MultiFilter {
	return &MultiFilter{operator: operator}
}

func (f *MultiFilter) Operator() Operator {
	return f.operator
}

// ApplyQuery requires all values with the AND operator, each in its own join
// scope, and any of them with OR.
func (f *MultiFilter) ApplyQuery(model *orm.Model, query *orm.Query, field string, value []string) (bool, error) {
	values := nonEmpty(value)
	if len(values) == 0 {
		return false, nil
	}
	if f.operator == OperatorAnd {
		for _, v := range values {
			query.AddScopedCondition("{"+field+"} = %1%", v)
		}
	} else {
		query.AddCondition("{"+field+"} IN %1%", values)
	}
	return true, query.Err()
}

// SetVariables builds option URLs which toggle the option in or out of the
// current value set.
func (f *MultiFilter) SetVariables(ctx context.Context, states States, model *orm.Model, name, locale, baseURL string) error {
	state := states.Get(name)
	if state == nil {
		return nil
	}
	state.reset()
	if err := relationOptions(ctx, state, model, locale); err != nil {
		return err
	}
	state.Empty = states.URL(baseURL, name, nil, true)
	for _, option := range state.Options {
		var value []string
		if state.IsActive(option.Value) {
			for _, v := range state.Value {
				if v != option.Value {
					value = append(value, v)
				}
			}
		} else {
			value = append(append(value, state.Value...), option.Value)
		}
		state.URLs[option.Label] = states.URL(baseURL, name, value, true)
		state.Values[option.Label] = option.Value
	}
	return nil
}
