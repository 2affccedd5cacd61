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

// Package filter implements the filters of overview widgets. A filter reads
// its value from the request, narrows the overview query and exposes the
// options and toggle URLs a template needs to render it.
package filter

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

var ErrUnknownFilter = errors.New("unknown filter type")

// Filter type names.
const (
	TypeSingle         = "single"
	TypeSingleTaxonomy = "single-taxonomy"
	TypeMultiAnd       = "multi-and"
	TypeMultiOr        = "multi-or"
	TypeDate           = "date"
	TypeCalendar       = "calendar"
	TypeBoolean        = "boolean"
)

// Filter narrows an overview query.
type Filter interface {
	// ApplyQuery adds the conditions for value to query and reports whether
	// anything was applied.
	ApplyQuery(model *orm.Model, query *orm.Query, field string, value []string) (bool, error)
	// SetVariables fills the options and URLs of the state of filter name.
	SetVariables(ctx context.Context, states States, model *orm.Model, name, locale, baseURL string) error
}

// State is a filter of a rendered overview.
type State struct {
	Name  string
	Type  string
	Field string
	// Value holds the request value, List is set for name[] parameters.
	Value []string
	List  bool

	Options types.Options
	Entries []interface{}
	// URLs and Values are keyed by option label.
	URLs   map[string]string
	Values map[string]string
	Empty  string
}

// HasValue reports whether the request sets the filter.
func (s *State) HasValue() bool {
	for _, v := range s.Value {
		if v != "" {
			return true
		}
	}
	return false
}

// IsActive reports whether value is one of the current values.
func (s *State) IsActive(value string) bool {
	for _, v := range s.Value {
		if v == value {
			return true
		}
	}
	return false
}

func (s *State) reset() {
	s.Options = types.Options{}
	s.Entries = nil
	s.URLs = make(map[string]string)
	s.Values = make(map[string]string)
}

// States are the filters of an overview in configuration order.
type States []*State

// Get returns the state of filter name.
func (s States) Get(name string) *State {
	for _, state := range s {
		if state.Name == name {
			return state
		}
	}
	return nil
}

// NewStates reads the values of the configured filters from query
// parameters: name=value or name[]=a&name[]=b.
func NewStates(filters []cms.FilterDefinition, query url.Values) States {
	states := make(States, 0, len(filters))
	for _, f := range filters {
		state := &State{Name: f.Name, Type: f.Type, Field: f.Field}
		if values, ok := query[f.Name+"[]"]; ok {
			state.Value, state.List = nonEmpty(values), true
		} else if value := query.Get(f.Name); value != "" {
			state.Value = []string{value}
		}
		state.reset()
		states = append(states, state)
	}
	return states
}

func nonEmpty(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}

// URL returns baseURL with the query of all filters, where filter name takes
// value. A single value equal to the current value of name toggles it off.
func (s States) URL(baseURL, name string, value []string, list bool) string {
	var query []string
	for _, state := range s {
		values, isList := state.Value, state.List
		if state.Name == name {
			values, isList = value, list
			if !list && len(value) == 1 && len(state.Value) == 1 && state.Value[0] == value[0] {
				values = nil
			}
		}
		query = append(query, queryValue(state.Name, values, isList)...)
	}
	if len(query) == 0 {
		return baseURL
	}
	separator := "?"
	if strings.Contains(baseURL, "?") {
		separator = "&"
	}
	return baseURL + separator + strings.Join(query, "&")
}

func queryValue(name string, values []string, list bool) []string {
	var query []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if list {
			query = append(query, url.QueryEscape(name)+"[]="+url.QueryEscape(v))
		} else {
			query = append(query, url.QueryEscape(name)+"="+url.QueryEscape(v))
			break
		}
	}
	return query
}

// Registry holds the filters by type.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Filter
}

// NewRegistry returns a registry with the built-in filters.
func NewRegistry() *Registry {
	r := &Registry{filters: make(map[string]Filter)}
	r.Register(TypeSingle, NewSingleFilter())
	r.Register(TypeSingleTaxonomy, NewTaxonomyFilter())
	r.Register(TypeMultiAnd, NewMultiFilter(OperatorAnd))
	r.Register(TypeMultiOr, NewMultiFilter(OperatorOr))
	r.Register(TypeDate, NewDateFilter())
	r.Register(TypeCalendar, NewCalendarFilter())
	r.Register(TypeBoolean, NewBooleanFilter())
	return r
}

func (r *Registry) Register(name string, filter Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = filter
}

func (r *Registry) Get(name string) (Filter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if filter, ok := r.filters[name]; ok {
		return filter, nil
	}
	return nil, errors.Wrapf(ErrUnknownFilter, "filter %q", name)
}

func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Names returns the registered types, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply applies the filters with a value to query.
func (r *Registry) Apply(model *orm.Model, query *orm.Query, states States) error {
	for _, state := range states {
		if !state.HasValue() {
			continue
		}
		filter, err := r.Get(state.Type)
		if err != nil {
			return err
		}
		if _, err := filter.ApplyQuery(model, query, state.Field, state.Value); err != nil {
			return errors.Wrapf(err, "apply filter %s", state.Name)
		}
	}
	return nil
}

// SetVariables fills the template variables of every state.
func (r *Registry) SetVariables(ctx context.Context, model *orm.Model, states States, locale, baseURL string) error {
	for _, state := range states {
		filter, err := r.Get(state.Type)
		if err != nil {
			return err
		}
		if err := filter.SetVariables(ctx, states, model, state.Name, locale, baseURL); err != nil {
			return errors.Wrapf(err, "filter variables of %s", state.Name)
		}
	}
	return nil
}
