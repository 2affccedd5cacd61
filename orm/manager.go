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
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Manager is the registry of named content models on a bun database.
type Manager struct {
	db *bun.DB

	mu     sync.RWMutex
	models map[string]*Model
	byType map[reflect.Type]*Model

	formatter *EntryFormatter
}

func NewManager(db *bun.DB) *Manager {
	m := &Manager{
		db:        db,
		models:    make(map[string]*Model),
		byType:    make(map[reflect.Type]*Model),
		formatter: NewEntryFormatter(),
	}
	m.formatter.manager = m
	return m
}

func (m *Manager) DB() *bun.DB {
	return m.db
}

// Formatter returns the formatter used for the data formats of entries.
func (m *Manager) Formatter() *EntryFormatter {
	return m.formatter
}

// Register adds a model. The name defaults to the Go type name.
func (m *Manager) Register(def ModelDefinition) (*Model, error) {
	if def.Instance == nil {
		return nil, errors.New("model definition without instance")
	}
	typ := indirectType(reflect.TypeOf(def.Instance))
	if typ.Kind() != reflect.Struct {
		return nil, errors.Errorf("model %s: %s is not a struct", def.Name, typ)
	}
	if def.Name == "" {
		def.Name = typ.Name()
	}

	if len(def.Links) > 0 {
		m.db.RegisterModel(def.Links...)
	}
	table := m.db.Table(typ)

	model := newModel(m, def.Name, table)
	for k, v := range def.Formats {
		model.SetDataFormat(k, v)
	}
	for k, v := range def.Options {
		model.SetOption(k, v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.models[def.Name]; ok {
		return nil, errors.Errorf("model %s is already registered", def.Name)
	}
	m.models[def.Name] = model
	m.byType[typ] = model

	log.WithField("model", def.Name).WithField("table", table.Name).Debug("model registered")
	return model, nil
}

// Model returns a model by name. An exact match wins over a case-insensitive
// one.
func (m *Manager) Model(name string) (*Model, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if model, ok := m.models[name]; ok {
		return model, nil
	}
	for n, model := range m.models {
		if strings.EqualFold(n, name) {
			return model, nil
		}
	}
	return nil, errors.Wrapf(ErrModelNotFound, "model %q", name)
}

func (m *Manager) HasModel(name string) bool {
	_, err := m.Model(name)
	return err == nil
}

// ModelByType returns the model of an entry, a struct type or a pointer type.
func (m *Manager) ModelByType(v interface{}) (*Model, error) {
	var typ reflect.Type
	switch t := v.(type) {
	case reflect.Type:
		typ = t
	default:
		typ = reflect.TypeOf(v)
	}
	if typ == nil {
		return nil, errors.Wrap(ErrModelNotFound, "nil type")
	}
	typ = indirectType(typ)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if model, ok := m.byType[typ]; ok {
		return model, nil
	}
	return nil, errors.Wrapf(ErrModelNotFound, "type %s", typ)
}

// Models returns all models ordered by name.
func (m *Manager) Models() []*Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	models := make([]*Model, 0, len(m.models))
	for _, model := range m.models {
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].name < models[j].name })
	return models
}

// ModelNames returns the sorted model names.
func (m *Manager) ModelNames() []string {
	models := m.Models()
	names := make([]string, len(models))
	for i, model := range models {
		names[i] = model.name
	}
	return names
}

// modelForTable returns the registered model of a relation target, or an
// unregistered model named after the Go type.
func (m *Manager) modelForTable(table *schema.Table) *Model {
	m.mu.RLock()
	model, ok := m.byType[table.Type]
	m.mu.RUnlock()
	if ok {
		return model
	}
	return newModel(m, table.Type.Name(), table)
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t
}
