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
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun/schema"
)

// LocaleField is the column which makes a model localized.
const LocaleField = "locale"

// FieldKind classifies the fields of a model.
type FieldKind int

const (
	PropertyField FieldKind = iota
	BelongsToField
	HasOneField
	HasManyField
	ManyToManyField
)

var fieldKindNames = []string{"property", "belongsTo", "hasOne", "hasMany", "hasManyToMany"}

func (k FieldKind) String() string {
	if k < 0 || int(k) >= len(fieldKindNames) {
		return "unknown"
	}
	return fieldKindNames[k]
}

// IsRelation reports whether the field points to another model.
func (k FieldKind) IsRelation() bool {
	return k != PropertyField
}

// IsHas reports whether the field is a has-one or has-many relation.
func (k FieldKind) IsHas() bool {
	return k == HasOneField || k == HasManyField || k == ManyToManyField
}

// ModelField is a column or a relation of a model.
type ModelField struct {
	Name     string
	GoName   string
	Kind     FieldKind
	Unique   bool
	Field    *schema.Field
	Relation *schema.Relation
}

// Model is a named content model backed by a bun table.
type Model struct {
	manager *Manager
	name    string
	table   *schema.Table

	fields []*ModelField
	lookup map[string]*ModelField

	mu      sync.RWMutex
	formats map[string]string
	options map[string]string
}

func newModel(manager *Manager, name string, table *schema.Table) *Model {
	m := &Model{
		manager: manager,
		name:    name,
		table:   table,
		lookup:  make(map[string]*ModelField),
		formats: make(map[string]string),
		options: make(map[string]string),
	}

	for _, f := range table.Fields {
		m.addField(&ModelField{
			Name:   f.Name,
			GoName: f.GoName,
			Kind:   PropertyField,
			Unique: f.IsPK || f.Tag.HasOption("unique"),
			Field:  f,
		})
	}

	relations := make([]*schema.Relation, 0, len(table.Relations))
	for _, rel := range table.Relations {
		relations = append(relations, rel)
	}
	sort.Slice(relations, func(i, j int) bool {
		return lessIndex(relations[i].Field.Index, relations[j].Field.Index)
	})
	for _, rel := range relations {
		m.addField(&ModelField{
			Name:     rel.Field.Name,
			GoName:   rel.Field.GoName,
			Kind:     relationKind(rel),
			Field:    rel.Field,
			Relation: rel,
		})
	}
	return m
}

func (m *Model) addField(f *ModelField) {
	m.fields = append(m.fields, f)
	for _, key := range []string{f.Name, f.GoName} {
		key = strings.ToLower(key)
		if _, ok := m.lookup[key]; !ok && key != "" {
			m.lookup[key] = f
		}
	}
}

func relationKind(rel *schema.Relation) FieldKind {
	switch rel.Type {
	case schema.BelongsToRelation:
		return BelongsToField
	case schema.HasOneRelation:
		return HasOneField
	case schema.ManyToManyRelation:
		return ManyToManyField
	default:
		return HasManyField
	}
}

func lessIndex(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func (m *Model) Name() string { return m.name }

func (m *Model) Table() *schema.Table { return m.table }

func (m *Model) Manager() *Manager { return m.manager }

// Type returns the struct type of the entries.
func (m *Model) Type() reflect.Type { return m.table.Type }

// NewEntry returns a pointer to a new zero entry.
func (m *Model) NewEntry() interface{} {
	return reflect.New(m.table.Type).Interface()
}

// Fields returns the columns followed by the relations in declaration order.
func (m *Model) Fields() []*ModelField {
	return m.fields
}

// Field looks a field up by SQL or Go name, case-insensitive.
func (m *Model) Field(name string) (*ModelField, error) {
	if f, ok := m.lookup[strings.ToLower(name)]; ok {
		return f, nil
	}
	return nil, errors.Wrapf(ErrFieldNotFound, "%s.%s", m.name, name)
}

func (m *Model) HasField(name string) bool {
	_, ok := m.lookup[strings.ToLower(name)]
	return ok
}

// Relation looks a relation field up by name.
func (m *Model) Relation(name string) (*ModelField, error) {
	f, err := m.Field(name)
	if err != nil {
		return nil, err
	}
	if !f.Kind.IsRelation() {
		return nil, errors.Wrapf(ErrNotRelation, "%s.%s", m.name, name)
	}
	return f, nil
}

// RelationModel follows a dotted relation path and returns the model at its
// end.
func (m *Model) RelationModel(path string) (*Model, error) {
	current := m
	for _, token := range strings.Split(path, ".") {
		f, err := current.Relation(token)
		if err != nil {
			return nil, err
		}
		current = m.manager.modelForTable(f.Relation.JoinTable)
	}
	return current, nil
}

// PrimaryKey returns the SQL name of the first primary key column.
func (m *Model) PrimaryKey() string {
	if len(m.table.PKs) == 0 {
		return "id"
	}
	return m.table.PKs[0].Name
}

// IsLocalized reports whether entries carry a locale column.
func (m *Model) IsLocalized() bool {
	_, ok := m.table.FieldMap[LocaleField]
	return ok
}

func (m *Model) SetDataFormat(name, format string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if format == "" {
		delete(m.formats, name)
		return
	}
	m.formats[name] = format
}

// DataFormat returns a data format. The title format defaults to
// "<Name> #{id}".
func (m *Model) DataFormat(name string) string {
	m.mu.RLock()
	format, ok := m.formats[name]
	m.mu.RUnlock()
	if ok {
		return format
	}
	if name == FormatTitle {
		return fmt.Sprintf("%s #{%s}", m.name, m.PrimaryKey())
	}
	return ""
}

// DataFormats returns a copy of the configured data formats.
func (m *Model) DataFormats() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	formats := make(map[string]string, len(m.formats))
	for k, v := range m.formats {
		formats[k] = v
	}
	return formats
}

func (m *Model) SetOption(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[key] = value
}

func (m *Model) Option(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.options[key]
}

// OptionsWithPrefix returns the options below prefix, keyed without it.
func (m *Model) OptionsWithPrefix(prefix string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for k, v := range m.options {
		if strings.HasPrefix(k, prefix) {
			result[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return result
}

// ID returns the primary key value of an entry of this model.
func (m *Model) ID(entry interface{}) (interface{}, bool) {
	v := reflect.ValueOf(entry)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Type() != m.table.Type || len(m.table.PKs) == 0 {
		return nil, false
	}
	return v.FieldByIndex(m.table.PKs[0].Index).Interface(), true
}

// IsEntry reports whether v is a (pointer to an) entry of this model.
func (m *Model) IsEntry(v interface{}) bool {
	t := reflect.TypeOf(v)
	if t == nil {
		return false
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t == m.table.Type
}

// CreateQuery starts a query on this model for locale.
func (m *Model) CreateQuery(locale string) *Query {
	return newQuery(m, locale)
}

// FindByID fetches an entry by the value of idField, which defaults to the
// primary key.
func (m *Model) FindByID(ctx context.Context, id interface{}, locale string, depth int, idField string) (interface{}, error) {
	if idField == "" {
		idField = m.PrimaryKey()
	}
	q := m.CreateQuery(locale).SetRecursiveDepth(depth)
	q.AddCondition("{"+idField+"} = %1%", id)
	return q.First(ctx)
}

// EntryOptions returns the entries as id => formatted title.
func (m *Model) EntryOptions(entries []interface{}) types.Options {
	options := make(types.Options, 0, len(entries))
	format := m.DataFormat(FormatTitle)
	for _, entry := range entries {
		id, ok := m.ID(entry)
		if !ok {
			continue
		}
		options.Add(fmt.Sprint(id), m.manager.formatter.Format(entry, format))
	}
	return options
}

// CheckPaths resolves every {path} of expr against the model.
func (m *Model) CheckPaths(expr string) error {
	for _, match := range placeholder.FindAllStringSubmatch(expr, -1) {
		if match[1] == "" {
			continue
		}
		if _, err := ResolvePath(m.table, m.table.Alias, match[1], ""); err != nil {
			return errors.Wrapf(err, "model %s", m.name)
		}
	}
	return nil
}
