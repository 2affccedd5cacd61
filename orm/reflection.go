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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReflectionHelper reads properties of entries, maps and slices by name.
type ReflectionHelper struct{}

func NewReflectionHelper() *ReflectionHelper {
	return &ReflectionHelper{}
}

// GetProperty returns a property of value: a struct field by bun column or
// Go name, a map key, a slice index or the result of a Get<Name> method.
// The second result is false when the property does not exist.
func (h *ReflectionHelper) GetProperty(value interface{}, name string) (interface{}, bool) {
	if value == nil || name == "" {
		return nil, false
	}
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return nil, false
	}

	if m := methodByName(v, "Get"+upperFirst(name)); m.IsValid() {
		if out := m.Call(nil); len(out) > 0 {
			return out[0].Interface(), true
		}
	}

	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		if f, ok := structField(v, name); ok {
			return f.Interface(), true
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		key := reflect.ValueOf(name).Convert(v.Type().Key())
		if item := v.MapIndex(key); item.IsValid() {
			return item.Interface(), true
		}
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= v.Len() {
			return nil, false
		}
		return v.Index(i).Interface(), true
	}
	return nil, false
}

// GetPath follows a dotted path. A nil value along the path yields nil.
func (h *ReflectionHelper) GetPath(value interface{}, path string) (interface{}, error) {
	current := value
	for _, token := range strings.Split(path, ".") {
		if isNil(current) {
			return nil, nil
		}
		next, ok := h.GetProperty(current, token)
		if !ok {
			return nil, errors.Wrapf(ErrFieldNotFound, "property %q of %q", token, path)
		}
		current = next
	}
	return current, nil
}

func methodByName(v reflect.Value, name string) reflect.Value {
	if !v.IsValid() {
		return reflect.Value{}
	}
	m := v.MethodByName(name)
	if !m.IsValid() || m.Type().NumIn() != 0 || m.Type().NumOut() == 0 {
		return reflect.Value{}
	}
	return m
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	var fallback reflect.Value
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			if f, ok := structField(v.Field(i), name); ok {
				return f, true
			}
			continue
		}
		if column := bunColumn(sf); column != "" && column == name {
			return v.Field(i), true
		}
		if sf.Name == name {
			return v.Field(i), true
		}
		if !fallback.IsValid() && strings.EqualFold(sf.Name, name) {
			fallback = v.Field(i)
		}
	}
	return fallback, fallback.IsValid()
}

func bunColumn(sf reflect.StructField) string {
	tag := sf.Tag.Get("bun")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if strings.Contains(name, ":") {
		return ""
	}
	return name
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
