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

// Package form defines the property forms of the ORM widgets. A component
// describes its rows, converts ContentProperties to form data and validates
// submitted data back into ContentProperties.
package form

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/types"
)

var ErrValidation = errors.New("validation failed")

// Row types.
const (
	TypeString     = "string"
	TypeText       = "text"
	TypeSelect     = "select"
	TypeOption     = "option"
	TypeBoolean    = "boolean"
	TypeCollection = "collection"
	TypeComponent  = "component"
	TypeHidden     = "hidden"
)

// Row is a field of a form.
type Row struct {
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Label       string        `json:"label"`
	Description string        `json:"description,omitempty"`
	Options     types.Options `json:"options,omitempty"`
	Validators  []string      `json:"validators,omitempty"`
	// Rows are the sub rows of a collection of components.
	Rows []Row `json:"rows,omitempty"`
}

// ValidationError holds the messages of invalid rows.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for name := range e.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Errors[name]
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(name, message string) {
	if _, ok := e.Errors[name]; !ok {
		e.Errors[name] = message
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

func newValidationError() *ValidationError {
	return &ValidationError{Errors: make(map[string]string)}
}

var parameterName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Data is submitted form data. Values are strings, booleans, numbers,
// string slices or slices of nested Data.
type Data map[string]interface{}

func (d Data) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return govalidator.Trim(v, "")
	case []string:
		if len(v) > 0 {
			return govalidator.Trim(v[0], "")
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool reads checkbox style values, an absent key is false.
func (d Data) Bool(key string) bool {
	switch v := d[key].(type) {
	case bool:
		return v
	case nil:
		return false
	}
	s := strings.ToLower(d.String(key))
	if s == "on" || s == "yes" {
		return true
	}
	b, err := govalidator.ToBoolean(s)
	return err == nil && b
}

// Int returns the integer value of key and whether it is one.
func (d Data) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	}
	s := d.String(key)
	if !govalidator.IsInt(s) || s == "" {
		return 0, false
	}
	n, err := govalidator.ToInt(s)
	return int(n), err == nil
}

// Strings returns the non empty values of a collection.
func (d Data) Strings(key string) []string {
	var values []string
	switch v := d[key].(type) {
	case []string:
		values = v
	case []interface{}:
		for _, item := range v {
			values = append(values, fmt.Sprint(item))
		}
	case string:
		values = strings.Split(v, ",")
	}
	var result []string
	for _, value := range values {
		if value = govalidator.Trim(value, ""); value != "" {
			result = append(result, value)
		}
	}
	return result
}

// Collection returns the nested data of a component collection.
func (d Data) Collection(key string) []Data {
	var result []Data
	switch v := d[key].(type) {
	case []Data:
		result = v
	case []map[string]interface{}:
		for _, item := range v {
			result = append(result, Data(item))
		}
	case []interface{}:
		for _, item := range v {
			switch m := item.(type) {
			case Data:
				result = append(result, m)
			case map[string]interface{}:
				result = append(result, Data(m))
			}
		}
	}
	return result
}

// FromValues converts posted form values. Keys like filters[0][name] become
// collections of Data, keys ending in [] become string slices.
func FromValues(values url.Values) Data {
	data := Data{}
	nested := map[string]map[int]Data{}
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if strings.HasSuffix(key, "[]") {
			data[strings.TrimSuffix(key, "[]")] = vs
			continue
		}
		name, index, sub, ok := splitIndexedKey(key)
		if !ok {
			data[key] = vs[0]
			continue
		}
		if nested[name] == nil {
			nested[name] = map[int]Data{}
		}
		if nested[name][index] == nil {
			nested[name][index] = Data{}
		}
		nested[name][index][sub] = vs[0]
	}
	for name, items := range nested {
		indexes := make([]int, 0, len(items))
		for i := range items {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		collection := make([]Data, len(indexes))
		for i, index := range indexes {
			collection[i] = items[index]
		}
		data[name] = collection
	}
	return data
}

func splitIndexedKey(key string) (name string, index int, sub string, ok bool) {
	open := strings.Index(key, "[")
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", 0, "", false
	}
	parts := strings.Split(strings.TrimSuffix(key[open+1:], "]"), "][")
	if len(parts) != 2 {
		return "", 0, "", false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", 0, "", false
	}
	return key[:open], n, parts[1], true
}

// NumericOptions returns the options minimum..maximum.
func NumericOptions(minimum, maximum int) types.Options {
	options := make(types.Options, 0, maximum-minimum+1)
	for i := minimum; i <= maximum; i++ {
		options.Add(strconv.Itoa(i), strconv.Itoa(i))
	}
	return options
}

// validateRange checks an optional integer row against minimum..maximum.
func validateRange(errs *ValidationError, data Data, key string, minimum, maximum int) int {
	if data.String(key) == "" {
		return 0
	}
	n, ok := data.Int(key)
	if !ok {
		errs.add(key, "not a number")
		return 0
	}
	if !govalidator.InRangeInt(n, minimum, maximum) {
		errs.add(key, fmt.Sprintf("must be between %d and %d", minimum, maximum))
	}
	return n
}

// validateOption checks that a non empty value is one of options.
func validateOption(errs *ValidationError, key, value string, options types.Options) {
	if value == "" || options == nil {
		return
	}
	if !govalidator.IsIn(value, options.Values()...) {
		errs.add(key, fmt.Sprintf("unknown value %q", value))
	}
}
