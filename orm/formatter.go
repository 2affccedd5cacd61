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
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	formatVariable = regexp.MustCompile(`\{([^{}]+)\}`)
	htmlTag        = regexp.MustCompile(`<[^>]*>`)
)

// DefaultDateLayout is used for time values without a date modifier.
const DefaultDateLayout = "2006-01-02 15:04:05"

// Modifier transforms a formatted value with the arguments following its
// name.
type Modifier func(value string, raw interface{}, args []string) string

// EntryFormatter renders data formats such as
// "{title|truncate:80} ({category.name|upper})" for an entry.
type EntryFormatter struct {
	reflection *ReflectionHelper
	modifiers  map[string]Modifier
	manager    *Manager
}

func NewEntryFormatter() *EntryFormatter {
	f := &EntryFormatter{
		reflection: NewReflectionHelper(),
		modifiers:  make(map[string]Modifier),
	}
	f.AddModifier("truncate", truncateModifier)
	f.AddModifier("date", dateModifier)
	f.AddModifier("upper", func(v string, _ interface{}, _ []string) string { return strings.ToUpper(v) })
	f.AddModifier("lower", func(v string, _ interface{}, _ []string) string { return strings.ToLower(v) })
	f.AddModifier("capitalize", capitalizeModifier)
	f.AddModifier("strip_tags", func(v string, _ interface{}, _ []string) string {
		return strings.TrimSpace(htmlTag.ReplaceAllString(v, ""))
	})
	f.AddModifier("default", func(v string, _ interface{}, args []string) string {
		if v == "" {
			return strings.Join(args, ":")
		}
		return v
	})
	return f
}

// AddModifier registers or replaces a modifier.
func (f *EntryFormatter) AddModifier(name string, modifier Modifier) {
	f.modifiers[name] = modifier
}

// Format renders format for entry. Unknown properties render empty.
func (f *EntryFormatter) Format(entry interface{}, format string) string {
	if format == "" {
		return ""
	}
	return formatVariable.ReplaceAllStringFunc(format, func(token string) string {
		expr := token[1 : len(token)-1]
		parts := strings.Split(expr, "|")
		path := strings.TrimSpace(parts[0])

		raw, err := f.reflection.GetPath(entry, path)
		if err != nil {
			log.WithField("path", path).Debug("format property not found")
			return ""
		}
		value := f.stringify(raw)
		for _, modifier := range parts[1:] {
			args := strings.Split(modifier, ":")
			name := strings.TrimSpace(args[0])
			fn, ok := f.modifiers[name]
			if !ok {
				log.WithField("modifier", name).Warn("unknown format modifier")
				continue
			}
			value = fn(value, raw, args[1:])
		}
		return value
	})
}

func (f *EntryFormatter) stringify(v interface{}) string {
	if isNil(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(DefaultDateLayout)
	case *time.Time:
		return f.stringify(*t)
	case fmt.Stringer:
		return t.String()
	}
	if f.manager != nil {
		if model, err := f.manager.ModelByType(reflect.TypeOf(v)); err == nil {
			return f.Format(v, model.DataFormat(FormatTitle))
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return f.stringify(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

func truncateModifier(value string, _ interface{}, args []string) string {
	length := 50
	suffix := "..."
	if len(args) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
			length = n
		}
	}
	if len(args) > 1 {
		suffix = strings.Join(args[1:], ":")
	}
	if length < 0 || utf8.RuneCountInString(value) <= length {
		return value
	}
	runes := []rune(value)
	return strings.TrimRightFunc(string(runes[:length]), unicode.IsSpace) + suffix
}

func dateModifier(value string, raw interface{}, args []string) string {
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return ""
		}
		t = *v
	case int64:
		t = time.Unix(v, 0)
	case int:
		t = time.Unix(int64(v), 0)
	default:
		parsed, err := time.Parse(DefaultDateLayout, value)
		if err != nil {
			return value
		}
		t = parsed
	}
	if t.IsZero() {
		return ""
	}
	layout := "2006-01-02"
	if len(args) > 0 {
		layout = DateLayout(strings.Join(args, ":"))
	}
	return t.Format(layout)
}

func capitalizeModifier(value string, _ interface{}, _ []string) string {
	r, size := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError {
		return value
	}
	return string(unicode.ToUpper(r)) + value[size:]
}

var phpDateTokens = map[byte]string{
	'd': "02", 'j': "2", 'm': "01", 'n': "1", 'Y': "2006", 'y': "06",
	'H': "15", 'G': "15", 'i': "04", 's': "05", 'D': "Mon", 'l': "Monday",
	'M': "Jan", 'F': "January", 'A': "PM", 'a': "pm",
}

// DateLayout accepts a Go layout or a PHP style date format (Y-m-d H:i) and
// returns a Go layout.
func DateLayout(format string) string {
	for _, ref := range []string{"2006", "01", "02", "15", "04", "Jan", "Mon"} {
		if strings.Contains(format, ref) {
			return format
		}
	}
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if layout, ok := phpDateTokens[format[i]]; ok {
			b.WriteString(layout)
			continue
		}
		b.WriteByte(format[i])
	}
	return b.String()
}
