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

package types

// Option is a value/label pair for select fields, kept in insertion order.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options is an ordered option list.
type Options []Option

// Add appends value with label, replacing the label of an existing value.
func (o *Options) Add(value, label string) {
	for i := range *o {
		if (*o)[i].Value == value {
			(*o)[i].Label = label
			return
		}
	}
	*o = append(*o, Option{Value: value, Label: label})
}

// Has reports whether value is one of the options.
func (o Options) Has(value string) bool {
	for _, opt := range o {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Values returns the option values in order.
func (o Options) Values() []string {
	values := make([]string, len(o))
	for i, opt := range o {
		values[i] = opt.Value
	}
	return values
}

// Map returns the options as value => label.
func (o Options) Map() map[string]string {
	m := make(map[string]string, len(o))
	for _, opt := range o {
		m[opt.Value] = opt.Label
	}
	return m
}
