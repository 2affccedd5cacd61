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

package cms

import (
	"fmt"
	"strings"
)

// Translator translates labels of the administration forms and views.
type Translator interface {
	Translate(key string, vars map[string]string) string
}

// MapTranslator translates from a static map. Variables are written as
// %name% in the translations. Missing keys translate to [key].
type MapTranslator map[string]string

func (t MapTranslator) Translate(key string, vars map[string]string) string {
	text, ok := t[key]
	if !ok {
		return fmt.Sprintf("[%s]", key)
	}
	for name, value := range vars {
		text = strings.ReplaceAll(text, "%"+name+"%", value)
	}
	return text
}
