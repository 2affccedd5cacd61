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
// Package text stores the texts of the text widget in the database.
//
// A text has one row per locale sharing its id and a version which every
// save increments. Each save also keeps a snapshot so older versions can be
// shown and restored. The IO binds texts to widget instances and warns when
// a text is shown by more than one widget; the usage finder lists the nodes
// showing a text.
package text

import "github.com/tomoncle/ormcms/utils"

var log = utils.NewLogger("TEXT")
