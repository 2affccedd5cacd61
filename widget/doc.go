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

// Package widget holds the ORM widgets of the CMS: orm.overview lists
// entries, orm.detail shows the entry addressed by the URL and orm.entry
// shows a fixed entry.
//
// A widget never writes HTTP responses itself. It reads its Context and
// leaves a status, a redirect or a template view in the Context's Response
// for the host to render.
package widget

import (
	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/utils"
)

var log = utils.NewLogger("WIDGET")

var (
	ErrContextVariable = errors.New("context variable could not be resolved")
	ErrUnknownWidget   = errors.New("unknown widget")
)

const (
	OverviewName = "orm.overview"
	DetailName   = "orm.detail"
	EntryName    = "orm.entry"

	// ParamPage is the query parameter of the overview page.
	ParamPage = "page"

	autoCacheTTL = 60
)
