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

// Package content turns ORM entries into generic Content values that the
// CMS can display, link and search.
//
// A Mapper knows how to render entries of one model. Mappers are resolved
// through a Facade, which combines explicitly registered mappers with
// mappers discovered from the detail widgets placed on the site tree.
package content

import (
	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/utils"
)

var log = utils.NewLogger("CONTENT")

var (
	ErrNoData         = errors.New("no data provided")
	ErrMapperNotFound = errors.New("content mapper not found")
)

// DetailWidgetName is the widget whose instances expose entry detail pages.
const DetailWidgetName = "orm.detail"
