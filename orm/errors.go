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
	"database/sql"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/utils"
)

var log = utils.NewLogger("ORM")

var (
	ErrModelNotFound = errors.New("model not found")
	ErrFieldNotFound = errors.New("field not found")
	ErrNotRelation   = errors.New("field is not a relation")
	ErrInvalidPath   = errors.New("invalid field path")
)

// IsNotFound reports whether err means that no entry matched.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
