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
	"github.com/tomoncle/ormcms/types"
)

// NoParametersAction is what an overview does when it receives arguments
// without configured parameters.
type NoParametersAction int

const (
	NoParameters404 NoParametersAction = iota
	NoParametersIgnore
	NoParametersRender
)

var noParametersActions = []struct {
	name string
	desc string
}{
	{"404", "Respond with page not found"},
	{"ignore", "Render nothing"},
	{"render", "Render the widget"},
}

var _ types.BaseEnum = NoParameters404

func (a NoParametersAction) IsValid() bool {
	return a >= 0 && int(a) < len(noParametersActions)
}

func (a NoParametersAction) Number() int {
	if !a.IsValid() {
		return types.IllegalValue
	}
	return int(a)
}

func (a NoParametersAction) Name() string {
	if !a.IsValid() {
		return types.IllegalName
	}
	return noParametersActions[a].name
}

func (a NoParametersAction) String() string {
	return a.Name()
}

func (a NoParametersAction) Desc() string {
	if !a.IsValid() {
		return types.IllegalDesc
	}
	return noParametersActions[a].desc
}

// NoParametersActions lists all actions.
func NoParametersActions() []NoParametersAction {
	return []NoParametersAction{NoParameters404, NoParametersIgnore, NoParametersRender}
}

// ParseNoParametersAction returns the action by name; unknown names yield
// the 404 action.
func ParseNoParametersAction(name string) NoParametersAction {
	for _, a := range NoParametersActions() {
		if a.Name() == name {
			return a
		}
	}
	return NoParameters404
}
