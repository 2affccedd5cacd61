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
	"github.com/tomoncle/ormcms/types"
)

// EmptyOption is the label of the empty choice in field selections.
const EmptyOption = "---"

// FieldService lists the fields of models as select options for property
// forms and the field endpoints.
type FieldService struct {
	manager *Manager
}

func NewFieldService(manager *Manager) *FieldService {
	return &FieldService{manager: manager}
}

func (s *FieldService) Manager() *Manager {
	return s.manager
}

// GetFields lists the fields of a model. Without relation fields only
// properties are listed. With relation fields an empty option comes first,
// belongs-to relations are included (has relations only when
// includeHasFields) and, at depth 1, expanded into their sub fields.
func (s *FieldService) GetFields(model string, includeRelationFields, includeHasFields bool, depth int) (types.Options, error) {
	options := types.Options{}
	if includeRelationFields {
		options.Add("", EmptyOption)
	}
	if model == "" {
		return options, nil
	}
	m, err := s.manager.Model(model)
	if err != nil {
		return nil, err
	}

	for _, field := range m.Fields() {
		if !includeRelationFields || field.Kind == PropertyField {
			if field.Kind == PropertyField {
				options.Add(field.Name, field.Name)
			}
			continue
		}
		if !includeHasFields && field.Kind != BelongsToField {
			continue
		}
		if depth != 1 {
			options.Add(field.Name, field.Name)
			continue
		}

		relationModel := s.manager.modelForTable(field.Relation.JoinTable)
		for _, sub := range relationModel.Fields() {
			if !includeHasFields && sub.Kind.IsHas() {
				continue
			}
			name := field.Name + "." + sub.Name
			options.Add(name, name)
		}
	}
	return options, nil
}

// GetUniqueFields lists the primary key and the unique properties.
func (s *FieldService) GetUniqueFields(model string) (types.Options, error) {
	options := types.Options{}
	if model == "" {
		return options, nil
	}
	m, err := s.manager.Model(model)
	if err != nil {
		return nil, err
	}
	options.Add(m.PrimaryKey(), m.PrimaryKey())
	for _, field := range m.Fields() {
		if field.Kind == PropertyField && field.Unique {
			options.Add(field.Name, field.Name)
		}
	}
	return options, nil
}

// GetRelationFields lists the relation fields of a model.
func (s *FieldService) GetRelationFields(model string) (types.Options, error) {
	options := types.Options{}
	if model == "" {
		return options, nil
	}
	m, err := s.manager.Model(model)
	if err != nil {
		return nil, err
	}
	for _, field := range m.Fields() {
		if field.Kind.IsRelation() {
			options.Add(field.Name, field.Name)
		}
	}
	return options, nil
}
