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
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Data format names of a model.
const (
	FormatTitle  = "title"
	FormatTeaser = "teaser"
	FormatImage  = "image"
	FormatDate   = "date"
)

// ModelDefinition declares a content model: a bun struct, its name, the data
// formats used to display entries and free form options such as
// behaviour.publish or scaffold.expose.
type ModelDefinition struct {
	Name     string
	Instance interface{}
	// Links are m2m link models which bun needs before the table of
	// Instance can be resolved.
	Links   []interface{}
	Formats map[string]string
	Options map[string]string
}

// DefinitionFile holds formats and options per model name, as loaded from
// YAML:
//
//	Article:
//	  formats:
//	    title: "{title}"
//	  options:
//	    behaviour.publish: "true"
type DefinitionFile map[string]struct {
	Formats map[string]string `yaml:"formats"`
	Options map[string]string `yaml:"options"`
}

// ReadDefinitions decodes a definition file.
func ReadDefinitions(r io.Reader) (DefinitionFile, error) {
	var file DefinitionFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return DefinitionFile{}, nil
		}
		return nil, errors.Wrap(err, "decode model definitions")
	}
	return file, nil
}

// LoadDefinitions applies the formats and options of a definition file to
// the registered models.
func (m *Manager) LoadDefinitions(r io.Reader) error {
	file, err := ReadDefinitions(r)
	if err != nil {
		return err
	}
	for name, def := range file {
		model, err := m.Model(name)
		if err != nil {
			return err
		}
		for k, v := range def.Formats {
			model.SetDataFormat(k, v)
		}
		for k, v := range def.Options {
			model.SetOption(k, v)
		}
	}
	return nil
}

// LoadDefinitionsFile applies a YAML definition file from disk.
func (m *Manager) LoadDefinitionsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open model definitions %s", path)
	}
	defer f.Close()
	return m.LoadDefinitions(f)
}
