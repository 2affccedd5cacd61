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

package view

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

//go:embed templates
var defaultTemplates embed.FS

const (
	templateExtension = ".html"
	partialsResource  = "cms/widget/orm/partials"
)

var ErrTemplateNotFound = errors.New("template not found")

// Renderer renders template views. Resources are looked up in the theme
// layers in order and finally in the built-in templates; the first hit wins.
type Renderer struct {
	layers []fs.FS
	funcs  template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewRenderer returns a renderer over the theme layers.
func NewRenderer(themes ...fs.FS) *Renderer {
	builtIn, _ := fs.Sub(defaultTemplates, "templates")
	return &Renderer{
		layers: append(append([]fs.FS{}, themes...), builtIn),
		funcs: template.FuncMap{
			"safe": func(s string) template.HTML { return template.HTML(s) },
			"join": strings.Join,
			"add":  func(a, b int) int { return a + b },
		},
		cache: make(map[string]*template.Template),
	}
}

// AddFunc registers a template function. It applies to templates parsed
// afterwards.
func (r *Renderer) AddFunc(name string, fn interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
	r.cache = make(map[string]*template.Template)
}

// Has reports whether a layer provides resource.
func (r *Renderer) Has(resource string) bool {
	_, err := r.read(resource)
	return err == nil
}

// Render executes the template of v with its variables.
func (r *Renderer) Render(w io.Writer, v *TemplateView) error {
	tmpl, err := r.template(v.Resource)
	if err != nil {
		return err
	}
	data := make(map[string]interface{}, len(v.Vars)+3)
	for k, val := range v.Vars {
		data[k] = val
	}
	data["javascripts"] = v.Javascripts
	data["inlineJavascripts"] = v.InlineJavascripts
	data["styles"] = v.Styles
	return errors.Wrapf(tmpl.Execute(w, data), "render %s", v.Resource)
}

// RenderString renders v to a string.
func (r *Renderer) RenderString(v *TemplateView) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Templates lists the resources below prefix over all layers.
func (r *Renderer) Templates(prefix string) []string {
	seen := make(map[string]bool)
	for _, layer := range r.layers {
		_ = fs.WalkDir(layer, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(p, templateExtension) {
				return nil
			}
			resource := strings.TrimSuffix(p, templateExtension)
			if strings.HasPrefix(resource, prefix) && resource != partialsResource {
				seen[resource] = true
			}
			return nil
		})
	}
	resources := make([]string, 0, len(seen))
	for resource := range seen {
		resources = append(resources, resource)
	}
	sort.Strings(resources)
	return resources
}

func (r *Renderer) template(resource string) (*template.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.cache[resource]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	source, err := r.read(resource)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tmpl = template.New(path.Base(resource)).Funcs(r.funcs)
	if partials, err := r.read(partialsResource); err == nil {
		if tmpl, err = tmpl.Parse(partials); err != nil {
			return nil, errors.Wrap(err, "parse partials")
		}
	}
	if tmpl, err = tmpl.Parse(source); err != nil {
		return nil, errors.Wrapf(err, "parse %s", resource)
	}
	r.cache[resource] = tmpl
	return tmpl, nil
}

func (r *Renderer) read(resource string) (string, error) {
	name := strings.TrimPrefix(resource, "/") + templateExtension
	for _, layer := range r.layers {
		b, err := fs.ReadFile(layer, name)
		if err == nil {
			return string(b), nil
		}
	}
	return "", errors.Wrapf(ErrTemplateNotFound, "%s", resource)
}
