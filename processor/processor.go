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

// Package processor holds the query behaviours and view processors applied by
// the ORM widgets.
package processor

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/view"
)

var ErrUnknownProcessor = errors.New("unknown processor")

// BehaviourOptionPrefix marks model options enabling a behaviour, e.g.
// behaviour.publish: true.
const BehaviourOptionPrefix = "behaviour."

// BehaviourProcessor adds the conditions of a model behaviour to queries.
type BehaviourProcessor interface {
	ProcessQuery(query *orm.Query, r *http.Request)
}

// ViewProcessor post-processes the template view of a widget.
type ViewProcessor interface {
	ProcessView(v *view.TemplateView)
}

// PublishBehaviour only lets published entries through: the isPublished
// flag is set and now lies within the optional publication period.
type PublishBehaviour struct {
	Now func() time.Time
}

func NewPublishBehaviour() *PublishBehaviour {
	return &PublishBehaviour{Now: time.Now}
}

func (p *PublishBehaviour) ProcessQuery(query *orm.Query, r *http.Request) {
	query.AddCondition("{isPublished} = %2% AND ({datePublishedFrom} IS NULL OR {datePublishedFrom} <= %1%) AND ({datePublishedTill} IS NULL OR {datePublishedTill} > %1%)", p.Now().UTC(), true)
}

// CloudViewProcessor adds cloud weight classes to an overview.
type CloudViewProcessor struct {
	Steps int
}

func NewCloudViewProcessor() *CloudViewProcessor {
	return &CloudViewProcessor{Steps: view.DefaultCloudSteps}
}

func (c *CloudViewProcessor) ProcessView(v *view.TemplateView) {
	view.ApplyCloudWeights(v, c.Steps)
}

// Registry holds the behaviour and view processors by name.
type Registry struct {
	mu         sync.RWMutex
	behaviours map[string]BehaviourProcessor
	views      map[string]ViewProcessor
}

// NewRegistry returns a registry with the publish behaviour and the cloud
// view processor.
func NewRegistry() *Registry {
	r := &Registry{behaviours: make(map[string]BehaviourProcessor), views: make(map[string]ViewProcessor)}
	r.RegisterBehaviour("publish", NewPublishBehaviour())
	r.RegisterView("cloud", NewCloudViewProcessor())
	return r
}

func (r *Registry) RegisterBehaviour(name string, p BehaviourProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.behaviours[name] = p
}

func (r *Registry) RegisterView(name string, p ViewProcessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[name] = p
}

func (r *Registry) View(name string) (ViewProcessor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.views[name]; ok {
		return p, nil
	}
	return nil, errors.Wrapf(ErrUnknownProcessor, "view processor %q", name)
}

// ViewNames returns the view processor names, sorted.
func (r *Registry) ViewNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProcessView applies the named view processor. An empty name does nothing.
func (r *Registry) ProcessView(name string, v *view.TemplateView) error {
	if name == "" {
		return nil
	}
	p, err := r.View(name)
	if err != nil {
		return err
	}
	p.ProcessView(v)
	return nil
}

// ApplyBehaviours runs the behaviours enabled on the model of query.
// Behaviours without a processor are ignored.
func (r *Registry) ApplyBehaviours(query *orm.Query, req *http.Request) {
	options := query.Model().OptionsWithPrefix(BehaviourOptionPrefix)
	names := make([]string, 0, len(options))
	for name, value := range options {
		if enabled(value) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if p, ok := r.behaviours[name]; ok {
			p.ProcessQuery(query, req)
		}
	}
}

func enabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}
