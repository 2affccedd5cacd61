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

package widget

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/filter"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/processor"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/view"
)

// Services are the dependencies shared by the ORM widgets.
type Services struct {
	Manager    *orm.Manager
	Nodes      *cms.NodeModel
	Content    *content.Service
	Filters    *filter.Registry
	Processors *processor.Registry
	Views      *view.Views
	EntryLog   *orm.EntryLogger
	Texts      *text.IO
	Translator cms.Translator
	// Locales are tried in order when unlocalized entries are included.
	Locales []string
}

// Widget is an ORM widget type.
type Widget interface {
	Name() string
	Routes(wc *Context) []Route
	Templates(wc *Context) []string
	PropertiesPreview(wc *Context) string
	// Handle renders the widget for the arguments of its route.
	Handle(ctx context.Context, wc *Context, args []string) error
}

// Registry dispatches rendering to widgets by name and records metrics.
type Registry struct {
	mu      sync.RWMutex
	widgets map[string]Widget
}

// NewRegistry returns a registry with the ORM widgets and, when the
// services have a text IO, the text widget.
func NewRegistry(services *Services) *Registry {
	r := &Registry{widgets: make(map[string]Widget)}
	r.Register(NewOverviewWidget(services))
	r.Register(NewDetailWidget(services))
	r.Register(NewEntryWidget(services))
	r.Register(NewContactWidget(services))
	if services.Texts != nil {
		r.Register(NewTextWidget(services))
	}
	return r
}

func (r *Registry) Register(w Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[w.Name()] = w
}

func (r *Registry) Get(name string) (Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.widgets[name]; ok {
		return w, nil
	}
	return nil, errors.Wrap(ErrUnknownWidget, name)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.widgets))
	for name := range r.widgets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render runs widget name for wc.
func (r *Registry) Render(ctx context.Context, name string, wc *Context, args []string) error {
	w, err := r.Get(name)
	if err != nil {
		return err
	}
	initRenderMetrics()

	start := time.Now()
	err = w.Handle(ctx, wc, args)
	status := wc.Response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	renderDuration.WithLabelValues(name, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	if err != nil {
		renderErrors.WithLabelValues(name).Inc()
		log.WithFields(logrus.Fields{"widget": name, "id": wc.ID, "error": err}).Error("widget failed")
	}
	return err
}

// ormWidget holds what the ORM widgets have in common.
type ormWidget struct {
	services *Services
}

func (w *ormWidget) contentProperties(wc *Context) *cms.ContentProperties {
	return cms.FromWidgetProperties(wc.Properties, wc.Locale)
}

func (w *ormWidget) model(props *cms.ContentProperties) (*orm.Model, error) {
	return w.services.Manager.Model(props.ModelName)
}

// createQuery starts a query with the depth, locale handling, fields and
// behaviours of the widget.
func (w *ormWidget) createQuery(model *orm.Model, props *cms.ContentProperties, locale string, r *http.Request) *orm.Query {
	query := model.CreateQuery(locale).
		SetRecursiveDepth(props.RecursiveDepth).
		SetFetchUnlocalized(props.IncludeUnlocalized)
	for _, field := range props.ModelFields {
		query.AddFields("{" + field + "}")
	}
	if w.services.Processors != nil {
		w.services.Processors.ApplyBehaviours(query, r)
	}
	return query
}

func (w *ormWidget) translate(key string, vars map[string]string) string {
	if w.services.Translator == nil {
		return key
	}
	return w.services.Translator.Translate(key, vars)
}

func (w *ormWidget) processView(props *cms.ContentProperties, v *view.TemplateView) error {
	if props.ViewProcessor == "" || w.services.Processors == nil {
		return nil
	}
	return w.services.Processors.ProcessView(props.ViewProcessor, v)
}

func (w *ormWidget) formats(model *orm.Model, props *cms.ContentProperties) content.Formats {
	formats := content.Formats{
		Title:  props.TitleFormat,
		Teaser: props.TeaserFormat,
		Image:  props.ImageFormat,
		Date:   props.DateFormat,
	}
	return formats.Or(content.NewOrmMapper(model).ModelFormats())
}
