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

// Package ormcms wires the ORM widgets, their services and the HTTP handler
// into an application.
package ormcms

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/content"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/filter"
	"github.com/tomoncle/ormcms/handler"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/processor"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/utils"
	"github.com/tomoncle/ormcms/view"
	"github.com/tomoncle/ormcms/widget"
)

var log = utils.NewLogger("ORMCMS")

type modelOption struct {
	def      orm.ModelDefinition
	priority int
}

type options struct {
	models     []modelOption
	migrations []database.MigrationItem
	filters    map[string]filter.Filter
	behaviours map[string]processor.BehaviourProcessor
	processors map[string]processor.ViewProcessor
	translator cms.Translator
	themes     []fs.FS
	searchers  map[string]content.SearchableModel
}

// Option customizes New.
type Option func(*options)

// WithModel registers a content model. Its table is created with the given
// priority, lower first.
func WithModel(def orm.ModelDefinition, priority int) Option {
	return func(o *options) { o.models = append(o.models, modelOption{def: def, priority: priority}) }
}

func WithMigrations(items ...database.MigrationItem) Option {
	return func(o *options) { o.migrations = append(o.migrations, items...) }
}

func WithFilter(name string, f filter.Filter) Option {
	return func(o *options) { o.filters[name] = f }
}

func WithBehaviour(name string, p processor.BehaviourProcessor) Option {
	return func(o *options) { o.behaviours[name] = p }
}

func WithViewProcessor(name string, p processor.ViewProcessor) Option {
	return func(o *options) { o.processors[name] = p }
}

func WithTranslator(t cms.Translator) Option {
	return func(o *options) { o.translator = t }
}

// WithSearcher lets searcher answer the content searches of model.
func WithSearcher(model string, searcher content.SearchableModel) Option {
	return func(o *options) { o.searchers[model] = searcher }
}

// WithTheme adds a template layer in front of the configured directories.
func WithTheme(theme fs.FS) Option {
	return func(o *options) { o.themes = append(o.themes, theme) }
}

// App holds the wired services.
type App struct {
	Config   *Config
	Factory  *database.BaseDatabaseFactory
	Manager  *orm.Manager
	Fields   *orm.FieldService
	EntryLog *orm.EntryLogger
	Nodes    *cms.NodeModel
	Content  *content.Service
	Text     *cms.EntryVariableParser
	Texts    *text.IO
	Services *widget.Services
	Widgets  *widget.Registry
	Renderer *view.Renderer
	Handler  *handler.Handler
}

// New connects the database, migrates it when configured and wires the
// widget services.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	utils.ConfigureLogging(cfg.Log)

	o := &options{
		filters:    make(map[string]filter.Filter),
		behaviours: make(map[string]processor.BehaviourProcessor),
		processors: make(map[string]processor.ViewProcessor),
		translator: cms.MapTranslator{},
		searchers:  make(map[string]content.SearchableModel),
	}
	for _, opt := range opts {
		opt(o)
	}

	registry := database.NewModelRegistry()
	for _, model := range cms.Models() {
		registry.Register(model)
	}
	registry.Register(orm.EntryLogModel())
	for _, model := range text.Models() {
		registry.Register(model)
	}
	for _, m := range o.models {
		for _, link := range m.def.Links {
			registry.Register(database.NewModelAdapter(link, m.priority-1))
		}
		registry.Register(database.NewModelAdapter(m.def.Instance, m.priority))
	}
	migrations := append(cms.Migrations(), orm.EntryLogMigration())
	migrations = append(migrations, text.Migrations()...)
	migrations = append(migrations, o.migrations...)

	factory, err := database.Open(ctx, &cfg.Database, registry, migrations...)
	if err != nil {
		return nil, err
	}
	app, err := newApp(cfg, factory, o)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	log.WithField("models", app.Manager.ModelNames()).Info("ormcms ready")
	return app, nil
}

func newApp(cfg *Config, factory *database.BaseDatabaseFactory, o *options) (*App, error) {
	db := factory.GetDB()
	manager := orm.NewManager(db)
	for _, m := range o.models {
		if _, err := manager.Register(m.def); err != nil {
			return nil, pkgerrors.Wrapf(err, "register model %s", m.def.Name)
		}
	}
	if cfg.Models != "" {
		if err := manager.LoadDefinitionsFile(cfg.Models); err != nil {
			return nil, err
		}
	}

	filters := filter.NewRegistry()
	for name, f := range o.filters {
		filters.Register(name, f)
	}
	processors := processor.NewRegistry()
	for name, p := range o.behaviours {
		processors.RegisterBehaviour(name, p)
	}
	for name, p := range o.processors {
		processors.RegisterView(name, p)
	}

	nodes := cms.NewNodeModel(db)
	entryLog := orm.NewEntryLogger(db)
	app := &App{
		Config:   cfg,
		Factory:  factory,
		Manager:  manager,
		Fields:   orm.NewFieldService(manager),
		EntryLog: entryLog,
		Nodes:    nodes,
		Content:  content.NewService(manager, nodes, cfg.BaseURL),
		Text:     cms.NewEntryVariableParser(nodes, manager),
		Texts:    text.NewIO(text.NewStore(db, entryLog), nodes),
	}
	for model, searcher := range o.searchers {
		app.Content.RegisterSearcher(model, searcher)
	}
	app.Services = &widget.Services{
		Manager:    manager,
		Nodes:      nodes,
		Content:    app.Content,
		Filters:    filters,
		Processors: processors,
		Views:      view.NewViews(),
		EntryLog:   app.EntryLog,
		Texts:      app.Texts,
		Translator: o.translator,
		Locales:    cfg.Locales,
	}
	app.Widgets = widget.NewRegistry(app.Services)

	themes := append([]fs.FS{}, o.themes...)
	for _, dir := range cfg.Templates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			themes = append(themes, os.DirFS(dir))
		} else {
			log.WithField("dir", dir).Warn("template directory not found")
		}
	}
	app.Renderer = view.NewRenderer(themes...)

	app.Handler = handler.New(handler.Options{
		Services:      app.Services,
		Widgets:       app.Widgets,
		Renderer:      app.Renderer,
		Health:        factory,
		DefaultLocale: cfg.DefaultLocale,
		BaseScript:    cfg.HTTP.BaseScript,
		Advanced:      cfg.HTTP.Advanced,
		Metrics:       cfg.HTTP.Metrics,
		Layouts:       cfg.Layouts,
		Themes:        cfg.Themes,
		Locales:       cfg.Locales,
		TextUsage:     text.NewUsageFinder(nodes, cfg.HTTP.TextUsageURL),
	})
	return app, nil
}

// Serve runs the HTTP server until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.Config.HTTP.Address,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", server.Addr).Info("http server started")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("http server stopping")
		return server.Shutdown(shutdownCtx)
	}
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.Factory.Close()
}
