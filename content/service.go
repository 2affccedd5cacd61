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

package content

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

// Service creates content mappers from the orm.detail widgets of the site
// tree and maps query results to Content.
type Service struct {
	manager *orm.Manager
	nodes   *cms.NodeModel
	facade  *Facade
	baseURL string

	mu        sync.RWMutex
	loaded    bool
	mappers   map[string]*GenericOrmMapper
	byWidget  map[string]*GenericOrmMapper
	searchers map[string]SearchableModel
}

// NewService returns a service with its own facade, backed by the service.
func NewService(manager *orm.Manager, nodes *cms.NodeModel, baseURL string) *Service {
	s := &Service{manager: manager, nodes: nodes, baseURL: baseURL}
	s.facade = NewFacade(NewOrmMapperIO(s))
	return s
}

// RegisterSearcher makes the mappers of model delegate their search to
// searcher.
func (s *Service) RegisterSearcher(model string, searcher SearchableModel) {
	if m, err := s.manager.Model(model); err == nil {
		model = m.Name()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchers == nil {
		s.searchers = make(map[string]SearchableModel)
	}
	s.searchers[model] = searcher
	s.mappers, s.byWidget, s.loaded = nil, nil, false
}

func (s *Service) searcher(model string) SearchableModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchers[model]
}

func (s *Service) Facade() *Facade {
	return s.facade
}

func (s *Service) Manager() *orm.Manager {
	return s.manager
}

// CreateContentMappers builds a mapper for every orm.detail widget with a
// model. When a model has several detail widgets, the first primary widget
// wins, otherwise the first widget.
func (s *Service) CreateContentMappers(ctx context.Context) (map[string]*GenericOrmMapper, map[string]*GenericOrmMapper, error) {
	refs, err := s.nodes.NodesForWidget(ctx, DetailWidgetName)
	if err != nil {
		return nil, nil, err
	}

	mappers := make(map[string]*GenericOrmMapper)
	byWidget := make(map[string]*GenericOrmMapper)
	for _, ref := range refs {
		modelName := ref.Widget.WidgetProperties().Get(cms.PropertyModelName)
		if modelName == "" {
			continue
		}
		model, err := s.manager.Model(modelName)
		if err != nil {
			log.WithField("widget", ref.Widget.ID).WithField("model", modelName).Warn("detail widget for unknown model")
			continue
		}

		mapper := NewGenericOrmMapper(model, ref.Node, ref.Widget, s.baseURL)
		mapper.Searcher = s.searcher(model.Name())
		byWidget[ref.Widget.ID] = mapper
		if current, ok := mappers[model.Name()]; ok && (current.IsPrimary() || !mapper.IsPrimary()) {
			continue
		}
		mappers[model.Name()] = mapper
	}
	log.WithField("count", len(mappers)).Debug("content mappers created")
	return mappers, byWidget, nil
}

func (s *Service) load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	mappers, byWidget, err := s.CreateContentMappers(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappers, s.byWidget, s.loaded = mappers, byWidget, true
	return nil
}

// Invalidate drops the cached mappers, to be called when nodes or widgets
// change.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappers, s.byWidget, s.loaded = nil, nil, false
}

// GetContentMapper returns the detail page mapper of a model.
func (s *Service) GetContentMapper(ctx context.Context, modelName string) (Mapper, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if model, err := s.manager.Model(modelName); err == nil {
		modelName = model.Name()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if mapper, ok := s.mappers[modelName]; ok {
		return mapper, nil
	}
	return nil, errors.Wrapf(ErrMapperNotFound, "model %s", modelName)
}

// MapperForWidget returns the mapper of a specific detail widget.
func (s *Service) MapperForWidget(ctx context.Context, widgetID string) (Mapper, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mapper, ok := s.byWidget[widgetID]; ok {
		return mapper, nil
	}
	return nil, errors.Wrapf(ErrMapperNotFound, "widget %s", widgetID)
}

func (s *Service) GetContentMappers(ctx context.Context) (map[string]Mapper, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]Mapper, len(s.mappers))
	for name, mapper := range s.mappers {
		result[name] = mapper
	}
	return result, nil
}

// MappersForModel lists the detail widgets of a model as widget id => node
// name, for the mapper select of the overview form.
func (s *Service) MappersForModel(ctx context.Context, modelName, locale string) (types.Options, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if model, err := s.manager.Model(modelName); err == nil {
		modelName = model.Name()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var options types.Options
	for id, mapper := range s.byWidget {
		if mapper.Model().Name() == modelName {
			options.Add(id, mapper.Node().Name(locale))
		}
	}
	sortOptions(options)
	return options, nil
}

// GetContentForID fetches the entry of model with id in locale and maps it.
// The content is nil when no entry matched.
func (s *Service) GetContentForID(ctx context.Context, model *orm.Model, id interface{}, site, locale string) (*Content, error) {
	entry, err := model.FindByID(ctx, id, locale, 1, "")
	if orm.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return s.GetContentForEntry(ctx, model, entry, site, locale, "", NewOrmMapper(model).ModelFormats())
}

// GetContentForEntry maps a single entry, see GetContentForEntries.
func (s *Service) GetContentForEntry(ctx context.Context, model *orm.Model, entry interface{}, site, locale, mapperID string, formats Formats) (*Content, error) {
	result, err := s.GetContentForEntries(ctx, model, []interface{}{entry}, site, locale, mapperID, formats)
	if err != nil {
		return nil, err
	}
	return result[0], nil
}

// GetContentForEntries maps entries with formats. The URL comes from the
// mapper of widget mapperID, the mapper of the model or none. An empty title
// format uses the title format of the model.
func (s *Service) GetContentForEntries(ctx context.Context, model *orm.Model, entries []interface{}, site, locale, mapperID string, formats Formats) ([]*Content, error) {
	mapper, err := s.mapperFor(ctx, model, mapperID)
	if err != nil {
		return nil, err
	}
	if formats.Title == "" {
		formats.Title = model.DataFormat(orm.FormatTitle)
	}

	formatter := s.manager.Formatter()
	result := make([]*Content, len(entries))
	for i, entry := range entries {
		url, err := mapper.GetURL(ctx, site, locale, entry)
		if err != nil {
			return nil, err
		}
		result[i] = &Content{
			Type:   model.Name(),
			Title:  formatter.Format(entry, formats.Title),
			URL:    url,
			Teaser: formatter.Format(entry, formats.Teaser),
			Image:  formatter.Format(entry, formats.Image),
			Date:   formatter.Format(entry, formats.Date),
			Data:   entry,
		}
	}
	return result, nil
}

func (s *Service) mapperFor(ctx context.Context, model *orm.Model, mapperID string) (Mapper, error) {
	if mapperID != "" {
		mapper, err := s.MapperForWidget(ctx, mapperID)
		if err == nil {
			return mapper, nil
		} else if !errors.Is(err, ErrMapperNotFound) {
			return nil, err
		}
	}
	mapper, err := s.facade.GetContentMapper(ctx, model.Name())
	if errors.Is(err, ErrMapperNotFound) {
		return NewOrmMapper(model), nil
	}
	return mapper, err
}

func sortOptions(options types.Options) {
	sort.SliceStable(options, func(i, j int) bool { return options[i].Label < options[j].Label })
}
