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
)

// MapperIO provides mappers from a backing store.
type MapperIO interface {
	// GetContentMapper returns nil when the store has no mapper for type.
	GetContentMapper(ctx context.Context, typ string) (Mapper, error)
	GetContentMappers(ctx context.Context) (map[string]Mapper, error)
}

// Facade resolves content mappers by type. Registered mappers take
// precedence over the mappers of the IO backends.
type Facade struct {
	mu      sync.RWMutex
	mappers map[string]Mapper
	ios     []MapperIO
}

func NewFacade(ios ...MapperIO) *Facade {
	return &Facade{mappers: make(map[string]Mapper), ios: ios}
}

// AddIO appends a mapper backend.
func (f *Facade) AddIO(io MapperIO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ios = append(f.ios, io)
}

func (f *Facade) Register(typ string, mapper Mapper) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappers[typ] = mapper
}

// GetContentMapper returns the mapper of typ or ErrMapperNotFound.
func (f *Facade) GetContentMapper(ctx context.Context, typ string) (Mapper, error) {
	f.mu.RLock()
	mapper, ok := f.mappers[typ]
	ios := f.ios
	f.mu.RUnlock()
	if ok {
		return mapper, nil
	}

	for _, io := range ios {
		mapper, err := io.GetContentMapper(ctx, typ)
		if err != nil {
			return nil, err
		}
		if mapper != nil {
			return mapper, nil
		}
	}
	return nil, errors.Wrapf(ErrMapperNotFound, "type %s", typ)
}

// GetContentMappers returns all mappers by type.
func (f *Facade) GetContentMappers(ctx context.Context) (map[string]Mapper, error) {
	f.mu.RLock()
	ios := f.ios
	result := make(map[string]Mapper, len(f.mappers))
	for typ, mapper := range f.mappers {
		result[typ] = mapper
	}
	f.mu.RUnlock()

	for _, io := range ios {
		mappers, err := io.GetContentMappers(ctx)
		if err != nil {
			return nil, err
		}
		for typ, mapper := range mappers {
			if _, ok := result[typ]; !ok {
				result[typ] = mapper
			}
		}
	}
	return result, nil
}

// Types returns the sorted types with a mapper.
func (f *Facade) Types(ctx context.Context) ([]string, error) {
	mappers, err := f.GetContentMappers(ctx)
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(mappers))
	for typ := range mappers {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types, nil
}

// GetContent maps data of typ.
func (f *Facade) GetContent(ctx context.Context, typ, site, locale string, data interface{}) (*Content, error) {
	mapper, err := f.GetContentMapper(ctx, typ)
	if err != nil {
		return nil, err
	}
	return mapper.GetContent(ctx, site, locale, data)
}

// OrmMapperIO serves the mappers created by a Service from the detail
// widgets of the site tree.
type OrmMapperIO struct {
	service *Service
}

func NewOrmMapperIO(service *Service) *OrmMapperIO {
	return &OrmMapperIO{service: service}
}

func (io *OrmMapperIO) GetContentMapper(ctx context.Context, typ string) (Mapper, error) {
	mapper, err := io.service.GetContentMapper(ctx, typ)
	if errors.Is(err, ErrMapperNotFound) {
		return nil, nil
	}
	return mapper, err
}

func (io *OrmMapperIO) GetContentMappers(ctx context.Context) (map[string]Mapper, error) {
	return io.service.GetContentMappers(ctx)
}
