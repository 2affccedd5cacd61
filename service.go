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

package ormcms

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/repository"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

// EntryService manages the entries of a content model. Updates of the
// tracked fields are written to the entry log so outdated values, like an
// old slug, can be redirected.
type EntryService[T any] interface {
	// Model returns the content model of T.
	Model() *orm.Model

	Get(ctx context.Context, id any) (*T, error)

	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	Save(ctx context.Context, entry ...*T) error

	// Update stores entry and logs the changes of the tracked fields.
	Update(ctx context.Context, entry *T) error

	Delete(ctx context.Context, id any) error

	// History returns the logged changes of an entry, newest first.
	History(ctx context.Context, id any) ([]*orm.EntryLog, error)
}

type entryServiceImpl[T any] struct {
	db         *bun.DB
	repo       repository.Repository[T]
	model      *orm.Model
	log        *orm.EntryLogger
	tracked    []string
	reflection *orm.ReflectionHelper
}

// NewEntryService returns the service of the model registered for T. The
// tracked fields default to the unique properties other than the primary
// key.
func NewEntryService[T any](app *App, tracked ...string) (EntryService[T], error) {
	model, err := app.Manager.ModelByType((*T)(nil))
	if err != nil {
		return nil, err
	}
	if len(tracked) == 0 {
		unique, err := app.Fields.GetUniqueFields(model.Name())
		if err != nil {
			return nil, err
		}
		for _, field := range unique.Values() {
			if field != model.PrimaryKey() {
				tracked = append(tracked, field)
			}
		}
	}
	for _, field := range tracked {
		if _, err := model.Field(field); err != nil {
			return nil, err
		}
	}

	db := app.Factory.GetDB()
	return &entryServiceImpl[T]{
		db:         db,
		repo:       repository.NewRepository[T](db),
		model:      model,
		log:        app.EntryLog,
		tracked:    tracked,
		reflection: orm.NewReflectionHelper(),
	}, nil
}

func (s *entryServiceImpl[T]) Model() *orm.Model {
	return s.model
}

func (s *entryServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.repo.Get(ctx, id)
}

func (s *entryServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return s.repo.List(ctx, filter)
}

func (s *entryServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.repo.Page(ctx, page)
}

func (s *entryServiceImpl[T]) Save(ctx context.Context, entry ...*T) error {
	return s.repo.Create(ctx, entry...)
}

func (s *entryServiceImpl[T]) Update(ctx context.Context, entry *T) error {
	id, ok := s.model.ID(entry)
	if !ok {
		return errors.Errorf("%s entry without id", s.model.Name())
	}
	if len(s.tracked) == 0 {
		return s.repo.Update(ctx, entry)
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "load %s %v", s.model.Name(), id)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.WithTx(tx).Update(ctx, entry); err != nil {
			return err
		}
		for _, field := range s.tracked {
			oldValue, _ := s.reflection.GetProperty(current, field)
			newValue, _ := s.reflection.GetProperty(entry, field)
			if reflect.DeepEqual(oldValue, newValue) {
				continue
			}
			if err := s.log.LogChangeWithTx(ctx, tx, s.model.Name(), id, field, oldValue, newValue); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *entryServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.repo.Delete(ctx, id)
}

func (s *entryServiceImpl[T]) History(ctx context.Context, id any) ([]*orm.EntryLog, error) {
	return s.log.History(ctx, s.model.Name(), id)
}
