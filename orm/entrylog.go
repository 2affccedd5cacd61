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
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/repository"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

// EntryLog records a changed field value of an entry.
type EntryLog struct {
	bun.BaseModel `bun:"table:cms_entry_log,alias:el"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Model     string    `bun:"model,notnull" json:"model"`
	EntryID   string    `bun:"entry_id,notnull" json:"entryId"`
	FieldName string    `bun:"field_name,notnull" json:"fieldName"`
	OldValue  string    `bun:"old_value" json:"oldValue"`
	NewValue  string    `bun:"new_value" json:"newValue"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// EntryLogModel registers the entry log table.
func EntryLogModel() database.SQLModel {
	return database.NewModelAdapter((*EntryLog)(nil), 0)
}

// EntryLogMigration indexes the lookup of old values.
func EntryLogMigration() database.MigrationItem {
	return database.MigrationItem{
		Version:     "20250101000200",
		Name:        "entry_log_old_value_index",
		Description: "Index cms_entry_log on model, field_name and old_value",
		Up:          database.CreateIndex((*EntryLog)(nil), "cms_entry_log_old_value_idx", false, "model", "field_name", "old_value"),
	}
}

// EntryLogger writes and queries the entry log.
type EntryLogger struct {
	repo repository.Repository[EntryLog]
}

func NewEntryLogger(db *bun.DB) *EntryLogger {
	return &EntryLogger{repo: repository.NewRepository[EntryLog](db)}
}

// LogChange records a field change. Equal values are not logged.
func (l *EntryLogger) LogChange(ctx context.Context, model string, entryID interface{}, field string, oldValue, newValue interface{}) error {
	return l.LogChangeWithTx(ctx, nil, model, entryID, field, oldValue, newValue)
}

// LogChangeWithTx is LogChange within tx; a nil tx uses the database.
func (l *EntryLogger) LogChangeWithTx(ctx context.Context, tx bun.IDB, model string, entryID interface{}, field string, oldValue, newValue interface{}) error {
	oldText, newText := fmt.Sprint(valueOrEmpty(oldValue)), fmt.Sprint(valueOrEmpty(newValue))
	if oldText == newText {
		return nil
	}
	entry := &EntryLog{
		Model:     model,
		EntryID:   fmt.Sprint(entryID),
		FieldName: field,
		OldValue:  oldText,
		NewValue:  newText,
		CreatedAt: time.Now(),
	}
	repo := l.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	err := repo.Create(ctx, entry)
	return errors.Wrapf(err, "log change of %s.%s", model, field)
}

// FindCurrentValue looks up an old value of a field, as used by outdated
// slugs, and returns the entry id and the current value of that entry's
// field. found is false when the value was never changed.
func (l *EntryLogger) FindCurrentValue(ctx context.Context, model, field, oldValue string) (entryID string, current string, found bool, err error) {
	changed, err := l.latest(ctx, types.NewQueryFilter("model = ? AND field_name = ? AND old_value = ?", model, field, oldValue))
	if err != nil || changed == nil {
		return "", "", false, err
	}

	latest, err := l.latest(ctx, types.NewQueryFilter("model = ? AND entry_id = ? AND field_name = ?", model, changed.EntryID, field))
	if err != nil || latest == nil {
		return "", "", false, err
	}
	if latest.NewValue == oldValue {
		return "", "", false, nil
	}
	return changed.EntryID, latest.NewValue, true, nil
}

// History returns the changes of an entry, newest first.
func (l *EntryLogger) History(ctx context.Context, model string, entryID interface{}) ([]*EntryLog, error) {
	request := types.NewPageRequest(1, 100, types.NewQueryFilter("model = ? AND entry_id = ?", model, fmt.Sprint(entryID)), []string{"id DESC"})
	page, err := l.repo.Page(ctx, request)
	if err != nil {
		return nil, errors.Wrap(err, "entry history")
	}
	return page.Items, nil
}

func (l *EntryLogger) latest(ctx context.Context, filter *types.QueryFilter) (*EntryLog, error) {
	page, err := l.repo.Page(ctx, types.NewPageRequest(1, 1, filter, []string{"id DESC"}))
	if err != nil {
		return nil, errors.Wrap(err, "find entry log")
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return page.Items[0], nil
}

func valueOrEmpty(v interface{}) interface{} {
	if isNil(v) {
		return ""
	}
	return v
}
