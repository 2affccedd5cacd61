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
package text

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/repository"
	"github.com/tomoncle/ormcms/types"
	"github.com/uptrace/bun"
)

// Text formats.
const (
	FormatHTML  = "html"
	FormatPlain = "plain"
)

var ErrVersionConflict = errors.New("text was changed by someone else")

// Text is a text in one locale.
type Text struct {
	bun.BaseModel `bun:"table:cms_texts,alias:text"`

	ID        int64     `bun:"id,pk" json:"id"`
	Locale    string    `bun:"locale,pk" json:"locale"`
	Name      string    `bun:"name" json:"name"`
	Format    string    `bun:"format" json:"format"`
	Title     string    `bun:"title" json:"title,omitempty"`
	Body      string    `bun:"body,type:text" json:"body"`
	Image     string    `bun:"image" json:"image,omitempty"`
	Version   int       `bun:"version,notnull" json:"version"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// IsHTML reports whether the body is HTML rather than plain text.
func (t *Text) IsHTML() bool {
	return t.Format == "" || t.Format == FormatHTML
}

// Revision is the state of a text after a save.
type Revision struct {
	bun.BaseModel `bun:"table:cms_text_revisions,alias:text_revision"`

	ID        int64     `bun:"id,pk,autoincrement" json:"-"`
	TextID    int64     `bun:"text_id,notnull" json:"textId"`
	Locale    string    `bun:"locale,notnull" json:"locale"`
	Version   int       `bun:"version,notnull" json:"version"`
	Name      string    `bun:"name" json:"name"`
	Format    string    `bun:"format" json:"format"`
	Title     string    `bun:"title" json:"title,omitempty"`
	Body      string    `bun:"body,type:text" json:"body"`
	Image     string    `bun:"image" json:"image,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// Text returns the text as it was at the revision.
func (r *Revision) Text() *Text {
	return &Text{
		ID:        r.TextID,
		Locale:    r.Locale,
		Name:      r.Name,
		Format:    r.Format,
		Title:     r.Title,
		Body:      r.Body,
		Image:     r.Image,
		Version:   r.Version,
		UpdatedAt: r.CreatedAt,
	}
}

func revisionOf(t *Text) *Revision {
	return &Revision{
		TextID:    t.ID,
		Locale:    t.Locale,
		Version:   t.Version,
		Name:      t.Name,
		Format:    t.Format,
		Title:     t.Title,
		Body:      t.Body,
		Image:     t.Image,
		CreatedAt: t.UpdatedAt,
	}
}

// Models returns the tables of the text store.
func Models() []database.SQLModel {
	return []database.SQLModel{
		database.NewModelAdapter((*Text)(nil), 0),
		database.NewModelAdapter((*Revision)(nil), 0),
	}
}

// Migrations returns the indexes of the text store.
func Migrations() []database.MigrationItem {
	return []database.MigrationItem{{
		Version:     "20250101000300",
		Name:        "cms_text_revisions_index",
		Description: "Index cms_text_revisions on text_id, locale and version",
		Up:          database.CreateIndex((*Revision)(nil), "cms_text_revisions_text_idx", false, "text_id", "locale", "version"),
	}}
}

// Store reads and writes texts.
type Store struct {
	db        *bun.DB
	texts     repository.Repository[Text]
	revisions repository.Repository[Revision]
	formatter *orm.EntryFormatter
	entries   *orm.EntryLogger
}

// NewStore returns a store on db. Field changes are recorded in entries
// under the model EntryModel when it is not nil.
func NewStore(db *bun.DB, entries *orm.EntryLogger) *Store {
	return &Store{
		db:        db,
		texts:     repository.NewRepository[Text](db),
		revisions: repository.NewRepository[Revision](db),
		formatter: orm.NewEntryFormatter(),
		entries:   entries,
	}
}

// EntryModel is the model name of texts in the entry log.
const EntryModel = "Text"

// EntryID is the entry log id of text id in locale.
func EntryID(id int64, locale string) string {
	return strconv.FormatInt(id, 10) + "/" + locale
}

// Get returns text id in locale. A text without a row for locale comes back
// empty with the id and current version of the text, ready to be saved.
func (s *Store) Get(ctx context.Context, id int64, locale string) (*Text, error) {
	empty := &Text{ID: id, Locale: locale, Format: FormatHTML}
	if id == 0 {
		return empty, nil
	}
	text, err := s.texts.FindOne(ctx, "id = ? AND locale = ?", id, locale)
	if err == nil {
		return text, nil
	}
	if !database.IsNotFound(err) {
		return nil, errors.Wrapf(err, "get text %d", id)
	}
	if empty.Version, err = currentVersion(ctx, s.db, id); err != nil {
		return nil, err
	}
	return empty, nil
}

// Save stores text in every locale, the locale of text when none are given.
// A new text gets the next free id. Unless its version is 0, the text must
// be at the current version of the stored text or ErrVersionConflict is
// returned. On success text holds the new version.
func (s *Store) Save(ctx context.Context, text *Text, locales ...string) error {
	if len(locales) == 0 {
		locales = []string{text.Locale}
	}
	if text.Format == "" {
		text.Format = FormatHTML
	}
	text.Name = s.name(text)

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current := 0
		if text.ID == 0 {
			var last int64
			err := tx.NewSelect().Model((*Text)(nil)).ColumnExpr("COALESCE(MAX(?), 0)", bun.Ident("id")).Scan(ctx, &last)
			if err != nil {
				return errors.Wrap(err, "next text id")
			}
			text.ID = last + 1
		} else {
			var err error
			if current, err = currentVersion(ctx, tx, text.ID); err != nil {
				return err
			}
		}
		if text.Version != 0 && text.Version != current {
			return errors.Wrapf(ErrVersionConflict, "text %d is at version %d, not %d", text.ID, current, text.Version)
		}

		text.Version = current + 1
		text.UpdatedAt = time.Now()
		texts, revisions := s.texts.WithTx(tx), s.revisions.WithTx(tx)
		for _, locale := range locales {
			text.Locale = locale
			if err := s.logChanges(ctx, tx, text); err != nil {
				return err
			}
			if err := texts.Save(ctx, text); err != nil {
				return err
			}
			if err := revisions.Create(ctx, revisionOf(text)); err != nil {
				return err
			}
		}
		// the version is shared by all locales of the text
		if _, err := tx.NewUpdate().Model((*Text)(nil)).Set("version = ?", text.Version).Where("id = ?", text.ID).Exec(ctx); err != nil {
			return errors.Wrapf(err, "update version of text %d", text.ID)
		}
		log.WithField("text", text.ID).WithField("version", text.Version).WithField("locales", locales).Debug("text saved")
		return nil
	})
}

// logChanges records the fields of text that differ from the stored row.
func (s *Store) logChanges(ctx context.Context, tx bun.IDB, text *Text) error {
	if s.entries == nil {
		return nil
	}
	old, err := s.texts.WithTx(tx).FindOne(ctx, "id = ? AND locale = ?", text.ID, text.Locale)
	if database.IsNotFound(err) {
		old = &Text{}
	} else if err != nil {
		return err
	}
	id := EntryID(text.ID, text.Locale)
	for _, change := range [][3]string{
		{"title", old.Title, text.Title},
		{"body", old.Body, text.Body},
		{"format", old.Format, text.Format},
		{"image", old.Image, text.Image},
	} {
		if err := s.entries.LogChangeWithTx(ctx, tx, EntryModel, id, change[0], change[1], change[2]); err != nil {
			return err
		}
	}
	return nil
}

func currentVersion(ctx context.Context, db bun.IDB, id int64) (int, error) {
	var version int
	err := db.NewSelect().Model((*Text)(nil)).ColumnExpr("COALESCE(MAX(?), 0)", bun.Ident("version")).Where("id = ?", id).Scan(ctx, &version)
	return version, errors.Wrapf(err, "version of text %d", id)
}

// name derives the name shown in the text options from the title, the body
// without tags, or the image.
func (s *Store) name(text *Text) string {
	switch {
	case text.Title != "":
		return text.Title
	case text.Body != "":
		if name := s.formatter.Format(text, "{body|strip_tags|truncate:30}"); name != "" {
			return name
		}
		return s.formatter.Format(text, "{body|truncate:30}")
	case text.Image != "":
		return text.Image
	}
	return "Text"
}

// Options lists the texts of locale as id => name, ordered by name.
func (s *Store) Options(ctx context.Context, locale string) (types.Options, error) {
	texts, err := s.texts.List(ctx, types.NewQueryFilter("locale = ?", locale), "name ASC", "id ASC")
	if err != nil {
		return nil, err
	}
	options := make(types.Options, 0, len(texts))
	for _, text := range texts {
		options.Add(strconv.FormatInt(text.ID, 10), text.Name)
	}
	return options, nil
}

// History returns the revisions of a text in locale, newest first.
func (s *Store) History(ctx context.Context, id int64, locale string) ([]*Revision, error) {
	return s.revisions.List(ctx, types.NewQueryFilter("text_id = ? AND locale = ?", id, locale), "version DESC", "id DESC")
}

// Revision returns a text in locale as it was at version, nil when there is
// no such revision.
func (s *Store) Revision(ctx context.Context, id int64, version int, locale string) (*Revision, error) {
	revision, err := s.revisions.FindOne(ctx, "text_id = ? AND locale = ? AND version = ?", id, locale, version)
	if database.IsNotFound(err) {
		return nil, nil
	}
	return revision, err
}

// Delete removes a text in all locales. Its revisions are kept.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.texts.DeleteWhere(ctx, types.NewQueryFilter("id = ?", id))
	return err
}
