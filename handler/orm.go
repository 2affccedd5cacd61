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

package handler

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/types"
)

// modelFields lists field options of a model. The kind is select, order,
// unique or relation; order fields honour ?depth= (default 1).
func (h *Handler) modelFields(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	var (
		fields types.Options
		err    error
	)
	switch r.PathValue("kind") {
	case "select":
		fields, err = h.fields.GetFields(model, false, false, 1)
	case "order":
		depth := 1
		if d, perr := strconv.Atoi(r.URL.Query().Get("depth")); perr == nil && d >= 0 {
			depth = d
		}
		fields, err = h.fields.GetFields(model, true, false, depth)
	case "unique":
		fields, err = h.fields.GetUniqueFields(model)
	case "relation":
		fields, err = h.fields.GetRelationFields(model)
	default:
		http.NotFound(w, r)
		return
	}
	if errors.Is(err, orm.ErrModelNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if fields == nil {
		fields = types.Options{}
	}
	writeJSON(w, http.StatusOK, map[string]types.Options{"fields": fields})
}

// entryContent returns the generic content of an entry.
func (h *Handler) entryContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	model, err := h.opts.Services.Manager.Model(r.PathValue("model"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	c, err := h.opts.Services.Content.GetContentForID(ctx, model, r.PathValue("id"), r.URL.Query().Get("site"), h.locale(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, errors.Errorf("%s %s not found", model.Name(), r.PathValue("id")))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"type":   c.Type,
		"title":  c.Title,
		"teaser": c.Teaser,
		"image":  c.Image,
		"date":   c.Date,
		"url":    c.URL,
	})
}
