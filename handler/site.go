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
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/form"
)

type entryNodeResponse struct {
	Node   *cms.Node         `json:"node,omitempty"`
	Data   form.Data         `json:"data,omitempty"`
	Rows   []form.Row        `json:"rows,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (h *Handler) entryNodeComponent() *form.EntryNodeComponent {
	c := form.NewEntryNodeComponent(h.opts.Services.Manager)
	c.Layouts = optionList(h.opts.Layouts)
	c.Themes = optionList(h.opts.Themes)
	c.Locales = optionList(h.opts.Locales)
	c.Translator = h.opts.Services.Translator
	return c
}

// loadEntryNode returns the entry node of the request, or a new one below
// the parent query parameter or the site.
func (h *Handler) loadEntryNode(ctx context.Context, r *http.Request) (*cms.Node, bool, error) {
	nodes := h.opts.Services.Nodes
	site, err := nodes.GetNode(ctx, r.PathValue("site"))
	if err != nil {
		return nil, false, err
	}
	if !site.IsRoot() {
		return nil, false, errors.Wrapf(cms.ErrNodeNotFound, "site %s", site.ID)
	}

	if id := r.PathValue("node"); id != "" {
		node, err := nodes.GetNode(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if node.Type != cms.NodeTypeEntry || node.RootNodeID() != site.ID {
			return nil, false, errors.Wrapf(cms.ErrNodeNotFound, "entry node %s of site %s", id, site.ID)
		}
		return node, false, nil
	}

	parent := site
	if id := r.URL.Query().Get("parent"); id != "" {
		if parent, err = nodes.GetNode(ctx, id); err != nil {
			return nil, false, err
		}
		if parent.RootNodeID() != site.ID {
			return nil, false, errors.Wrapf(cms.ErrNodeNotFound, "parent %s of site %s", id, site.ID)
		}
	}
	return cms.NewNode(cms.NodeTypeEntry, parent), true, nil
}

// entryNodeForm returns the form of a new or existing entry node.
func (h *Handler) entryNodeForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, _, err := h.loadEntryNode(ctx, r)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	locale := h.locale(r)
	c := h.entryNodeComponent()
	rows, err := c.Rows(ctx, node, locale)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entryNodeResponse{Data: c.ParseSetData(node, locale), Rows: rows})
}

// saveEntryNode validates the submitted form and stores the entry node.
func (h *Handler) saveEntryNode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, created, err := h.loadEntryNode(ctx, r)
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	locale := h.locale(r)

	err = h.entryNodeComponent().ParseGetData(ctx, form.FromValues(r.PostForm), node, locale)
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, entryNodeResponse{Errors: verr.Errors})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.opts.Services.Nodes.SaveNode(ctx, node); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.WithFields(logrus.Fields{"node": node.ID, "model": node.EntryModel, "entry": node.EntryID}).Info("entry node saved")

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, entryNodeResponse{Node: node})
}
