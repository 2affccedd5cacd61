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
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ormcms/cms"
	"github.com/tomoncle/ormcms/form"
	"github.com/tomoncle/ormcms/text"
)

type textResponse struct {
	Widget  string            `json:"widget"`
	Text    *text.Text        `json:"text,omitempty"`
	Data    form.Data         `json:"data,omitempty"`
	Rows    []form.Row        `json:"rows,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Warning string            `json:"warning,omitempty"`
	// Elsewhere are the names of the other nodes showing the text.
	Elsewhere []string `json:"elsewhere,omitempty"`
}

// loadTextWidget loads a widget which must be a text widget.
func (h *Handler) loadTextWidget(ctx context.Context, id string) (*cms.Node, *cms.Widget, error) {
	node, instance, err := h.loadWidget(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if instance.Name != text.WidgetName {
		return nil, nil, errors.Wrapf(cms.ErrWidgetNotFound, "widget %s is no text widget", id)
	}
	return node, instance, nil
}

func (h *Handler) textComponent() *form.TextComponent {
	c := form.NewTextComponent(h.opts.Services.Texts.Store())
	c.Translator = h.opts.Services.Translator
	return c
}

// elsewhere warns when the text of props is shown by other widgets of the
// site.
func (h *Handler) elsewhere(ctx context.Context, node *cms.Node, props *cms.WidgetProperties, locale string, resp *textResponse) error {
	refs, err := h.opts.Services.Texts.InUseElsewhere(ctx, node, props)
	if err != nil || len(refs) == 0 {
		return err
	}
	seen := make(map[string]bool)
	for _, ref := range refs {
		if !seen[ref.Node.ID] {
			seen[ref.Node.ID] = true
			resp.Elsewhere = append(resp.Elsewhere, ref.Node.Name(locale))
		}
	}
	resp.Warning = h.translate("warning.text.used.multiple")
	return nil
}

func (h *Handler) translate(key string) string {
	if h.opts.Services.Translator == nil {
		return key
	}
	return h.opts.Services.Translator.Translate(key, nil)
}

// textForm returns the text form of a text widget.
func (h *Handler) textForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, instance, err := h.loadTextWidget(ctx, r.PathValue("widget"))
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	locale := h.locale(r)
	props := instance.WidgetProperties()
	t, err := h.opts.Services.Texts.GetText(ctx, props, locale)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	c := h.textComponent()
	rows, err := c.Rows(ctx, t, locale)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := textResponse{Widget: instance.ID, Text: t, Data: c.ParseSetData(t), Rows: rows}
	if err := h.elsewhere(ctx, node, props, locale, &resp); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// saveText stores the submitted text of a text widget in the requested
// locale and binds it to the widget.
func (h *Handler) saveText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	node, instance, err := h.loadTextWidget(ctx, r.PathValue("widget"))
	if err != nil {
		h.writeLoadError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	locale := h.locale(r)
	props := instance.WidgetProperties()

	t, sub, err := h.textComponent().ParseGetData(ctx, form.FromValues(r.PostForm), locale, text.TextID(props))
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, textResponse{Widget: instance.ID, Errors: verr.Errors})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := h.opts.Services.Texts.SetText(ctx, props, []string{locale}, t, sub); err != nil {
		if errors.Is(err, text.ErrVersionConflict) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.opts.Services.Nodes.SaveWidget(ctx, instance); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.WithFields(logrus.Fields{"widget": instance.ID, "text": props.Get(text.PropertyText), "locale": locale}).Info("text saved")

	saved, err := h.opts.Services.Texts.GetText(ctx, props, locale)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := textResponse{Widget: instance.ID, Text: saved}
	if err := h.elsewhere(ctx, node, props, locale, &resp); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func textID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid text id %q", r.PathValue("id"))
	}
	return id, nil
}

// textHistory lists the versions of a text, newest first.
func (h *Handler) textHistory(w http.ResponseWriter, r *http.Request) {
	id, err := textID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	history, err := h.opts.Services.Texts.Store().History(r.Context(), id, h.locale(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// textUsage lists the nodes showing a text.
func (h *Handler) textUsage(w http.ResponseWriter, r *http.Request) {
	id, err := textID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	finder := h.opts.TextUsage
	if finder == nil {
		finder = text.NewUsageFinder(h.opts.Services.Nodes, "")
	}
	usages, err := finder.Find(r.Context(), id, h.locale(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if usages == nil {
		usages = []text.Usage{}
	}
	writeJSON(w, http.StatusOK, usages)
}
