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

// Package handler exposes the ORM services and widget rendering over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ormcms/database"
	"github.com/tomoncle/ormcms/orm"
	"github.com/tomoncle/ormcms/text"
	"github.com/tomoncle/ormcms/utils"
	"github.com/tomoncle/ormcms/view"
	"github.com/tomoncle/ormcms/widget"
)

var log = utils.NewLogger("HTTP")

// HealthChecker reports the state of the database.
type HealthChecker interface {
	GetHealthStatus(ctx context.Context) *database.HealthStatus
}

// Options are the dependencies of the handler.
type Options struct {
	Services *widget.Services
	Widgets  *widget.Registry
	Renderer *view.Renderer
	Health   HealthChecker

	DefaultLocale string
	// BaseScript prefixes node routes in generated URLs.
	BaseScript string
	// Advanced enables the property rows reserved for advanced users.
	Advanced bool
	Metrics  bool

	// Layouts and Themes are the choices of the entry node form.
	Layouts []string
	Themes  []string
	// Locales are the locales a node can be limited to.
	Locales   []string
	TextUsage *text.UsageFinder
}

type Handler struct {
	opts   Options
	fields *orm.FieldService
	mux    *http.ServeMux
}

// New returns the handler with all routes registered.
func New(opts Options) *Handler {
	h := &Handler{
		opts:   opts,
		fields: orm.NewFieldService(opts.Services.Manager),
		mux:    http.NewServeMux(),
	}

	h.handle("GET /healthz", h.health)
	h.handle("GET /cms/orm/fields/{kind}/{model}", h.modelFields)
	h.handle("GET /cms/orm/content/{model}/{id}", h.entryContent)
	h.handle("GET /cms/node/{node}/{widget}", h.renderWidget)
	h.handle("GET /cms/node/{node}/{widget}/{args...}", h.renderWidget)
	h.handle("POST /cms/node/{node}/{widget}", h.renderWidget)
	h.handle("POST /cms/node/{node}/{widget}/{args...}", h.renderWidget)
	h.handle("GET /cms/widget/{widget}/properties", h.widgetProperties)
	h.handle("POST /cms/widget/{widget}/properties", h.saveWidgetProperties)
	h.handle("GET /cms/site/{site}/entry", h.entryNodeForm)
	h.handle("GET /cms/site/{site}/entry/{node}", h.entryNodeForm)
	h.handle("POST /cms/site/{site}/entry", h.saveEntryNode)
	h.handle("POST /cms/site/{site}/entry/{node}", h.saveEntryNode)
	if opts.Services.Texts != nil {
		h.handle("GET /cms/widget/{widget}/text", h.textForm)
		h.handle("POST /cms/widget/{widget}/text", h.saveText)
		h.handle("GET /cms/text/{id}/history", h.textHistory)
		h.handle("GET /cms/text/{id}/usage", h.textUsage)
	}
	if opts.Metrics {
		h.mux.Handle("GET /metrics", promhttp.Handler())
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handle registers fn for pattern with request logging and metrics.
func (h *Handler) handle(pattern string, fn http.HandlerFunc) {
	h.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)

		reportRequest(r.Method, pattern, rec.status, start)
		entry := log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request served")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
		return
	}
	status := h.opts.Health.GetHealthStatus(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (h *Handler) locale(r *http.Request) string {
	if locale := r.URL.Query().Get("locale"); locale != "" {
		return locale
	}
	return h.opts.DefaultLocale
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

// writeError answers with the status of err, logging unexpected errors.
func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request error")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
