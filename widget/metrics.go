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

package widget

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce    sync.Once
	renderDuration *prometheus.HistogramVec
	renderErrors   *prometheus.CounterVec
)

func initRenderMetrics() {
	metricsOnce.Do(func() {
		renderDuration = register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ormcms",
			Subsystem: "widget",
			Name:      "render_duration_seconds",
			Help:      "Duration of widget renders by widget and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"widget", "status"})).(*prometheus.HistogramVec)
		renderErrors = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ormcms",
			Subsystem: "widget",
			Name:      "render_errors_total",
			Help:      "Number of failed widget renders.",
		}, []string{"widget"})).(*prometheus.CounterVec)
	})
}

func register(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		log.WithError(err).Warn("failed to register widget metrics")
	}
	return c
}
