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

package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var (
	metricsOnce     sync.Once
	queryDuration   *prometheus.HistogramVec
	queryErrorCount *prometheus.CounterVec
)

func initQueryMetrics() {
	metricsOnce.Do(func() {
		queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ormcms",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dialect", "operation"})
		queryErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ormcms",
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Number of failed database queries by operation.",
		}, []string{"dialect", "operation"})
		queryDuration = registerCollector(queryDuration).(*prometheus.HistogramVec)
		queryErrorCount = registerCollector(queryErrorCount).(*prometheus.CounterVec)
	})
}

func registerCollector(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		GetLogger().Warn("Failed to register metrics collector", "error", err)
	}
	return c
}

// MetricsHook records query durations and failures in prometheus.
type MetricsHook struct {
	dialect string
}

var _ bun.QueryHook = (*MetricsHook)(nil)

func NewMetricsHook(dialect string) *MetricsHook {
	initQueryMetrics()
	return &MetricsHook{dialect: dialect}
}

func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := event.Operation()
	queryDuration.WithLabelValues(h.dialect, op).Observe(time.Since(event.StartTime).Seconds())
	if event.Err != nil && !IsNotFound(event.Err) {
		queryErrorCount.WithLabelValues(h.dialect, op).Inc()
	}
}
