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
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	reqCnt      *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
)

var reqLabels = []string{"method", "route", "code"}

func initRequestMetrics() {
	metricsOnce.Do(func() {
		reqCnt = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ormcms",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Counter of requests received.",
		}, reqLabels)).(*prometheus.CounterVec)
		reqDuration = register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ormcms",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Bucketed histogram of processing time (s) of requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, reqLabels)).(*prometheus.HistogramVec)
	})
}

func register(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		log.WithError(err).Warn("failed to register http metrics")
	}
	return c
}

func reportRequest(method, route string, status int, start time.Time) {
	initRequestMetrics()
	code := strconv.Itoa(status)
	reqCnt.WithLabelValues(method, route, code).Inc()
	reqDuration.WithLabelValues(method, route, code).Observe(time.Since(start).Seconds())
}
