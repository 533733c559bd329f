/*
 * Copyright 2025 Carver Automation Corporation.
 *
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

package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "chemvis"

// Metrics are the server's Prometheus collectors.
type Metrics struct {
	Uploads          *prometheus.CounterVec
	UploadedItems    prometheus.Counter
	UploadDuration   prometheus.Histogram
	WebsocketClients prometheus.Gauge
	Broadcasts       prometheus.Counter
	ReportsRendered  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploads_total",
			Help:      "CSV uploads by result.",
		}, []string{"result"}),
		UploadedItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploaded_items_total",
			Help:      "Equipment rows stored from uploads.",
		}),
		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "upload_duration_seconds",
			Help:      "Time to parse and store an upload.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_clients",
			Help:      "Connected update listeners.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_total",
			Help:      "Change notifications fanned out to websocket clients.",
		}),
		ReportsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reports_rendered_total",
			Help:      "Reports generated.",
		}),
	}

	reg.MustRegister(m.Uploads, m.UploadedItems, m.UploadDuration, m.WebsocketClients, m.Broadcasts, m.ReportsRendered)

	return m
}
