// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package timeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type managerMetrics struct {
	active         prometheus.Gauge
	created        prometheus.Counter
	removed        prometheus.Counter
	reportFailures prometheus.Counter
}

func newManagerMetrics(reg *prometheus.Registry) *managerMetrics {
	factory := promauto.With(reg)
	return &managerMetrics{
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_collectors_active",
			Help: "Number of application collectors currently registered.",
		}),
		created: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeline_collectors_created_total",
			Help: "Total number of application collectors registered.",
		}),
		removed: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeline_collectors_removed_total",
			Help: "Total number of application collectors removed.",
		}),
		reportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "timeline_collector_report_failures_total",
			Help: "Total number of failed coordinator reports.",
		}),
	}
}
