// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package metrics counts what the agent does: activations, dispatched and
dropped events, handler failures, name resolution and stack snapshot
outcomes. Every metric is declared in metrics.json and forwarded to an
OpenTelemetry meter.

	metrics
	├── agentmetrics/   // goroutines, heap and CPU time of the agent itself
	├── genids/         // generates ids.go from metrics.json
	├── metrics.go      // Add(), AddSlice() and Snapshot()
	└── types.go        // Metric, MetricID, MetricValue, MetricDefinition
*/
package metrics // import "github.com/drdotnet/agent/metrics"
