// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package metrics // import "github.com/drdotnet/agent/metrics"

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/drdotnet/agent/vc"
)

var (
	//go:embed metrics.json
	metricsJSON []byte

	// metricTypes is indexed by MetricID. An empty entry marks an unknown
	// or obsolete ID.
	metricTypes [IDMax]MetricType

	// totals mirror what was handed to the OTel instruments. Counters
	// accumulate, gauges keep the last value.
	totals [IDMax]atomic.Int64

	meter = otel.Meter("github.com/drdotnet/agent",
		metric.WithInstrumentationVersion(vc.Version()))
	counters = map[MetricID]metric.Int64Counter{}
	gauges   = map[MetricID]metric.Int64Gauge{}
)

func init() {
	for _, md := range GetDefinitions() {
		if md.Obsolete {
			continue
		}
		if md.ID <= IDInvalid || md.ID >= IDMax {
			panic(fmt.Sprintf("metric %s has ID %d out of range", md.Name, md.ID))
		}
		metricTypes[md.ID] = md.Type
		switch typ := md.Type; typ {
		case MetricTypeCounter:
			counter, err := meter.Int64Counter(md.Field,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Counter: %v", err)
				continue
			}
			counters[md.ID] = counter
		case MetricTypeGauge:
			gauge, err := meter.Int64Gauge(md.Field,
				metric.WithDescription(md.Description),
				metric.WithUnit(md.Unit))
			if err != nil {
				log.Errorf("Creating Int64Gauge: %v", err)
				continue
			}
			gauges[md.ID] = gauge
		default:
			panic(fmt.Sprintf("Unknown metric type: %v", typ))
		}
	}
}

// AddSlice records a batch of metrics. Counter values are added, gauge
// values replace the previous value. Zero counter values are skipped.
func AddSlice(newMetrics []Metric) {
	ctx := context.Background()
	for _, m := range newMetrics {
		if m.ID <= IDInvalid || m.ID >= IDMax {
			log.Errorf("Metric value %d out of range [%d,%d]- needs investigation",
				m.ID, IDInvalid+1, IDMax-1)
			continue
		}
		switch metricTypes[m.ID] {
		case MetricTypeCounter:
			if m.Value == 0 {
				continue
			}
			totals[m.ID].Add(int64(m.Value))
			if counter, ok := counters[m.ID]; ok {
				counter.Add(ctx, int64(m.Value))
			}
		case MetricTypeGauge:
			totals[m.ID].Store(int64(m.Value))
			if gauge, ok := gauges[m.ID]; ok {
				gauge.Record(ctx, int64(m.Value))
			}
		default:
			log.Warnf("Invalid metric id %d, skipping", m.ID)
		}
	}
}

// Add records a single metric.
func Add(id MetricID, value MetricValue) {
	AddSlice([]Metric{{id, value}})
}

// Snapshot returns the accumulated value of every known metric.
func Snapshot() Summary {
	s := make(Summary, IDMax)
	for id := MetricID(IDInvalid + 1); id < IDMax; id++ {
		if metricTypes[id] == "" {
			continue
		}
		s[id] = MetricValue(totals[id].Load())
	}
	return s
}

// GetDefinitions returns the metric definitions from the embedded metrics.json file.
func GetDefinitions() []MetricDefinition {
	var defs []MetricDefinition

	dec := json.NewDecoder(bytes.NewReader(metricsJSON))
	dec.DisallowUnknownFields()

	err := dec.Decode(&defs)
	if err != nil {
		panic(fmt.Sprintf("extracting definitions from metrics.json: %v", err))
	}
	return defs
}
