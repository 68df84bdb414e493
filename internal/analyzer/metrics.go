// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"github.com/google/csymtab/internal/resolver"
	"github.com/google/csymtab/internal/symtab"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
)

var (
	// AnalysisDurations observes the time taken to resolve one unit.
	AnalysisDurations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "csym",
		Subsystem: "analyzer",
		Name:      "analysis_duration_seconds",
		Help:      "time spent resolving a translation unit",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
	// Declarations counts the declarations found, by kind.
	Declarations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csym",
		Subsystem: "analyzer",
		Name:      "declarations_total",
		Help:      "number of declarations found by kind",
	}, []string{"kind"})
	// References counts identifier uses, by whether they resolved.
	References = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csym",
		Subsystem: "analyzer",
		Name:      "references_total",
		Help:      "number of identifier references by result",
	}, []string{"result"})
	// Tokens counts the tokens read from all units.
	Tokens = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "csym",
		Subsystem: "analyzer",
		Name:      "tokens_total",
		Help:      "number of tokens read",
	})

	expvarDescs = map[string]*prometheus.Desc{
		"source_loads_total":       prometheus.NewDesc("csym_analyzer_source_loads_total", "number of successful source analyses", []string{"unit"}, nil),
		"source_unloads_total":     prometheus.NewDesc("csym_analyzer_source_unloads_total", "number of units unloaded", []string{"unit"}, nil),
		"source_load_errors_total": prometheus.NewDesc("csym_analyzer_source_load_errors_total", "number of failed source analyses", []string{"unit"}, nil),
		"source_skips_total":       prometheus.NewDesc("csym_analyzer_source_skips_total", "number of analyses skipped for unchanged content", []string{"unit"}, nil),
	}
)

// record adds the counts from a resolved unit to the metrics.
func (a *Analyzer) record(u *resolver.Unit) {
	for kind, n := range u.Count() {
		Declarations.WithLabelValues(kind.String()).Add(float64(n))
	}
	unresolved := len(u.Unresolved)
	References.WithLabelValues("resolved").Add(float64(len(u.Refs) - unresolved))
	References.WithLabelValues("unresolved").Add(float64(unresolved))
	Tokens.Add(float64(u.Tokens))
}

// registerCollectors registers the dictionary and analyzer metrics, the
// expvar counters, and the build information with the analyzer's registerer.
// Collectors already registered there by another Analyzer are kept.
func (a *Analyzer) registerCollectors() error {
	if a.buildInfo.Version != "" {
		version.Branch = a.buildInfo.Branch
		version.Version = a.buildInfo.Version
		version.Revision = a.buildInfo.Revision
	}
	collectors := append([]prometheus.Collector{
		AnalysisDurations,
		Declarations,
		References,
		Tokens,
		prometheus.NewExpvarCollector(expvarDescs),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "csym",
			Subsystem: "analyzer",
			Name:      "units",
			Help:      "number of units currently loaded",
		}, func() float64 {
			a.resultsMu.RLock()
			defer a.resultsMu.RUnlock()
			return float64(len(a.results))
		}),
		version.NewCollector("csym"),
	}, symtab.Collectors()...)
	for _, c := range collectors {
		if err := a.reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
