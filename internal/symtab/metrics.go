// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symtab

import "github.com/prometheus/client_golang/prometheus"

var (
	// Defines counts entries defined in any dictionary.
	Defines = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "csym",
		Subsystem: "symtab",
		Name:      "defines_total",
		Help:      "number of symbols defined",
	})
	// Lookups counts lookups by outcome: hit, miss, or filtered when the
	// nearest entry with the key did not have the requested kind.
	Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csym",
		Subsystem: "symtab",
		Name:      "lookups_total",
		Help:      "number of symbol lookups by result",
	}, []string{"result"})
	// Removals counts entries unlinked from their buckets, by the operation that removed them.
	Removals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csym",
		Subsystem: "symtab",
		Name:      "removals_total",
		Help:      "number of symbols removed by operation",
	}, []string{"op"})
	// BucketCorruptions counts entries found in a bucket that does not match their hash code.
	BucketCorruptions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "csym",
		Subsystem: "symtab",
		Name:      "bucket_corruptions_total",
		Help:      "number of entries found in the wrong hash bucket",
	})
	// ScopeDepth observes the nesting depth each time a scope is entered.
	ScopeDepth = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "csym",
		Subsystem: "symtab",
		Name:      "scope_depth",
		Help:      "scope nesting depth on scope entry",
		Buckets:   prometheus.LinearBuckets(1, 1, 16),
	})

	lookupHits     = Lookups.WithLabelValues("hit")
	lookupMisses   = Lookups.WithLabelValues("miss")
	lookupFiltered = Lookups.WithLabelValues("filtered")
	removedByKey   = Removals.WithLabelValues("key")
	removedByEntry = Removals.WithLabelValues("entry")
	removedByScope = Removals.WithLabelValues("scope")
)

// Collectors returns every metric the dictionaries update, for registration
// with a prometheus.Registerer.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{Defines, Lookups, Removals, BucketCorruptions, ScopeDepth}
}
