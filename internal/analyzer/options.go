// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/trace"
)

// Option configures a new Analyzer.
type Option func(*Analyzer) error

// BucketCount sets the number of hash buckets in each unit's dictionary.
func BucketCount(n int) Option {
	return func(a *Analyzer) error {
		a.bucketCount = n
		return nil
	}
}

// MaxScopes sets the deepest scope nesting each unit's dictionary allows.
func MaxScopes(n int) Option {
	return func(a *Analyzer) error {
		a.maxScopes = n
		return nil
	}
}

// InternCapacity bounds the identifier intern pool shared by all units.  Zero means no limit.
func InternCapacity(n int) Option {
	return func(a *Analyzer) error {
		if n < 0 {
			return errors.Errorf("intern capacity %d is negative", n)
		}
		a.internCapacity = n
		return nil
	}
}

// Concurrency sets how many units are analyzed at once.
func Concurrency(n int) Option {
	return func(a *Analyzer) error {
		if n < 1 {
			return errors.Errorf("concurrency %d must be at least 1", n)
		}
		a.concurrency = n
		return nil
	}
}

// IgnorePatterns skips sources whose base name or path relative to the
// source directory matches one of the glob patterns.
func IgnorePatterns(patterns ...string) Option {
	return func(a *Analyzer) error {
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return errors.Wrapf(err, "bad ignore pattern %q", p)
			}
			a.ignore = append(a.ignore, g)
		}
		return nil
	}
}

// DumpScopes instructs the Analyzer to log the contents of each scope as it is closed.
func DumpScopes() Option {
	return func(a *Analyzer) error {
		a.dumpScopes = true
		return nil
	}
}

// ErrorsAbort makes analysis errors fail the load instead of being logged.
func ErrorsAbort() Option {
	return func(a *Analyzer) error {
		a.errorsAbort = true
		return nil
	}
}

// PrometheusRegisterer passes in a registry for setting up exported metrics.
// If it is also a prometheus.Gatherer, WriteMetrics reads from it.
func PrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(a *Analyzer) error {
		a.reg = reg
		return nil
	}
}

// SetBuildInfo records the build information exported as the csym_build_info metric.
func SetBuildInfo(info BuildInfo) Option {
	return func(a *Analyzer) error {
		a.buildInfo = info
		return nil
	}
}

// JaegerReporter creates a new jaeger reporter that sends analysis spans to the given Jaeger endpoint address.
func JaegerReporter(endpoint string) Option {
	return func(a *Analyzer) error {
		je, err := jaeger.NewExporter(jaeger.Options{
			CollectorEndpoint: endpoint,
			Process: jaeger.Process{
				ServiceName: "csym",
			},
		})
		if err != nil {
			return err
		}
		trace.RegisterExporter(je)
		return nil
	}
}
