// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Command csym resolves the declarations and identifier uses in a tree of C
// and C++ sources and reports what it found.
package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/google/csymtab/internal/analyzer"
	"github.com/google/csymtab/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opencensus.io/trace"
	"go.opencensus.io/zpages"
)

var (
	sources     = flag.String("sources", "", "Source file, or directory searched recursively for C and C++ sources.")
	configFile  = flag.String("config", "", "TOML configuration file; flags given on the command line override it.")
	bucketCount = flag.Int("bucket_count", analyzer.DefaultBucketCount, "Number of hash buckets in each unit's symbol dictionary.")
	maxScopes   = flag.Int("max_scopes", analyzer.DefaultMaxScopes, "Deepest scope nesting allowed in a unit.")
	concurrency = flag.Int("concurrency", 0, "Number of units analyzed at once.  0 means one per CPU.")
	errorsAbort = flag.Bool("errors_abort", false, "Stop loading sources at the first unit with errors.")

	version = flag.Bool("version", false, "Print csym version information.")

	// Debugging flags.
	dumpScopes  = flag.Bool("dump_scopes", false, "Dump the contents of each scope as it closes (to INFO log).")
	dumpMetrics = flag.Bool("dump_metrics", false, "Print the metrics in Prometheus text format after the report.")

	// Watch mode flags.
	watch        = flag.Bool("watch", false, "Keep running, reanalyzing sources as they change, and serve status over HTTP.")
	pollInterval = flag.Duration("poll_interval", time.Second, "Interval between polls of the source tree in watch mode; 0 relies on fsnotify alone.")
	port         = flag.String("port", "3904", "HTTP port to listen on in watch mode.")
	address      = flag.String("address", "", "Host or IP address on which to bind HTTP listener")

	// Tracing.
	jaegerEndpoint    = flag.String("jaeger_endpoint", "", "If set, collector endpoint URL of jaeger thrift service")
	traceSamplePeriod = flag.Int("trace_sample_period", 0, "Sample period for traces.  If non-zero, every nth trace will be sampled.")
)

var (
	// Branch as well as Version and Revision identifies where in the git
	// history the build came from, as supplied by the linker when compiled
	// with `make'.  The defaults here indicate that the user did not use
	// `make' as instructed.
	Branch   = "invalid:-use-make-to-build"
	Version  = "invalid:-use-make-to-build"
	Revision = "invalid:-use-make-to-build"
)

// setFlags returns the names of the flags given on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func main() {
	buildInfo := analyzer.BuildInfo{
		Branch:   Branch,
		Version:  Version,
		Revision: Revision,
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", buildInfo.String())
		fmt.Fprintf(os.Stderr, "\nUsage:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *version {
		fmt.Println(buildInfo.String())
		os.Exit(0)
	}
	glog.Info(buildInfo.String())
	glog.Infof("Commandline: %q", os.Args)
	if len(flag.Args()) > 0 {
		glog.Exitf("Too many extra arguments specified: %q\n(use -sources to name the file or directory to analyze.)", flag.Args())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	opts := []analyzer.Option{
		analyzer.PrometheusRegisterer(reg),
		analyzer.SetBuildInfo(buildInfo),
	}
	sourcePath := *sources
	if *configFile != "" {
		c, err := analyzer.LoadConfig(*configFile)
		if err != nil {
			glog.Exitf("%s", err)
		}
		if sourcePath == "" {
			sourcePath = c.Sources
		}
		opts = append(opts, c.Options()...)
	}
	set := setFlags()
	if set["bucket_count"] || *configFile == "" {
		opts = append(opts, analyzer.BucketCount(*bucketCount))
	}
	if set["max_scopes"] || *configFile == "" {
		opts = append(opts, analyzer.MaxScopes(*maxScopes))
	}
	if *concurrency > 0 {
		opts = append(opts, analyzer.Concurrency(*concurrency))
	}
	if *errorsAbort {
		opts = append(opts, analyzer.ErrorsAbort())
	}
	if *dumpScopes {
		opts = append(opts, analyzer.DumpScopes())
	}
	if *jaegerEndpoint != "" {
		opts = append(opts, analyzer.JaegerReporter(*jaegerEndpoint))
	}
	if sourcePath == "" {
		glog.Exitf("csym needs sources to analyze; please use the flag -sources to name a file or a directory, or set sources in the -config file.")
	}
	if *traceSamplePeriod > 0 {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(1 / float64(*traceSamplePeriod))})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigint
		glog.Infof("Received %+v, exiting...", sig)
		cancel()
	}()

	a, err := analyzer.New(sourcePath, opts...)
	if err != nil {
		glog.Exitf("%s", err)
	}
	if err := a.LoadAllSources(ctx); err != nil {
		glog.Error(err)
		cancel()
		os.Exit(1) //nolint:gocritic // false positive
	}

	if *watch {
		if err := serve(ctx, a, reg, sourcePath); err != nil {
			glog.Error(err)
			cancel()
			os.Exit(1) //nolint:gocritic // false positive
		}
		return
	}

	if err := a.WriteReport(os.Stdout); err != nil {
		glog.Exitf("%s", err)
	}
	if *dumpMetrics {
		if err := a.WriteMetrics(os.Stdout); err != nil {
			glog.Exitf("%s", err)
		}
	}
	if len(a.Errors()) > 0 {
		cancel()
		os.Exit(1) //nolint:gocritic // false positive
	}
}

// serve watches sourcePath, feeding changes to a, and serves the status
// pages until ctx is cancelled.
func serve(ctx context.Context, a *analyzer.Analyzer, reg *prometheus.Registry, sourcePath string) error {
	w, err := watcher.NewSourceWatcher(*pollInterval, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			glog.Warning(err)
		}
	}()
	if err := w.Observe(sourcePath, a); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", a)
	mux.HandleFunc("/unitz", a.UnitzHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	zpages.Handle(mux, "/")

	h := &http.Server{
		Addr:              net.JoinHostPort(*address, *port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		glog.Infof("Listening on %s", h.Addr)
		errc <- h.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
