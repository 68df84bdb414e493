// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package analyzer loads C and C++ source files, resolves each translation
// unit against its own symbol dictionary, and keeps the results for reporting.
//
// Sources may be created, updated, and deleted while the analyzer is running;
// watcher events cause the affected units to be reanalyzed or unloaded.
package analyzer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"expvar"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/golang/glog"
	"github.com/google/csymtab/internal/intern"
	"github.com/google/csymtab/internal/resolver"
	"github.com/google/csymtab/internal/symtab"
	"github.com/google/csymtab/internal/watcher"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/trace"
)

var (
	// SourceLoads counts the number of successful analyses per unit.
	SourceLoads = expvar.NewMap("source_loads_total")
	// SourceUnloads counts the number of units forgotten after their file was removed.
	SourceUnloads = expvar.NewMap("source_unloads_total")
	// SourceLoadErrors counts the number of failed analyses per unit.
	SourceLoadErrors = expvar.NewMap("source_load_errors_total")
	// SourceSkips counts analyses skipped because the content was unchanged.
	SourceSkips = expvar.NewMap("source_skips_total")
)

const (
	// DefaultBucketCount is the number of hash buckets in each unit's dictionary.
	DefaultBucketCount = 211
	// DefaultMaxScopes is the deepest scope nesting a unit may reach.
	DefaultMaxScopes = 64
)

var sourceExts = map[string]bool{
	".c":   true,
	".h":   true,
	".cc":  true,
	".cpp": true,
	".cxx": true,
	".hh":  true,
	".hpp": true,
}

type result struct {
	contentHash []byte
	unit        *resolver.Unit
	err         error // from the last analysis of the unit
}

// Analyzer owns the analysis results of every source file found under a
// source path.
type Analyzer struct {
	sourcePath string // absolute; file or directory, empty for none

	reg      prometheus.Registerer
	gatherer prometheus.Gatherer

	interner       *intern.Pool
	bucketCount    int
	maxScopes      int
	internCapacity int
	concurrency    int
	ignore         []glob.Glob
	dumpScopes     bool
	errorsAbort    bool
	buildInfo      BuildInfo

	resultsMu sync.RWMutex       // guards results
	results   map[string]*result // keyed by unit name
}

// New creates an Analyzer for the sources found under sourcePath.  No
// sources are read until LoadAllSources or LoadSource is called.
func New(sourcePath string, options ...Option) (*Analyzer, error) {
	a := &Analyzer{
		bucketCount: DefaultBucketCount,
		maxScopes:   DefaultMaxScopes,
		concurrency: goruntime.NumCPU(),
		results:     make(map[string]*result),
	}
	if sourcePath != "" {
		abs, err := filepath.Abs(sourcePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve source path %q", sourcePath)
		}
		a.sourcePath = abs
	}
	if err := a.SetOption(options...); err != nil {
		return nil, err
	}
	if a.bucketCount <= 0 || a.maxScopes <= 0 {
		return nil, errors.Errorf("bucket count %d and max scopes %d must be positive", a.bucketCount, a.maxScopes)
	}
	a.interner = intern.New(a.internCapacity)
	if a.reg == nil {
		a.reg = prometheus.NewRegistry()
	}
	if g, ok := a.reg.(prometheus.Gatherer); ok {
		a.gatherer = g
	}
	if err := a.registerCollectors(); err != nil {
		return nil, err
	}
	return a, nil
}

// SetOption takes one or more option functions and applies them in order to the Analyzer.
func (a *Analyzer) SetOption(options ...Option) error {
	for _, option := range options {
		if err := option(a); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer returns the registry the analyzer's metrics were registered with,
// or nil if that registerer cannot be gathered.
func (a *Analyzer) Gatherer() prometheus.Gatherer {
	return a.gatherer
}

// LoadAllSources analyzes every source file under the source path and
// unloads the units whose files are gone.  Analysis errors are stored for
// later retrieval and only returned if ErrorsAbort is set.
func (a *Analyzer) LoadAllSources(ctx context.Context) error {
	if a.sourcePath == "" {
		glog.V(2).Info("Source path is empty, loading nothing")
		return nil
	}
	ctx, span := trace.StartSpan(ctx, "Analyzer.LoadAllSources")
	defer span.End()
	paths, err := a.findSources(a.sourcePath)
	if err != nil {
		return err
	}
	markDeleted := make(map[string]struct{})
	a.resultsMu.RLock()
	for name := range a.results {
		markDeleted[name] = struct{}{}
	}
	a.resultsMu.RUnlock()
	for _, p := range paths {
		delete(markDeleted, a.unitName(p))
	}
	for name := range markDeleted {
		glog.Infof("unloading %s", name)
		a.unload(name)
	}
	span.AddAttributes(trace.Int64Attribute("sources", int64(len(paths))))
	return a.loadSources(ctx, paths)
}

// loadSources analyzes paths with at most concurrency units in flight.
func (a *Analyzer) loadSources(ctx context.Context, paths []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)
	sem := make(chan struct{}, a.concurrency)
launch:
	for _, p := range paths {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break launch
		}
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := a.LoadSource(ctx, p); err != nil {
				mu.Lock()
				errs = append(errs, err.Error())
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "loading sources interrupted")
	}
	if len(errs) == 0 {
		return nil
	}
	sort.Strings(errs)
	return errors.Errorf("%d of %d sources failed:\n%s", len(errs), len(paths), strings.Join(errs, "\n"))
}

// findSources returns the source files at or below root in lexical order.
// Hidden files and directories and ignored paths are skipped.
func (a *Analyzer) findSources(root string) ([]string, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", root)
	}
	if !fi.IsDir() {
		if !a.isSource(root) {
			return nil, nil
		}
		return []string{root}, nil
	}
	var paths []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if info.IsDir() {
			if isHidden(path) || a.ignored(path) {
				glog.V(2).Infof("Skipping directory %s", path)
				return filepath.SkipDir
			}
			return nil
		}
		if a.isSource(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list sources in %q", root)
	}
	return paths, nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// isSource reports whether path names a file the analyzer should read.
func (a *Analyzer) isSource(path string) bool {
	if isHidden(path) {
		glog.V(2).Infof("Skipping %s because it is a hidden file.", path)
		return false
	}
	if !sourceExts[strings.ToLower(filepath.Ext(path))] {
		glog.V(2).Infof("Skipping %s due to file extension.", path)
		return false
	}
	if a.ignored(path) {
		glog.V(2).Infof("Skipping %s because it matches an ignore pattern.", path)
		return false
	}
	return true
}

// ignored reports whether an ignore pattern matches the base name of path
// or its name relative to the source path.
func (a *Analyzer) ignored(path string) bool {
	if len(a.ignore) == 0 {
		return false
	}
	base, rel := filepath.Base(path), a.unitName(path)
	for _, g := range a.ignore {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

// unitName returns the name a file's unit is known by: its slash separated
// path relative to the source directory, or its absolute path if it lies
// outside it.
func (a *Analyzer) unitName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil || a.sourcePath == "" {
		return filepath.ToSlash(filepath.Clean(path))
	}
	dir := a.sourcePath
	if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
		dir = filepath.Dir(dir)
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// LoadSource analyzes or reanalyzes the source file at pathname.  Files that
// are hidden, ignored, or not C or C++ sources are skipped.
func (a *Analyzer) LoadSource(ctx context.Context, pathname string) error {
	if !a.isSource(pathname) {
		return nil
	}
	name := a.unitName(pathname)
	f, err := os.OpenFile(filepath.Clean(pathname), os.O_RDONLY, 0o600)
	if err != nil {
		SourceLoadErrors.Add(name, 1)
		return errors.Wrapf(err, "Failed to read source %q", pathname)
	}
	defer func() {
		if err := f.Close(); err != nil {
			glog.Warning(err)
		}
	}()
	if err := a.Analyze(ctx, name, f); err != nil {
		if a.errorsAbort || ctx.Err() != nil {
			return err
		}
		glog.Infof("Errors in %s:\n%s", name, err)
	}
	return nil
}

// Analyze resolves the unit read from input and stores the result under
// name, replacing any earlier result.  If the content is the same as last
// time the unit is not analyzed again.  The returned error holds the unit's
// diagnostics; the unit itself is stored either way.  Nothing is stored
// once ctx is done.
func (a *Analyzer) Analyze(ctx context.Context, name string, input io.Reader) error {
	_, span := trace.StartSpan(ctx, "Analyzer.Analyze")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("unit", name))
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "analysis of %q cancelled", name)
	}

	var buf bytes.Buffer
	tee := io.TeeReader(input, &buf)
	hasher := sha256.New()
	if _, err := io.Copy(hasher, tee); err != nil {
		SourceLoadErrors.Add(name, 1)
		return errors.Wrapf(err, "hashing failed for %q", name)
	}
	contentHash := hasher.Sum(nil)
	a.resultsMu.RLock()
	prev, ok := a.results[name]
	a.resultsMu.RUnlock()
	if ok && bytes.Equal(prev.contentHash, contentHash) {
		glog.V(1).Infof("contents match, not reanalyzing %q", name)
		SourceSkips.Add(name, 1)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "analysis of %q cancelled", name)
	}
	dict, err := symtab.New(a.bucketCount, a.maxScopes, symtab.WithInterner(a.interner))
	if err != nil {
		return err
	}
	var opts []resolver.Option
	var dump bytes.Buffer
	if a.dumpScopes {
		opts = append(opts, resolver.DumpScopes(&dump))
	}
	start := time.Now()
	unit, rerr := resolver.Resolve(name, &buf, dict, opts...)
	AnalysisDurations.Observe(time.Since(start).Seconds())
	if a.dumpScopes {
		if err := dict.DumpScopes(&dump); err != nil {
			glog.Warning(err)
		}
		glog.Infof("Scopes of %s:\n%s", name, dump.String())
	}
	a.record(unit)
	span.AddAttributes(
		trace.Int64Attribute("tokens", int64(unit.Tokens)),
		trace.Int64Attribute("declarations", int64(len(unit.Decls))),
		trace.Int64Attribute("unresolved", int64(len(unit.Unresolved))),
	)

	a.resultsMu.Lock()
	a.results[name] = &result{contentHash: contentHash, unit: unit, err: rerr}
	a.resultsMu.Unlock()

	if rerr != nil {
		SourceLoadErrors.Add(name, 1)
		span.SetStatus(trace.Status{Code: trace.StatusCodeInvalidArgument, Message: rerr.Error()})
		return errors.Errorf("analysis failed for %s:\n%s", name, rerr)
	}
	SourceLoads.Add(name, 1)
	glog.Infof("Analyzed %s", name)
	return nil
}

// UnloadSource forgets the unit for pathname, or every unit below it if
// pathname was a directory.
func (a *Analyzer) UnloadSource(pathname string) {
	a.unload(a.unitName(pathname))
}

func (a *Analyzer) unload(name string) {
	a.resultsMu.Lock()
	defer a.resultsMu.Unlock()
	for n := range a.results {
		if n == name || strings.HasPrefix(n, name+"/") {
			delete(a.results, n)
			SourceUnloads.Add(n, 1)
			glog.Infof("Unloaded %s", n)
		}
	}
}

// ProcessFileEvent reanalyzes or unloads sources in response to a change
// reported by a watcher.
func (a *Analyzer) ProcessFileEvent(ctx context.Context, event watcher.Event) {
	ctx, span := trace.StartSpan(ctx, "Analyzer.ProcessFileEvent")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("event", event.String()))
	glog.V(1).Infof("Event %s", event)
	if event.Op == watcher.Delete {
		a.UnloadSource(event.Pathname)
		return
	}
	fi, err := os.Stat(event.Pathname)
	if err != nil {
		glog.V(1).Infof("Ignoring event for %s: %s", event.Pathname, err)
		return
	}
	if !fi.IsDir() {
		if err := a.LoadSource(ctx, event.Pathname); err != nil {
			glog.Info(err)
		}
		return
	}
	if isHidden(event.Pathname) || a.ignored(event.Pathname) {
		return
	}
	paths, err := a.findSources(event.Pathname)
	if err != nil {
		glog.Info(err)
		return
	}
	if err := a.loadSources(ctx, paths); err != nil {
		glog.Info(err)
	}
}

// Units returns the analyzed units ordered by name.
func (a *Analyzer) Units() []*resolver.Unit {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	units := make([]*resolver.Unit, 0, len(a.results))
	for _, r := range a.results {
		units = append(units, r.unit)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units
}

// Unit returns the last result for the named unit and the error from its
// analysis.  The unit is nil if the name is unknown.
func (a *Analyzer) Unit(name string) (*resolver.Unit, error) {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	r, ok := a.results[name]
	if !ok {
		return nil, errors.Errorf("no unit named %q", name)
	}
	return r.unit, r.err
}

// Errors returns the analysis errors of every unit that had any.
func (a *Analyzer) Errors() map[string]error {
	a.resultsMu.RLock()
	defer a.resultsMu.RUnlock()
	errs := make(map[string]error)
	for name, r := range a.results {
		if r.err != nil {
			errs[name] = r.err
		}
	}
	return errs
}

// InternedIdentifiers returns the number of identifiers held in the shared intern pool.
func (a *Analyzer) InternedIdentifiers() int {
	return a.interner.Len()
}
