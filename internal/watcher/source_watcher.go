// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"expvar"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	errorCount = expvar.NewInt("source_watcher_errors_total")
)

type watch struct {
	ps []Processor
	fi os.FileInfo
}

// pending is an event waiting to be sent once the watch table is unlocked.
type pending struct {
	ps []Processor
	e  Event
}

// SourceWatcher watches source trees on a real filesystem.  It uses
// fsnotify when available and polls the tree when a poll interval is set.
// Observing a directory observes every file and directory beneath it,
// except hidden ones.
type SourceWatcher struct {
	watcher    *fsnotify.Watcher
	pollTicker *time.Ticker

	watchedMu sync.RWMutex // protects `watched'
	watched   map[string]*watch

	stopTicks chan struct{} // Channel to notify ticker to stop.

	ticksDone  chan struct{} // Channel to notify when the ticks handler is done.
	eventsDone chan struct{} // Channel to notify when the events handler is done.

	closeOnce sync.Once
}

// NewSourceWatcher returns a new SourceWatcher.  A zero pollInterval disables
// periodic polling unless fsnotify is also unavailable.
func NewSourceWatcher(pollInterval time.Duration, enableFsnotify bool) (*SourceWatcher, error) {
	var f *fsnotify.Watcher
	if enableFsnotify {
		var err error
		f, err = fsnotify.NewWatcher()
		if err != nil {
			glog.Warning(err)
		}
	}
	if f == nil && pollInterval == 0 {
		glog.Infof("fsnotify disabled and no poll interval specified; defaulting to 250ms poll")
		pollInterval = time.Millisecond * 250
	}
	w := &SourceWatcher{
		watcher: f,
		watched: make(map[string]*watch),
	}
	if pollInterval > 0 {
		w.pollTicker = time.NewTicker(pollInterval)
		w.stopTicks = make(chan struct{})
		w.ticksDone = make(chan struct{})
		go w.runTicks()
	}
	if f != nil {
		w.eventsDone = make(chan struct{})
		go w.runEvents()
	}
	return w, nil
}

func send(events []pending) {
	for _, p := range events {
		for _, proc := range p.ps {
			proc.ProcessFileEvent(context.TODO(), p.e)
		}
	}
}

func hidden(pathname string) bool {
	return strings.HasPrefix(filepath.Base(pathname), ".")
}

func (w *SourceWatcher) runTicks() {
	defer close(w.ticksDone)
	for {
		select {
		case <-w.pollTicker.C:
			w.Poll()
		case <-w.stopTicks:
			w.pollTicker.Stop()
			return
		}
	}
}

// Poll stats every watched path once and sends events for the changes found.
func (w *SourceWatcher) Poll() {
	var events []pending
	w.watchedMu.Lock()
	names := make([]string, 0, len(w.watched))
	for n := range w.watched {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if watched, ok := w.watched[n]; ok {
			events = w.pollWatchedPathLocked(events, n, watched)
		}
	}
	w.watchedMu.Unlock()
	send(events)
}

// pollWatchedPathLocked polls an already-watched path for updates.  w.watchedMu must be locked when called.
func (w *SourceWatcher) pollWatchedPathLocked(events []pending, pathname string, watched *watch) []pending {
	fi, err := os.Stat(pathname)
	if err != nil {
		if os.IsNotExist(err) {
			glog.V(2).Infof("sending delete for %s", pathname)
			events = append(events, pending{watched.ps, Event{Delete, pathname}})
			delete(w.watched, pathname)
		} else {
			glog.V(1).Info(err)
		}
		return events
	}
	switch {
	case fi.IsDir():
		// fsnotify does not send update events for the directory itself.
		events = w.pollDirectoryLocked(events, pathname, watched)
	case watched.fi == nil || fi.ModTime().After(watched.fi.ModTime()) || fi.Size() != watched.fi.Size():
		glog.V(2).Infof("sending update for %s", pathname)
		events = append(events, pending{watched.ps, Event{Update, pathname}})
	}
	watched.fi = fi
	return events
}

// pollDirectoryLocked sends create events for entries of the directory that
// are not watched yet, and starts watching them.
func (w *SourceWatcher) pollDirectoryLocked(events []pending, pathname string, dir *watch) []pending {
	entries, err := ioutil.ReadDir(pathname)
	if err != nil {
		glog.V(1).Info(err)
		return events
	}
	for _, fi := range entries {
		match := filepath.Join(pathname, fi.Name())
		if hidden(match) {
			continue
		}
		if _, ok := w.watched[match]; ok {
			continue
		}
		glog.V(2).Infof("sending create for %s", match)
		events = append(events, pending{dir.ps, Event{Create, match}})
		child := &watch{ps: append([]Processor(nil), dir.ps...), fi: fi}
		w.watched[match] = child
		if fi.IsDir() {
			if err := w.addWatch(match); err != nil {
				glog.Info(err)
			}
			events = w.pollDirectoryLocked(events, match, child)
		}
	}
	return events
}

// runEvents assumes that w.watcher is not nil
func (w *SourceWatcher) runEvents() {
	defer close(w.eventsDone)

	// Suck out errors and dump them to the error log.
	go func() {
		for err := range w.watcher.Errors {
			errorCount.Add(1)
			glog.Errorf("fsnotify error: %s\n", err)
		}
	}()

	for e := range w.watcher.Events {
		glog.V(2).Infof("watcher event %v", e)
		if hidden(e.Name) {
			continue
		}
		switch {
		case e.Op&fsnotify.Create == fsnotify.Create:
			w.created(e.Name)
		case e.Op&fsnotify.Write == fsnotify.Write,
			e.Op&fsnotify.Chmod == fsnotify.Chmod:
			w.updated(e.Name)
		case e.Op&fsnotify.Remove == fsnotify.Remove,
			e.Op&fsnotify.Rename == fsnotify.Rename:
			// Rename is only issued on the original path; the new name receives a Create event.
			w.removed(e.Name)
		default:
			glog.Warningf("unknown op type %v", e.Op)
		}
	}
	glog.Infof("Shutting down source watcher.")
}

// lookupLocked returns the watch for pathname, or for its directory.
func (w *SourceWatcher) lookupLocked(pathname string) (*watch, bool) {
	if watched, ok := w.watched[pathname]; ok {
		return watched, true
	}
	watched, ok := w.watched[filepath.Dir(pathname)]
	return watched, ok
}

func (w *SourceWatcher) created(pathname string) {
	fi, err := os.Stat(pathname)
	if err != nil {
		glog.V(1).Info(err)
		return
	}
	w.watchedMu.Lock()
	dir, ok := w.watched[filepath.Dir(pathname)]
	if !ok {
		w.watchedMu.Unlock()
		glog.V(2).Infof("No watch for path %q", pathname)
		return
	}
	ps := append([]Processor(nil), dir.ps...)
	for _, p := range ps {
		if err := w.observeLocked(pathname, fi, p, false); err != nil {
			glog.Info(err)
		}
	}
	w.watchedMu.Unlock()
	send([]pending{{ps, Event{Create, pathname}}})
}

func (w *SourceWatcher) updated(pathname string) {
	w.watchedMu.Lock()
	watched, ok := w.lookupLocked(pathname)
	if !ok {
		w.watchedMu.Unlock()
		glog.V(2).Infof("No watch for path %q", pathname)
		return
	}
	if fi, err := os.Stat(pathname); err == nil {
		if fi.IsDir() {
			w.watchedMu.Unlock()
			return
		}
		if own, ok := w.watched[pathname]; ok {
			own.fi = fi
		}
	}
	ps := append([]Processor(nil), watched.ps...)
	w.watchedMu.Unlock()
	send([]pending{{ps, Event{Update, pathname}}})
}

func (w *SourceWatcher) removed(pathname string) {
	w.watchedMu.Lock()
	watched, ok := w.lookupLocked(pathname)
	if !ok {
		w.watchedMu.Unlock()
		glog.V(2).Infof("No watch for path %q", pathname)
		return
	}
	ps := append([]Processor(nil), watched.ps...)
	w.forgetLocked(pathname, nil)
	w.watchedMu.Unlock()
	send([]pending{{ps, Event{Delete, pathname}}})
}

// Close shuts down the SourceWatcher.  It is safe to call this from multiple clients.
func (w *SourceWatcher) Close() (err error) {
	w.closeOnce.Do(func() {
		if w.watcher != nil {
			err = w.watcher.Close()
			<-w.eventsDone
		}
		if w.pollTicker != nil {
			close(w.stopTicks)
			<-w.ticksDone
		}
		glog.Info("Closing events channels")
	})
	return
}

// Observe adds a path to the list of watched items.  Changes to the path, or
// to anything beneath it if it is a directory, are sent to processor.  The
// entries present when Observe is called do not generate create events.
func (w *SourceWatcher) Observe(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to lookup absolutepath of %q", path)
	}
	fi, err := os.Stat(absPath)
	if err != nil {
		return errors.Wrapf(err, "Failed to observe %q", path)
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	return w.observeLocked(absPath, fi, processor, true)
}

func (w *SourceWatcher) observeLocked(absPath string, fi os.FileInfo, processor Processor, top bool) error {
	if fi.IsDir() || top {
		if err := w.addWatch(absPath); err != nil {
			return err
		}
	}
	watched, ok := w.watched[absPath]
	if !ok {
		watched = &watch{fi: fi}
		w.watched[absPath] = watched
		glog.V(1).Infof("watching %s", absPath)
	}
	found := false
	for _, p := range watched.ps {
		if p == processor {
			found = true
			break
		}
	}
	if !found {
		watched.ps = append(watched.ps, processor)
	}
	if !fi.IsDir() {
		return nil
	}
	entries, err := ioutil.ReadDir(absPath)
	if err != nil {
		return errors.Wrapf(err, "Failed to list %q", absPath)
	}
	for _, e := range entries {
		child := filepath.Join(absPath, e.Name())
		if hidden(child) {
			continue
		}
		if err := w.observeLocked(child, e, processor, false); err != nil {
			return err
		}
	}
	return nil
}

func (w *SourceWatcher) addWatch(absPath string) error {
	if w.watcher == nil {
		return nil
	}
	glog.V(2).Infof("Adding a watch on resolved path %q", absPath)
	if err := w.watcher.Add(absPath); err != nil {
		if os.IsPermission(err) {
			glog.V(2).Infof("Skipping permission denied error on adding a watch.")
			return nil
		}
		return errors.Wrapf(err, "Failed to create a new watch on %q", absPath)
	}
	return nil
}

// Unobserve stops sending events for path and everything beneath it to processor.
func (w *SourceWatcher) Unobserve(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to lookup absolutepath of %q", path)
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	w.forgetLocked(absPath, processor)
	return nil
}

// forgetLocked removes processor from the watches on pathname and beneath
// it, or removes the watches altogether if processor is nil.  Watches left
// with no processors are dropped.
func (w *SourceWatcher) forgetLocked(pathname string, processor Processor) {
	prefix := pathname + string(filepath.Separator)
	for n, watched := range w.watched {
		if n != pathname && !strings.HasPrefix(n, prefix) {
			continue
		}
		if processor != nil {
			ps := watched.ps[:0]
			for _, p := range watched.ps {
				if p != processor {
					ps = append(ps, p)
				}
			}
			watched.ps = ps
			if len(ps) > 0 {
				continue
			}
		}
		delete(w.watched, n)
		if w.watcher != nil && watched.fi != nil && watched.fi.IsDir() {
			if err := w.watcher.Remove(n); err != nil {
				glog.V(2).Info(err)
			}
		}
	}
}

// IsWatching indicates if the path is being watched. It includes both
// filenames and directories.
func (w *SourceWatcher) IsWatching(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		glog.V(2).Infof("Couldn't resolve path %q: %s", absPath, err)
		return false
	}
	w.watchedMu.RLock()
	_, ok := w.watched[absPath]
	w.watchedMu.RUnlock()
	return ok
}
