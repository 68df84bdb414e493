// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package watcher notifies observers of changes to source files and the
// directories that hold them.
package watcher

import (
	"context"
	"fmt"
)

// OpType is the kind of change reported in an Event.
type OpType int

const (
	_ OpType = iota
	Create
	Update
	Delete
)

func (o OpType) String() string {
	switch o {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("OpType(%d)", int(o))
}

// Event is a change to a watched path, sent from a Watcher to its Processors.
type Event struct {
	Op       OpType
	Pathname string
}

func (e Event) String() string {
	return e.Op.String() + " " + e.Pathname
}

// Watcher describes an interface for filesystem watching.
type Watcher interface {
	// Observe sends events for name, and for the entries of name if it is a
	// directory, to processor.
	Observe(name string, processor Processor) error
	Unobserve(name string, processor Processor) error
	// Poll checks every watched path for changes once, sending events synchronously.
	Poll()
	Close() error
}

// Processor describes an interface for receiving watcher.Events.
type Processor interface {
	ProcessFileEvent(context.Context, Event)
}
