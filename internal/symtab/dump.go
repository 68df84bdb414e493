// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symtab

import (
	"bytes"
	"fmt"
	"io"
)

// DumpScope writes the entries defined in scope to w, one per line, in
// definition order.  Entries that have been removed from their bucket are
// still listed until the scope itself is removed.
func (d *Dictionary) DumpScope(w io.Writer, scope int) error {
	d.checkScope("DumpScope", scope)
	marker := ""
	if scope == d.current {
		marker = " (current)"
	}
	if _, err := fmt.Fprintf(w, "scope %d%s {\n", scope, marker); err != nil {
		return err
	}
	for e := d.scopeHeads[scope]; e != nil; e = e.scopeNext {
		if err := d.dumpEntry(w, e); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// DumpScopes writes every scope from the outermost to the current one.
func (d *Dictionary) DumpScopes(w io.Writer) error {
	for s := 0; s <= d.current; s++ {
		if err := d.DumpScope(w, s); err != nil {
			return err
		}
	}
	return nil
}

// DumpSymbol writes every visible entry for key, nearest first, so the
// shadowing order can be inspected.
func (d *Dictionary) DumpSymbol(w io.Writer, key string) error {
	h := d.BucketIndex(key)
	if _, err := fmt.Fprintf(w, "%q bucket %d {\n", key, h); err != nil {
		return err
	}
	for e := d.buckets[h]; e != nil; e = e.next {
		if e.key != key {
			continue
		}
		if err := d.dumpEntry(w, e); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func (d *Dictionary) dumpEntry(w io.Writer, e *Entry) error {
	state := ""
	if d.nearest(e.key) != e {
		state = " hidden"
	}
	_, err := fmt.Fprintf(w, "\t%s bucket %d%s\n", e, e.hashCode, state)
	return err
}

// String prints the scopes from the outermost to the current one.  This
// method is only used for debugging.
func (d *Dictionary) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "dictionary %p buckets %d scopes %d live %d\n", d, len(d.buckets), len(d.scopeHeads), d.live)
	if err := d.DumpScopes(&buf); err != nil {
		fmt.Fprintf(&buf, "error: %s\n", err)
	}
	return buf.String()
}
