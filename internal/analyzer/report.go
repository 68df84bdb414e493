// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/csymtab/internal/resolver"
	"github.com/google/csymtab/internal/symtab"
	"github.com/pkg/errors"
	"github.com/prometheus/common/expfmt"
)

// reportKinds is the order kinds are listed in a unit summary.
var reportKinds = []symtab.Kind{
	symtab.TypeName,
	symtab.Tag,
	symtab.Namespace,
	symtab.Function,
	symtab.Parameter,
	symtab.Variable,
	symtab.EnumConstant,
}

// WriteReport writes a summary of every loaded unit to w: its declaration
// counts by kind, its unresolved references, and its errors.
func (a *Analyzer) WriteReport(w io.Writer) error {
	for _, u := range a.Units() {
		_, err := a.Unit(u.Name)
		if werr := writeUnit(w, u, err); werr != nil {
			return werr
		}
	}
	return nil
}

func writeUnit(w io.Writer, u *resolver.Unit, err error) error {
	counts := u.Count()
	var kinds []string
	for _, k := range reportKinds {
		if n := counts[k]; n > 0 {
			kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
		}
	}
	summary := "no declarations"
	if len(kinds) > 0 {
		summary = strings.Join(kinds, ", ")
	}
	if _, werr := fmt.Fprintf(w, "%s: %s; %d references, %d unresolved; max depth %d\n",
		u.Name, summary, len(u.Refs), len(u.Unresolved), u.MaxDepth); werr != nil {
		return werr
	}
	for _, ref := range u.Unresolved {
		if _, werr := fmt.Fprintf(w, "\t%s\n", ref); werr != nil {
			return werr
		}
	}
	if err != nil {
		for _, line := range strings.Split(strings.TrimRight(err.Error(), "\n"), "\n") {
			if _, werr := fmt.Fprintf(w, "\terror %s\n", line); werr != nil {
				return werr
			}
		}
	}
	return nil
}

// WriteMetrics writes every metric in the analyzer's registry to w in the
// Prometheus text exposition format.
func (a *Analyzer) WriteMetrics(w io.Writer) error {
	if a.gatherer == nil {
		return errors.New("metrics registerer cannot be gathered")
	}
	mfs, err := a.gatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
