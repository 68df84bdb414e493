// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/csymtab/internal/testutil"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(testutil.TestTempDir(t), "csym.toml")
	testutil.WriteSourceFile(t, path, `
sources = "src"
bucket_count = 97
max_scopes = 12
concurrency = 3
ignore = ["third_party/**", "*_test.c"]
dump_scopes = true
`)
	c, err := LoadConfig(path)
	testutil.FatalIfErr(t, err)
	want := &Config{
		Sources:     "src",
		BucketCount: 97,
		MaxScopes:   12,
		Concurrency: 3,
		Ignore:      []string{"third_party/**", "*_test.c"},
		DumpScopes:  true,
	}
	testutil.ExpectNoDiff(t, want, c)

	a := newTestAnalyzer(t, "", c.Options()...)
	if a.bucketCount != 97 || a.maxScopes != 12 || a.concurrency != 3 || !a.dumpScopes || a.errorsAbort {
		t.Errorf("options not applied: %+v", a)
	}
	if len(a.ignore) != 2 {
		t.Errorf("ignore patterns = %d, want 2", len(a.ignore))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(testutil.TestTempDir(t), "empty.toml")
	testutil.WriteSourceFile(t, path, "")
	c, err := LoadConfig(path)
	testutil.FatalIfErr(t, err)
	if opts := c.Options(); len(opts) != 0 {
		t.Errorf("empty config produced %d options", len(opts))
	}
	a := newTestAnalyzer(t, "", c.Options()...)
	if a.bucketCount != DefaultBucketCount || a.maxScopes != DefaultMaxScopes {
		t.Errorf("defaults not kept: buckets %d scopes %d", a.bucketCount, a.maxScopes)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := testutil.TestTempDir(t)
	unknown := filepath.Join(dir, "unknown.toml")
	testutil.WriteSourceFile(t, unknown, "bucket_count = 7\nbuckets = 8\n")
	_, err := LoadConfig(unknown)
	if err == nil || !strings.Contains(err.Error(), "unknown keys") || !strings.Contains(err.Error(), "buckets") {
		t.Errorf("LoadConfig(unknown key) = %v", err)
	}

	malformed := filepath.Join(dir, "malformed.toml")
	testutil.WriteSourceFile(t, malformed, "bucket_count = \"many\"\n")
	if _, err := LoadConfig(malformed); err == nil {
		t.Error("expected error for mistyped value")
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
