// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the contents of a csym TOML configuration file.  Fields left
// out of the file keep their zero value, which means the default.
type Config struct {
	Sources        string   `toml:"sources"`
	BucketCount    int      `toml:"bucket_count"`
	MaxScopes      int      `toml:"max_scopes"`
	InternCapacity int      `toml:"intern_capacity"`
	Concurrency    int      `toml:"concurrency"`
	Ignore         []string `toml:"ignore"`
	DumpScopes     bool     `toml:"dump_scopes"`
	ErrorsAbort    bool     `toml:"errors_abort"`
}

// LoadConfig reads the configuration file at path.  Unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config %q", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, errors.Errorf("unknown keys in config %q: %s", path, strings.Join(keys, ", "))
	}
	return &c, nil
}

// Options returns the analyzer options the configuration sets.
func (c *Config) Options() []Option {
	var opts []Option
	if c.BucketCount != 0 {
		opts = append(opts, BucketCount(c.BucketCount))
	}
	if c.MaxScopes != 0 {
		opts = append(opts, MaxScopes(c.MaxScopes))
	}
	if c.InternCapacity != 0 {
		opts = append(opts, InternCapacity(c.InternCapacity))
	}
	if c.Concurrency != 0 {
		opts = append(opts, Concurrency(c.Concurrency))
	}
	if len(c.Ignore) > 0 {
		opts = append(opts, IgnorePatterns(c.Ignore...))
	}
	if c.DumpScopes {
		opts = append(opts, DumpScopes())
	}
	if c.ErrorsAbort {
		opts = append(opts, ErrorsAbort())
	}
	return opts
}
