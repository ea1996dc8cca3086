/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config holds the map builder's tunables: how many times to retry
// a build after a GC (spec §5), whether to trace safe points, and whether
// to debug-assert on a join disagreement rather than silently accepting the
// first-visited frame shape (spec §9). Loadable from a TOML file, overridable
// by environment variables, same layering the teacher uses for its own
// package-level option defaults.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the process-wide tuning surface for the map builder.
type Config struct {
	// GCRetryLimit bounds how many times BuildStackPointerMap retries after
	// an out-of-memory GC cycle before giving up with FatalAllocationError.
	// Spec §5 describes exactly one retry; this makes that count tunable
	// rather than hard-wired, for embedders running under memory pressure.
	GCRetryLimit int

	// TraceSafePoints enables the fmt.Fprintf diagnostic dump of every safe
	// point as it's recorded.
	TraceSafePoints bool

	// AssertJoinAgreement debug-asserts that every predecessor reaching an
	// already-visited block agrees on frame shape, instead of silently
	// keeping whichever arrived first (spec §9's join-soundness note).
	AssertJoinAgreement bool
}

// Default returns the built-in tuning values: one GC retry, no tracing, no
// join-agreement assertion (matching the teacher's own JIT inlining knobs,
// which default to "off"/"unlimited" until an embedder opts in).
func Default() Config {
	return Config{
		GCRetryLimit:        1,
		TraceSafePoints:     false,
		AssertJoinAgreement: false,
	}
}

// Option mutates a Config being assembled by Load.
type Option func(*Config)

// WithGCRetryLimit overrides GCRetryLimit.
func WithGCRetryLimit(n int) Option {
	return func(c *Config) { c.GCRetryLimit = n }
}

// WithTraceSafePoints overrides TraceSafePoints.
func WithTraceSafePoints(v bool) Option {
	return func(c *Config) { c.TraceSafePoints = v }
}

// WithAssertJoinAgreement overrides AssertJoinAgreement.
func WithAssertJoinAgreement(v bool) Option {
	return func(c *Config) { c.AssertJoinAgreement = v }
}

// Load builds a Config from defaults, then a TOML file (if path is
// non-empty), then CSVM_* environment variables, then opts, in that
// increasing order of precedence.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	for _, o := range opts {
		o(&cfg)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("CSVM_GC_RETRY_LIMIT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GCRetryLimit = n
		}
	}
	if v, ok := os.LookupEnv("CSVM_TRACE_SAFE_POINTS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TraceSafePoints = b
		}
	}
	if v, ok := os.LookupEnv("CSVM_ASSERT_JOIN_AGREEMENT"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AssertJoinAgreement = b
		}
	}
}
