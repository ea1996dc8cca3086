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

package codeswitch

import (
	"io"

	"github.com/csvm/codeswitch/internal/config"
	"github.com/csvm/codeswitch/internal/vm"
)

// Option configures the map builder's tunables (spec §5's retry discipline,
// §9's join-agreement assertion, and safe-point tracing), mirroring the
// teacher's own functional-option-over-a-package-level-struct shape.
type Option = config.Option

// WithGCRetryLimit overrides how many times a build retries after an
// allocation failure. The default is 1, matching spec §5's "one retry".
func WithGCRetryLimit(n int) Option {
	return config.WithGCRetryLimit(n)
}

// WithTraceSafePoints enables the builder's fmt.Fprintf diagnostic for every
// safe point it records, written to SetTraceOutput's writer (os.Stderr by
// default).
func WithTraceSafePoints(v bool) Option {
	return config.WithTraceSafePoints(v)
}

// WithAssertJoinAgreement enables the debug-build check described in spec
// §9: a block revisited with a frame shape that disagrees with its
// first-visited shape panics instead of silently keeping the first arrival.
func WithAssertJoinAgreement(v bool) Option {
	return config.WithAssertJoinAgreement(v)
}

// Configure loads a Config (optionally from a TOML file at configPath, ""
// to skip), applies CSVM_* environment overrides, then opts, and wires the
// result into the builder. Call this once at process start before any
// BuildStackPointerMap call, per spec §5's "process-scoped" global state.
func Configure(configPath string, opts ...Option) error {
	cfg, err := config.Load(configPath, opts...)
	if err != nil {
		return err
	}
	vm.SetGCRetryLimit(cfg.GCRetryLimit)
	vm.SetTraceSafePoints(cfg.TraceSafePoints)
	vm.SetAssertJoinAgreement(cfg.AssertJoinAgreement)
	return nil
}

// SetTraceOutput redirects safe-point tracing; tests use this to capture it
// instead of the default os.Stderr.
func SetTraceOutput(w io.Writer) {
	vm.SetTraceOutput(w)
}

// SetGCHook installs the callback BuildStackPointerMap runs after an
// allocation failure, before each retry — the embedder's actual collector
// entry point.
func SetGCHook(f func()) {
	vm.SetGCHook(f)
}
