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
	"errors"

	"github.com/csvm/codeswitch/internal/vm"
)

// Re-exported so callers never need to import internal/vm themselves to
// type-switch on a build failure (spec §7).
type (
	BuildError           = vm.BuildError
	FatalAllocationError = vm.FatalAllocationError
	NativeSymbolError    = vm.NativeSymbolError
)

// ErrOutOfMemory is the sentinel an allocation site inside the builder
// returns to start the GC-and-retry path; once the retries are used up,
// BuildStackPointerMap returns a *FatalAllocationError instead. Decode
// errors are reported as *BuildError and are never retried.
var ErrOutOfMemory = vm.ErrOutOfMemory

// IsFatal reports whether err should abort loading the package that owns
// the function being built, per spec §7: every BuildError and
// FatalAllocationError is fatal; a NativeSymbolError is not (it's surfaced
// later, only if the native function is actually called).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BuildError
	var fe *FatalAllocationError
	return errors.As(err, &be) || errors.As(err, &fe)
}
