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

// Package pkgmodel holds the small collaborators the loader would otherwise
// own: process-wide definition identity and hierarchical names. Package,
// Dependency, and Global — the rest of spec.md §6's "consumed from the
// package" surface — live in internal/vm instead, alongside Function, since
// both reference each other and this keeps the import graph acyclic.
package pkgmodel

import "github.com/google/uuid"

// DefnId is a process-wide unique identity for a Function, Class, or other
// loaded definition, per spec §3 ("DefnId, process-wide unique"). Backed by a
// uuid rather than a monotonic counter so identities remain stable and
// comparable across independently loaded packages without a shared allocator.
type DefnId struct {
	id uuid.UUID
}

// NewDefnId allocates a fresh, process-wide unique identity.
func NewDefnId() DefnId {
	return DefnId{id: uuid.New()}
}

// IsZero reports whether this is the zero DefnId (never allocated by NewDefnId).
func (d DefnId) IsZero() bool {
	return d.id == uuid.Nil
}

func (d DefnId) String() string {
	return d.id.String()
}
