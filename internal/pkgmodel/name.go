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

package pkgmodel

import "strings"

// Name is the internal hierarchical identifier a Function or Class carries in
// addition to its optional source name (spec §3): package-qualified path
// segments, e.g. {"acme", "collections", "List", "add"}.
type Name struct {
	Parts []string
}

// NewName builds a Name from its path segments.
func NewName(parts ...string) Name {
	return Name{Parts: append([]string(nil), parts...)}
}

func (n Name) String() string {
	return strings.Join(n.Parts, ".")
}

// Equal reports whether two Names name the same path.
func (n Name) Equal(other Name) bool {
	if len(n.Parts) != len(other.Parts) {
		return false
	}
	for i, p := range n.Parts {
		if other.Parts[i] != p {
			return false
		}
	}
	return true
}
