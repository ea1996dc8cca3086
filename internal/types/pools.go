/*
 * Copyright 2021 ByteDance Inc.
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

package types

import (
	"sync"
)

// instTypePool recycles the *Type values Create hands out for instantiated
// object types (Substitute allocates its results directly). A value returns
// to the pool only through ReleaseType; until then Create allocates a fresh
// one. Mirrors the teacher's own Type pool.
var instTypePool sync.Pool

func newInstType() *Type {
	if v := instTypePool.Get(); v == nil {
		return new(Type)
	} else {
		return resetInstType(v.(*Type))
	}
}

func freeInstType(p *Type) {
	instTypePool.Put(p)
}

func resetInstType(p *Type) *Type {
	*p = Type{}
	return p
}
