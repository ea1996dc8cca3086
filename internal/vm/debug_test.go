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

package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
)

func TestDumpFrameContainsLocalsAndStack(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 1)
	fs.push(types.String)

	out := DumpFrame(fs)
	assert.True(t, strings.Contains(out, "FrameState"))
}

func TestDumpMapContainsEntries(t *testing.T) {
	m := buildStackPointerMap([]bool{true}, []safePointEntry{{PcOffset: 3, Refs: []bool{true}}})
	out := DumpMap(m)
	assert.True(t, strings.Contains(out, "StackPointerMap"))
}
