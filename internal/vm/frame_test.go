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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvm/codeswitch/internal/pkgmodel"
	"github.com/csvm/codeswitch/internal/types"
)

func TestNewFrameStateSeedsUnitLocals(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 3)
	assert.Equal(t, 0, fs.stackHeight())
	for i := -1; i >= -3; i-- {
		assert.Same(t, types.Unit, fs.getLocal(i))
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	fs.push(types.String)
	fs.push(types.I32)

	assert.Equal(t, 2, fs.stackHeight())

	top, err := fs.top()
	require.NoError(t, err)
	assert.Same(t, types.I32, top)

	v, err := fs.pop()
	require.NoError(t, err)
	assert.Same(t, types.I32, v)

	v, err = fs.pop()
	require.NoError(t, err)
	assert.Same(t, types.String, v)

	assert.Equal(t, 0, fs.stackHeight())
}

func TestPopUnderflow(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	_, err := fs.pop()
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrStackUnderflow, be.Kind)
}

func TestPopNOrderPreserved(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	fs.push(types.I8)
	fs.push(types.I16)
	fs.push(types.I32)

	vals, err := fs.popN(2)
	require.NoError(t, err)
	assert.Same(t, types.I16, vals[0])
	assert.Same(t, types.I32, vals[1])
	assert.Equal(t, 1, fs.stackHeight())
}

func TestPopNUnderflow(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	fs.push(types.I8)
	_, err := fs.popN(2)
	assert.Error(t, err)
}

func TestSetAndGetLocal(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 2)
	fs.setLocal(-1, types.String)
	fs.setLocal(-2, types.I64)

	assert.Same(t, types.String, fs.getLocal(-1))
	assert.Same(t, types.I64, fs.getLocal(-2))
}

func TestCloneIsIndependent(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 1)
	fs.setLocal(-1, types.String)
	fs.push(types.I32)

	clone := fs.clone()
	clone.push(types.Bool)
	clone.setLocal(-1, types.I64)

	assert.Equal(t, 1, fs.stackHeight())
	assert.Equal(t, 2, clone.stackHeight())
	assert.Same(t, types.String, fs.getLocal(-1))
	assert.Same(t, types.I64, clone.getLocal(-1))
}

func TestTypeArgStack(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	fs.pushTypeArg(types.String)
	fs.pushTypeArg(types.I32)

	args, err := fs.popTypeArgsExpect(2)
	require.NoError(t, err)
	assert.Same(t, types.String, args[0])
	assert.Same(t, types.I32, args[1])
}

func TestPopTypeArgsExpectMismatch(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	fs.pushTypeArg(types.String)
	_, err := fs.popTypeArgsExpect(2)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrMalformedBytecode, be.Kind)
}

func TestSubstituteReturnTypeNonGeneric(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	ret, err := fs.substituteReturnType(0, types.String)
	require.NoError(t, err)
	assert.Same(t, types.String, ret)
}

func TestSubstituteReturnTypeGeneric(t *testing.T) {
	fs := newFrameState(pkgmodel.NewDefnId(), 0)
	fs.pushTypeArg(types.String)

	ret, err := fs.substituteReturnType(1, types.TypeParam(0))
	require.NoError(t, err)
	assert.Same(t, types.String, ret)
}
