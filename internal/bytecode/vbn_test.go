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

package bytecode

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVbnRoundTripFixed(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 64, -65, 127, -128, 128,
		1 << 20, -(1 << 20), 1 << 40, -(1 << 40),
		9223372036854775807, -9223372036854775808}

	for _, v := range cases {
		buf := AppendVbn(nil, v)
		got, next, err := ReadVbn(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, len(buf), next)
		assert.Equal(t, v, got, "round-trip of %d", v)
	}
}

func TestVbnRoundTripRandom(t *testing.T) {
	for i := 0; i < 500; i++ {
		v := int64(gofakeit.Number(-1<<40, 1<<40))
		buf := AppendVbn(nil, v)
		got, next, err := ReadVbn(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, len(buf), next)
		assert.Equal(t, v, got)
	}
}

func TestVbnTruncated(t *testing.T) {
	buf := AppendVbn(nil, 1<<30)
	_, _, err := ReadVbn(buf[:len(buf)-1], 0)
	assert.ErrorIs(t, err, ErrTruncatedVbn)
}

func TestVbnSequentialReads(t *testing.T) {
	var buf []byte
	buf = AppendVbn(buf, 10)
	buf = AppendVbn(buf, -10)
	buf = AppendVbn(buf, 1<<30)

	v1, p1, err := ReadVbn(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v1)

	v2, p2, err := ReadVbn(buf, p1)
	require.NoError(t, err)
	assert.Equal(t, int64(-10), v2)

	v3, p3, err := ReadVbn(buf, p2)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), v3)
	assert.Equal(t, len(buf), p3)
}
