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

import "fmt"

// ErrTruncatedVbn is returned when a variable-byte-signed integer runs off the end
// of the instruction stream before its terminating byte.
var ErrTruncatedVbn = fmt.Errorf("bytecode: truncated vbn immediate")

// ReadVbn decodes a variable-byte signed integer starting at code[offset]. Vbns
// are 1 to 10 bytes long: the high bit of every byte but the last is a continuation
// flag, the low 7 bits of each byte are combined little-endian, and the result is
// sign-extended from the high bit of the final (non-continued) group of bits.
//
// Returns the decoded value and the offset of the byte immediately following the
// immediate.
func ReadVbn(code []byte, offset int) (int64, int, error) {
	var n int64
	var shift uint
	more := true

	for more {
		if offset >= len(code) {
			return 0, offset, ErrTruncatedVbn
		}

		b := code[offset]
		offset++
		more = b&0x80 != 0
		n |= int64(b&0x7f) << shift
		shift += 7

		if shift >= 64 {
			break
		}
	}

	if more {
		return 0, offset, ErrTruncatedVbn
	}

	if shift < 64 {
		signExtend := 64 - shift
		n = (n << signExtend) >> signExtend
	}

	return n, offset, nil
}

// AppendVbn appends the vbn encoding of v to buf and returns the result, for use by
// assemblers and tests that build bytecode streams by hand.
func AppendVbn(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7

		// Stop once the remaining bits are all the sign bit of b, i.e. sign-extending
		// v reproduces itself: this is the shortest encoding that still round-trips.
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			buf = append(buf, b)
			return buf
		}

		buf = append(buf, b|0x80)
	}
}
