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

package vm

import "sync"

var (
	frameStatePool sync.Pool
	basicBlockPool sync.Pool
)

func newPooledFrameState() *FrameState {
	if v := frameStatePool.Get(); v == nil {
		return new(FrameState)
	} else {
		return resetFrameState(v.(*FrameState))
	}
}

func freePooledFrameState(fs *FrameState) {
	frameStatePool.Put(fs)
}

func resetFrameState(fs *FrameState) *FrameState {
	*fs = FrameState{}
	return fs
}

func newPooledBasicBlock() *BasicBlock {
	if v := basicBlockPool.Get(); v != nil {
		return v.(*BasicBlock)
	}
	return new(BasicBlock)
}

func freePooledBasicBlock(b *BasicBlock) {
	*b = BasicBlock{}
	basicBlockPool.Put(b)
}
