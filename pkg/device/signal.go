/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package device

import (
	"sync/atomic"
)

// Signal is a set of asynchronous events waiting for the control loop
type Signal uint32

const (
	SignalSpeedChanged Signal = 1 << iota
	SignalTick
)

func (s Signal) Has(other Signal) bool {
	return s&other != 0
}

// Signals collects events raised from any goroutine. Pending events are
// drained at once by the loop.
type Signals struct {
	pending atomic.Uint32
	wake    chan struct{}
}

func NewSignals() *Signals {
	return &Signals{wake: make(chan struct{}, 1)}
}

func (s *Signals) Raise(sig Signal) {
	for {
		old := s.pending.Load()
		if s.pending.CompareAndSwap(old, old|uint32(sig)) {
			break
		}
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Drain returns and clears the pending events
func (s *Signals) Drain() Signal {
	return Signal(s.pending.Swap(0))
}

func (s *Signals) Wake() <-chan struct{} {
	return s.wake
}
