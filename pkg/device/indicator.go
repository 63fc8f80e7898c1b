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

	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
)

// BusyTicks is how many timer ticks the busy indicator stays on
const BusyTicks = 1000

// Indicator is the status LED state. The counter is shared between the
// timer and command handling.
type Indicator struct {
	counter atomic.Int32
	led     atomic.Uint32
}

// Busy lights red and restarts the decay
func (i *Indicator) Busy() {
	i.led.Store(uint32(ifc.LEDRed))
	i.counter.Store(BusyTicks)
}

// Running lights green and stops the decay
func (i *Indicator) Running() {
	i.counter.Store(0)
	i.led.Store(uint32(ifc.LEDGreen))
}

// Tick decrements the counter and reports whether the LED must be turned
// off now
func (i *Indicator) Tick() bool {
	for {
		n := i.counter.Load()
		if n == 0 {
			return false
		}
		if i.counter.CompareAndSwap(n, n-1) {
			if n == 1 {
				i.led.Store(uint32(ifc.LEDOff))
				return true
			}
			return false
		}
	}
}

func (i *Indicator) LED() ifc.LED {
	return ifc.LED(i.led.Load())
}

func (i *Indicator) Remaining() int32 {
	return i.counter.Load()
}
