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
	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/hw"
)

// Tick runs one timer period: toggles the calibration output and decays
// the busy indicator
func (d *Device) Tick() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := hw.NewWriter(d.port)
	reg, bit := d.board.CalibrationPin()
	w.Toggle(reg, bit)
	if d.indicator.Tick() {
		d.setLED(w, ifc.LEDOff)
	}
	return w.Err()
}
