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
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
)

// SetVoltage selects the front end range of a channel. Other channels'
// fields are left untouched.
func (d *Device) SetVoltage(channel, code uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureIdle(); err != nil {
		return err
	}
	return d.setVoltage(channel, code)
}

func (d *Device) setVoltage(channel, code uint8) error {
	if channel > 1 {
		return ErrInvalidChannel{Channel: channel}
	}
	fields, ok := d.board.VoltageFields(channel, code)
	if !ok {
		return ErrInvalidRange{Channel: channel, Code: code}
	}
	w := hw.NewWriter(d.port)
	for _, f := range fields {
		log.Debug("Voltage channel %d range %d: %s", channel, code, f)
		w.Modify(f)
	}
	if err := w.Err(); err != nil {
		return err
	}
	d.state.Voltage[channel] = code
	return nil
}
