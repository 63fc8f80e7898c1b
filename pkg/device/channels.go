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

// fifoConfigBase plus the channel count gives the FIFO config: auto IN,
// zero length packets, 8 or 16 bit wide
const fifoConfigBase = 7

// SetNumChannels sets the FIFO width for one or two interleaved channels
func (d *Device) SetNumChannels(n uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureIdle(); err != nil {
		return err
	}
	return d.setNumChannels(n)
}

func (d *Device) setNumChannels(n uint8) error {
	if n != 1 && n != 2 {
		return ErrInvalidChannelCount{Count: n}
	}
	cfg := fifoConfigBase + n
	log.Debug("Channels: %d, FIFO config 0x%02x", n, cfg)
	w := hw.NewWriter(d.port)
	w.Write(hw.RegEP2FIFOCFG, cfg)
	w.Write(hw.RegEP6FIFOCFG, cfg)
	if err := w.Err(); err != nil {
		return err
	}
	d.state.Channels = n
	return nil
}
