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
	"context"

	"jinr.ru/greenlab/go-dso/pkg/usb"
)

var _ usb.Hooks = &Device{}

// GetInterface reports the alt setting of interface 0 whatever ifc is
func (d *Device) GetInterface(ifc uint8) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint8(d.state.TransferMode), nil
}

// SetInterface acts on interface 0 only, other interfaces are accepted and
// ignored
func (d *Device) SetInterface(ifc, alt uint8) error {
	if ifc != 0 {
		return nil
	}
	return d.SelectInterface(alt)
}

// GetConfiguration always reports configuration 0
func (d *Device) GetConfiguration() uint8 {
	return 0
}

func (d *Device) SetConfiguration(cfg uint8) error {
	return nil
}

func (d *Device) VendorCommand(ctx context.Context, request uint8, data []byte) (bool, error) {
	return d.HandleVendorCommand(ctx, request, data)
}

// SpeedChanged only raises a signal, the endpoints are reconfigured by the
// loop
func (d *Device) SpeedChanged(speed usb.Speed) {
	d.signals.Raise(SignalSpeedChanged)
}
