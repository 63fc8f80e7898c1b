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
package ifc

import (
	"context"

	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

type ControlServer interface {
	Run() error

	// Submit passes a control transfer to the control loop and waits for
	// the answer
	Submit(ctx context.Context, setup usb.SetupPacket, data []byte) ([]byte, error)
	// DeviceName is the name the device state is stored under
	DeviceName() string
	State() State
	SetLinkSpeed(speed usb.Speed)
}

type ApiServer interface {
	Run(ctx context.Context) error
}

// State is the persisted view of the emulated device
type State interface {
	GetReg(addr uint16, deviceName string) (uint8, error)
	GetRegAll(deviceName string) (map[uint16]uint8, error)
	GetSnapshot(deviceName string) (*device.Snapshot, error)
	GetProgram(deviceName string) ([]byte, error)
}
