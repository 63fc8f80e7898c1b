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
// Package usbdev talks to a real digitizer through libusb
package usbdev

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

// ErrDeviceNotFound returned when no device with the board's IDs is attached
type ErrDeviceNotFound struct {
	VendorID  uint16
	ProductID uint16
}

func (e ErrDeviceNotFound) Error() string {
	return fmt.Sprintf("USB device %04x:%04x not found", e.VendorID, e.ProductID)
}

// Device sends control transfers to the digitizer over EP0
type Device struct {
	ctx *gousb.Context
	dev *gousb.Device
}

// Open opens the first attached device matching the board's IDs
func Open(info ifc.USBInfo, timeout time.Duration) (*Device, error) {
	log.Debug("Opening USB device %04x:%04x", info.VendorID, info.ProductID)
	d := &Device{ctx: gousb.NewContext()}

	var err error
	d.dev, err = d.ctx.OpenDeviceWithVIDPID(gousb.ID(info.VendorID), gousb.ID(info.ProductID))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("Opening USB device: %w", err)
	}
	if d.dev == nil {
		d.Close()
		return nil, ErrDeviceNotFound{VendorID: info.VendorID, ProductID: info.ProductID}
	}
	d.dev.ControlTimeout = timeout
	log.Info("Opened %s", d.dev)
	return d, nil
}

// Control runs one control transfer. Device-to-host requests return up to
// wLength bytes. A pipe error means the device stalled EP0.
func (d *Device) Control(ctx context.Context, setup usb.SetupPacket, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := data
	if setup.IsDeviceToHost() {
		buf = make([]byte, setup.Length)
	}
	n, err := d.dev.Control(setup.RequestType, setup.Request, setup.Value, setup.Index, buf)
	if errors.Is(err, gousb.ErrorPipe) {
		return nil, usb.ErrStall{Request: setup.Request, What: "stalled by device"}
	}
	if err != nil {
		return nil, err
	}
	if setup.IsDeviceToHost() {
		return buf[:n], nil
	}
	return nil, nil
}

func (d *Device) Close() error {
	if d.dev != nil {
		d.dev.Close()
		d.dev = nil
	}
	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
	return nil
}
