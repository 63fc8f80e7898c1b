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
	"encoding/binary"

	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

const (
	ep2CfgIsoIn      = 0xd8 // valid, IN, isochronous, 1024 bytes, triple buffered
	ep6CfgBulkIn     = 0xe0 // valid, IN, bulk, 512 bytes, quad buffered
	epCfgOff         = 0x00
	flagSelFull      = 1
	autoInLenHighIso = 0x07
	// bits 12:11 of an iso wMaxPacketSize hold the extra transactions per
	// microframe
	isoPacketsShift = 3
)

// SelectInterface switches between bulk (alt 0) and isochronous (alt 1)
// streaming using the packet size of the current link speed.
func (d *Device) SelectInterface(alt uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureIdle(); err != nil {
		return err
	}
	return d.selectInterface(alt)
}

// packetSize returns the low and high byte of wMaxPacketSize of the alt
// setting's endpoint at the current link speed
func (d *Device) packetSize(alt uint8) (uint8, uint8, usb.Speed) {
	speed := d.link.Speed()
	desc := d.link.ConfigDescriptor(speed)
	offset := usb.MaxPacketOffset(alt)
	size := binary.LittleEndian.Uint16(desc[offset : offset+2])
	return uint8(size), uint8(size >> 8), speed
}

func (d *Device) selectInterface(alt uint8) error {
	if alt > 1 {
		return ErrInvalidAlt{Alt: alt}
	}
	low, high, speed := d.packetSize(alt)
	log.Debug("Select interface: alt %d at %s speed, packet size 0x%02x%02x", alt, speed, high, low)

	d.state.TransferMode = TransferMode(alt)
	w := hw.NewWriter(d.port)
	if alt == 0 {
		w.Write(hw.RegEP2CFG, epCfgOff)
		w.Write(hw.RegEP6CFG, ep6CfgBulkIn)
		w.Write(hw.RegEP6GPIFFLGSEL, flagSelFull)
		w.Write(hw.RegEP6AUTOINLENL, low)
		w.Write(hw.RegEP6AUTOINLENH, high)
	} else {
		w.Write(hw.RegEP2CFG, ep2CfgIsoIn)
		w.Write(hw.RegEP6CFG, epCfgOff)
		w.Write(hw.RegEP2GPIFFLGSEL, flagSelFull)
		w.Write(hw.RegEP2AUTOINLENL, low)
		w.Write(hw.RegEP2AUTOINLENH, high&autoInLenHighIso)
		w.Write(hw.RegEP2ISOINPKTS, (high>>isoPacketsShift)+1)
	}
	return w.Err()
}

// HandleSpeedChange re-applies the current alt setting after the link was
// renegotiated. A running acquisition keeps running.
func (d *Device) HandleSpeedChange() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	log.Info("Reconfiguring %s endpoints for %s speed", d.state.TransferMode, d.link.Speed())
	return d.selectInterface(uint8(d.state.TransferMode))
}
