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

// Package hantek6022be describes the Hantek DSO-6022BE wiring.
//
// Front end: port C bits 2..4 select the channel 0 range, bits 5..7 the
// channel 1 range. Port C bits 0..1 drive the bicolor LED (active low) and
// port A bit 7 is the 1 kHz calibration output.
package hantek6022be

import (
	"time"

	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/hw"
)

const Name = "hantek6022be"

// TimerPeriod toggles the calibration output at 1 kHz
const TimerPeriod = 500 * time.Microsecond

const (
	maskChannel0 = 0x1c
	maskChannel1 = 0xe0
	// a selector is replicated into both 3-bit fields, the channel mask
	// picks the field
	selectorStride = 0x24

	ledMask  = 0x03
	ledRed   = 0x02 // PC0 low
	ledGreen = 0x01 // PC1 low
	ledOff   = 0x03

	calibrationBit = 0x80
)

// selectors maps range codes to the 2-bit front end selector
var selectors = map[uint8]uint8{
	1:  2,
	2:  1,
	5:  0,
	10: 3,
}

var ranges = []uint8{1, 2, 5, 10}

var profiles = []ifc.SampleRateProfile{
	{Rate: 48, Wait0: 0x80, Wait1: 0, Opc0: 3, Opc1: 0, Out0: 0x00, IFConfig: 0xea},
	{Rate: 30, Wait0: 0x80, Wait1: 0, Opc0: 3, Opc1: 0, Out0: 0x00, IFConfig: 0xaa},
	{Rate: 24, Wait0: 1, Wait1: 0, Opc0: 2, Opc1: 1, Out0: 0x40, IFConfig: 0xca},
	{Rate: 16, Wait0: 1, Wait1: 1, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 12, Wait0: 2, Wait1: 1, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 8, Wait0: 3, Wait1: 2, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 4, Wait0: 6, Wait1: 5, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 2, Wait0: 12, Wait1: 11, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 1, Wait0: 24, Wait1: 23, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 50, Wait0: 48, Wait1: 47, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 20, Wait0: 120, Wait1: 119, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
	{Rate: 10, Wait0: 240, Wait1: 239, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xca},
}

type Board struct{}

var _ ifc.IndicatorBoard = &Board{}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Name() string {
	return Name
}

func (b *Board) USB() ifc.USBInfo {
	return ifc.USBInfo{
		VendorID:     0x04b4,
		ProductID:    0x6022,
		Manufacturer: "Hantek",
		Product:      "DSO-6022BE",
	}
}

func (b *Board) Ranges() []uint8 {
	return ranges
}

func (b *Board) VoltageFields(channel, code uint8) ([]hw.FieldWrite, bool) {
	selector, ok := selectors[code]
	if !ok {
		return nil, false
	}
	var mask uint8
	switch channel {
	case 0:
		mask = maskChannel0
	case 1:
		mask = maskChannel1
	default:
		return nil, false
	}
	return []hw.FieldWrite{{Reg: hw.RegIOC, Mask: mask, Bits: selector * selectorStride}}, true
}

func (b *Board) Profiles() []ifc.SampleRateProfile {
	return profiles
}

func (b *Board) PortSetup(w *hw.Writer) {
	w.Write(hw.RegPORTCCFG, 0)
	w.Write(hw.RegPORTACFG, 0)
	w.Write(hw.RegOEC, 0xff)
	w.Write(hw.RegOEA, 0x80)
}

func (b *Board) CalibrationPin() (hw.Reg, uint8) {
	return hw.RegIOA, calibrationBit
}

func (b *Board) TimerPeriod() time.Duration {
	return TimerPeriod
}

func (b *Board) LEDFields(led ifc.LED) []hw.FieldWrite {
	bits := uint8(ledOff)
	switch led {
	case ifc.LEDRed:
		bits = ledRed
	case ifc.LEDGreen:
		bits = ledGreen
	}
	return []hw.FieldWrite{{Reg: hw.RegIOC, Mask: ledMask, Bits: bits}}
}
