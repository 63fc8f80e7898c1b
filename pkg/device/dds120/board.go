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

// Package dds120 describes the SainSmart DDS120 wiring.
//
// The gain stage has an attenuator (-6 dB or -20 dB) followed by three
// feedback resistors:
//
//	ch0 PC1 PC2 PC3   ch1 PE1 PC4 PC5   gain
//	    1   0   0         1   0   0     x0.1
//	    1   0   1         1   0   1     x0.2
//	    1   1   0         1   1   0     x0.4
//	    0   0   0         0   0   0     x0.5
//	    0   0   1         0   0   1     x1
//	    0   1   0         0   1   0     x2
//
// PE3 and PE0 bypass the AC coupling capacitor of channel 0 and 1, PE2 is the
// calibration output.
package dds120

import (
	"time"

	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/hw"
)

const Name = "dds120"

const TimerPeriod = time.Millisecond

const (
	maskC0 = 0x0e
	maskC1 = 0x30
	maskE1 = 0x02

	couplingCh0     = 0x01
	couplingCh1     = 0x10
	couplingBypass0 = 0x08
	couplingBypass1 = 0x01

	calibrationBit = 0x04
)

type rangeBits struct {
	c uint8
	e uint8
}

var channel0 = map[uint8]rangeBits{
	1:  {c: 0x02},
	2:  {c: 0x06},
	5:  {c: 0x00},
	10: {c: 0x04},
	20: {c: 0x08},
}

var channel1 = map[uint8]rangeBits{
	1:  {c: 0x00, e: 0x02},
	2:  {c: 0x10, e: 0x02},
	5:  {c: 0x00, e: 0x00},
	10: {c: 0x10, e: 0x00},
	20: {c: 0x20, e: 0x00},
}

var ranges = []uint8{1, 2, 5, 10, 20}

// Shared rates run from the 48 MHz clock, the extra ones from 30 MHz
var profiles = []ifc.SampleRateProfile{
	{Rate: 48, Wait0: 0x80, Wait1: 0, Opc0: 3, Opc1: 0, Out0: 0x00, IFConfig: 0xea},
	{Rate: 30, Wait0: 0x80, Wait1: 0, Opc0: 3, Opc1: 0, Out0: 0x00, IFConfig: 0xaa},
	{Rate: 24, Wait0: 1, Wait1: 0, Opc0: 2, Opc1: 1, Out0: 0x40, IFConfig: 0xea},
	{Rate: 16, Wait0: 1, Wait1: 1, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 15, Wait0: 1, Wait1: 0, Opc0: 2, Opc1: 1, Out0: 0x40, IFConfig: 0xaa},
	{Rate: 12, Wait0: 2, Wait1: 1, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 11, Wait0: 1, Wait1: 1, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xaa},
	{Rate: 8, Wait0: 3, Wait1: 2, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 6, Wait0: 2, Wait1: 2, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xaa},
	{Rate: 5, Wait0: 3, Wait1: 2, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xaa},
	{Rate: 4, Wait0: 6, Wait1: 5, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 3, Wait0: 5, Wait1: 4, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xaa},
	{Rate: 2, Wait0: 12, Wait1: 11, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 1, Wait0: 24, Wait1: 23, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 50, Wait0: 48, Wait1: 47, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 20, Wait0: 120, Wait1: 119, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
	{Rate: 10, Wait0: 240, Wait1: 239, Opc0: 2, Opc1: 0, Out0: 0x40, IFConfig: 0xea},
}

type Board struct{}

var _ ifc.CouplingBoard = &Board{}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Name() string {
	return Name
}

func (b *Board) USB() ifc.USBInfo {
	return ifc.USBInfo{
		VendorID:     0x8102,
		ProductID:    0x8102,
		Manufacturer: "SainSmart",
		Product:      "DDS120",
	}
}

func (b *Board) Ranges() []uint8 {
	return ranges
}

func (b *Board) VoltageFields(channel, code uint8) ([]hw.FieldWrite, bool) {
	switch channel {
	case 0:
		bits, ok := channel0[code]
		if !ok {
			return nil, false
		}
		return []hw.FieldWrite{{Reg: hw.RegIOC, Mask: maskC0, Bits: bits.c}}, true
	case 1:
		bits, ok := channel1[code]
		if !ok {
			return nil, false
		}
		return []hw.FieldWrite{
			{Reg: hw.RegIOC, Mask: maskC1, Bits: bits.c},
			{Reg: hw.RegIOE, Mask: maskE1, Bits: bits.e},
		}, true
	}
	return nil, false
}

func (b *Board) Profiles() []ifc.SampleRateProfile {
	return profiles
}

func (b *Board) PortSetup(w *hw.Writer) {
	w.Write(hw.RegPORTCCFG, 0)
	w.Write(hw.RegPORTACFG, 0)
	w.Write(hw.RegPORTECFG, 0)
	w.Write(hw.RegOEE, 0xff)
	w.Write(hw.RegOEC, 0xff)
	w.Write(hw.RegOEA, 0x80)
	w.Modify(hw.FieldWrite{Reg: hw.RegIOA, Mask: 0x80, Bits: 0x80})
}

func (b *Board) CalibrationPin() (hw.Reg, uint8) {
	return hw.RegIOE, calibrationBit
}

func (b *Board) TimerPeriod() time.Duration {
	return TimerPeriod
}

func (b *Board) CouplingFields(cfg uint8) []hw.FieldWrite {
	var bits uint8
	if cfg&couplingCh0 != 0 {
		bits |= couplingBypass0
	}
	if cfg&couplingCh1 != 0 {
		bits |= couplingBypass1
	}
	return []hw.FieldWrite{{Reg: hw.RegIOE, Mask: couplingBypass0 | couplingBypass1, Bits: bits}}
}
