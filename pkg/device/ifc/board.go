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
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

// SampleRateProfile is one row of a board's sample rate table
type SampleRateProfile struct {
	Rate     uint8
	Wait0    uint8
	Wait1    uint8
	Opc0     uint8
	Opc1     uint8
	Out0     uint8
	IFConfig uint8
}

const (
	// IFCONFIG bit 6 selects the 48 MHz internal interface clock
	ifConfigClock48 = 0x40
	// opcode 3 makes the sequencer sample on every clock
	opcodeEveryClock = 3
	// opcode 1 in the second record reuses the first wait count only
	opcodeSingleWait = 1
)

// Clock returns the sequencer clock selected by IFConfig
func (p SampleRateProfile) Clock() physic.Frequency {
	if p.IFConfig&ifConfigClock48 != 0 {
		return 48 * physic.MegaHertz
	}
	return 30 * physic.MegaHertz
}

// Frequency returns the sample frequency the microprogram produces
func (p SampleRateProfile) Frequency() physic.Frequency {
	clock := p.Clock()
	switch {
	case p.Opc0 == opcodeEveryClock:
		return clock
	case p.Opc1 == opcodeSingleWait:
		return clock / physic.Frequency(int(p.Wait0)+1)
	}
	return clock / physic.Frequency(int(p.Wait0)+int(p.Wait1)+1)
}

func (p SampleRateProfile) String() string {
	return fmt.Sprintf("rate %d: %s (wait %d/%d, opcode %d/%d, out 0x%02x, ifconfig 0x%02x)",
		p.Rate, p.Frequency(), p.Wait0, p.Wait1, p.Opc0, p.Opc1, p.Out0, p.IFConfig)
}

type LED uint8

const (
	LEDOff LED = iota
	LEDRed
	LEDGreen
)

func (l LED) String() string {
	switch l {
	case LEDRed:
		return "red"
	case LEDGreen:
		return "green"
	}
	return "off"
}

// USBInfo is what the descriptor tables say about the board
type USBInfo struct {
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
}

// Board describes the wiring of one instrument model around the FX2
type Board interface {
	Name() string
	USB() USBInfo
	// Ranges returns the accepted voltage range codes
	Ranges() []uint8
	// VoltageFields returns the register fields selecting a range on a
	// channel, false if the code is not accepted
	VoltageFields(channel, code uint8) ([]hw.FieldWrite, bool)
	// Profiles returns the sample rate table
	Profiles() []SampleRateProfile
	// PortSetup configures GPIO directions after power-up
	PortSetup(w *hw.Writer)
	// CalibrationPin returns the register and bit toggled by the periodic timer
	CalibrationPin() (hw.Reg, uint8)
	// TimerPeriod is the reload period of the timer interrupt, half a
	// calibration cycle
	TimerPeriod() time.Duration
}

// IndicatorBoard is implemented by boards with a status LED
type IndicatorBoard interface {
	Board
	LEDFields(led LED) []hw.FieldWrite
}

// CouplingBoard is implemented by boards with switchable AC coupling
type CouplingBoard interface {
	Board
	CouplingFields(cfg uint8) []hw.FieldWrite
}

// Link gives access to the USB link state owned by the USB core
type Link interface {
	Speed() usb.Speed
	ConfigDescriptor(speed usb.Speed) []byte
}
