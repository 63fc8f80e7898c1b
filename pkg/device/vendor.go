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

	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
)

// Vendor request opcodes
const (
	OpSetVoltageCh0  = 0xe0
	OpSetVoltageCh1  = 0xe1
	OpSetSampleRate  = 0xe2
	OpStartSampling  = 0xe3
	OpSetNumChannels = 0xe4
	OpSetCoupling    = 0xe5
)

const startFlag = 1

var opcodeNames = map[uint8]string{
	OpSetVoltageCh0:  "set_voltage_ch0",
	OpSetVoltageCh1:  "set_voltage_ch1",
	OpSetSampleRate:  "set_samplerate",
	OpStartSampling:  "start_sampling",
	OpSetNumChannels: "set_numchannels",
	OpSetCoupling:    "set_coupling",
}

// OpcodeName returns a printable name of a vendor opcode
func OpcodeName(opcode uint8) string {
	if name, ok := opcodeNames[opcode]; ok {
		return name
	}
	return "unknown"
}

// HandleVendorCommand stops acquisition, marks the device busy and applies
// the command. It returns false for opcodes the board does not handle; the
// stop happens for those too. A failure of the command itself is returned
// as the error with handled set to true.
func (d *Device) HandleVendorCommand(ctx context.Context, opcode uint8, payload []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log.Debug("Vendor command 0x%02x (%s) payload % x", opcode, OpcodeName(opcode), payload)
	if err := d.stopSampling(); err != nil {
		return d.handles(opcode), err
	}
	d.indicator.Busy()
	w := hw.NewWriter(d.port)
	d.setLED(w, ifc.LEDRed)
	if err := w.Err(); err != nil {
		return d.handles(opcode), err
	}

	if !d.handles(opcode) {
		log.Warning("Unhandled vendor command 0x%02x", opcode)
		return false, nil
	}
	if len(payload) < 1 {
		return true, ErrShortPayload{Opcode: opcode}
	}
	value := payload[0]

	var err error
	switch opcode {
	case OpSetVoltageCh0, OpSetVoltageCh1:
		err = d.setVoltage(opcode-OpSetVoltageCh0, value)
	case OpSetSampleRate:
		err = d.setSampleRate(value)
	case OpStartSampling:
		if value == startFlag {
			err = d.startSampling(ctx)
		}
	case OpSetNumChannels:
		err = d.setNumChannels(value)
	case OpSetCoupling:
		err = d.setCoupling(value)
	}
	if err != nil {
		log.Error("Vendor command %s(%d) failed: %s", OpcodeName(opcode), value, err)
	}
	return true, err
}

func (d *Device) handles(opcode uint8) bool {
	if opcode == OpSetCoupling {
		_, ok := d.board.(ifc.CouplingBoard)
		return ok
	}
	return opcode >= OpSetVoltageCh0 && opcode <= OpSetNumChannels
}

// SetCoupling switches the AC coupling bypass on boards that have it
func (d *Device) SetCoupling(cfg uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureIdle(); err != nil {
		return err
	}
	return d.setCoupling(cfg)
}

func (d *Device) setCoupling(cfg uint8) error {
	board, ok := d.board.(ifc.CouplingBoard)
	if !ok {
		return ErrNotSupported{Board: d.board.Name(), Feature: "coupling"}
	}
	w := hw.NewWriter(d.port)
	for _, f := range board.CouplingFields(cfg) {
		log.Debug("Coupling 0x%02x: %s", cfg, f)
		w.Modify(f)
	}
	if err := w.Err(); err != nil {
		return err
	}
	d.state.Coupling = cfg
	return nil
}
