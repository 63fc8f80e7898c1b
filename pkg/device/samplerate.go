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
	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
)

// Sequencer program layout: four 8-byte records (length/wait, opcode,
// output, logic function) followed by zeros up to the end of memory.
const (
	recordSize    = 8
	recordWait    = 0
	recordOpcode  = 1 * recordSize
	recordOutput  = 2 * recordSize
	recordLogic   = 3 * recordSize
	ProgramLength = 4 * recordSize
	// CTL2 stays high in the second and third state
	outputHold = 0x44
)

// Microprogram returns the sequencer memory image for a profile
func Microprogram(p ifc.SampleRateProfile) []byte {
	program := make([]byte, hw.WaveDataSize)
	program[recordWait] = p.Wait0
	program[recordWait+1] = p.Wait1
	program[recordWait+2] = 1

	program[recordOpcode] = p.Opc0
	program[recordOpcode+1] = p.Opc1
	program[recordOpcode+2] = 1

	program[recordOutput] = p.Out0
	program[recordOutput+1] = outputHold
	program[recordOutput+2] = outputHold
	// logic function record and padding stay zero
	return program
}

// SetSampleRate programs the sequencer for a rate code from the board table
func (d *Device) SetSampleRate(rate uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureIdle(); err != nil {
		return err
	}
	return d.setSampleRate(rate)
}

func (d *Device) setSampleRate(rate uint8) error {
	profile, ok := d.profile(rate)
	if !ok {
		return ErrInvalidRate{Rate: rate}
	}
	log.Debug("Sample rate: %s", profile)
	w := hw.NewWriter(d.port)
	w.Write(hw.RegIFCONFIG, profile.IFConfig)
	w.Upload(hw.RegWaveData, Microprogram(profile))
	if err := w.Err(); err != nil {
		return err
	}
	d.state.SampleRate = rate
	return nil
}
