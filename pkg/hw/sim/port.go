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

// Package sim implements hw.Port on top of an in-memory register file. It
// reproduces the parts of the FX2 behaviour the acquisition core relies on
// (GPIF done flag, abort, auto-pointer uploads) and records every operation.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
)

type OpKind int

const (
	OpWrite OpKind = iota
	OpUpload
	OpWait
	OpSettle
)

func (k OpKind) String() string {
	switch k {
	case OpWrite:
		return "write"
	case OpUpload:
		return "upload"
	case OpWait:
		return "wait"
	case OpSettle:
		return "settle"
	}
	return "unknown"
}

// Op is one recorded port operation
type Op struct {
	Kind  OpKind
	Reg   hw.Reg
	Value uint8
	Data  []byte
	Delay time.Duration
}

func (op Op) String() string {
	switch op.Kind {
	case OpWrite:
		return fmt.Sprintf("%s=%02x", op.Reg, op.Value)
	case OpUpload:
		return fmt.Sprintf("upload %s [%d]", op.Reg, len(op.Data))
	case OpWait:
		return fmt.Sprintf("wait %s&%02x", op.Reg, op.Value)
	case OpSettle:
		return fmt.Sprintf("settle %s", op.Delay)
	}
	return op.Kind.String()
}

const (
	DefaultPollInterval   = time.Millisecond
	autoPtrSetupIncrement = 0x07
)

// ErrUploadRange returned when an upload does not fit the program memory
type ErrUploadRange struct {
	Addr hw.Reg
	Size int
}

func (e ErrUploadRange) Error() string {
	return fmt.Sprintf("Upload of %d bytes at %s does not fit sequencer memory", e.Size, e.Addr)
}

type Port struct {
	mu           sync.Mutex
	regs         map[hw.Reg]uint8
	wave         [hw.WaveDataSize]byte
	ops          []Op
	hung         bool
	pollInterval time.Duration
	noRecord     bool
}

var _ hw.Port = &Port{}

// NewPort returns a port in power-on state with an idle sequencer
func NewPort() *Port {
	return &Port{
		regs: map[hw.Reg]uint8{
			hw.RegGPIFTRIG: hw.GPIFTrigDone,
		},
		pollInterval: DefaultPollInterval,
	}
}

// SetHung makes the sequencer never report ready, as a wedged GPIF would
func (p *Port) SetHung(hung bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hung = hung
}

// SetRecording turns the operation log on or off. Long running emulators
// disable it.
func (p *Port) SetRecording(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.noRecord = !on
}

func (p *Port) record(op Op) {
	if !p.noRecord {
		p.ops = append(p.ops, op)
	}
}

func (p *Port) SetPollInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollInterval = d
}

func (p *Port) Read(reg hw.Reg) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read(reg), nil
}

func (p *Port) read(reg hw.Reg) uint8 {
	value := p.regs[reg]
	if reg == hw.RegGPIFTRIG && p.hung {
		value &^= hw.GPIFTrigDone
	}
	return value
}

func (p *Port) Write(reg hw.Reg, value uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Op{Kind: OpWrite, Reg: reg, Value: value})
	switch reg {
	case hw.RegGPIFABORT:
		// abort returns the sequencer to idle
		p.regs[hw.RegGPIFABORT] = value
		p.regs[hw.RegGPIFTRIG] |= hw.GPIFTrigDone
	case hw.RegGPIFTRIG:
		// a trigger starts a transaction, done stays low until abort
		p.regs[hw.RegGPIFTRIG] = value &^ hw.GPIFTrigDone
	default:
		p.regs[reg] = value
	}
	return nil
}

func (p *Port) WaitFlag(ctx context.Context, reg hw.Reg, mask uint8) error {
	for {
		p.mu.Lock()
		value := p.read(reg)
		interval := p.pollInterval
		if value&mask != 0 {
			p.record(Op{Kind: OpWait, Reg: reg, Value: mask})
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (p *Port) UploadSequencer(addr hw.Reg, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	offset := int(addr) - int(hw.RegWaveData)
	if offset < 0 || offset+len(data) > len(p.wave) {
		return ErrUploadRange{Addr: addr, Size: len(data)}
	}
	p.regs[hw.RegAUTOPTRSETUP] = autoPtrSetupIncrement
	p.regs[hw.RegAUTOPTRH2] = uint8(addr >> 8)
	p.regs[hw.RegAUTOPTRL2] = uint8(addr)
	copy(p.wave[offset:], data)
	end := uint16(addr) + uint16(len(data))
	p.regs[hw.RegAUTOPTRH2] = uint8(end >> 8)
	p.regs[hw.RegAUTOPTRL2] = uint8(end)

	recorded := make([]byte, len(data))
	copy(recorded, data)
	p.record(Op{Kind: OpUpload, Reg: addr, Data: recorded})
	log.Debug("Sequencer upload: %d bytes at %s", len(data), addr)
	return nil
}

func (p *Port) Settle(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Op{Kind: OpSettle, Delay: d})
}

// Ops returns a copy of the recorded operations
func (p *Port) Ops() []Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := make([]Op, len(p.ops))
	copy(ops, p.ops)
	return ops
}

// Writes returns recorded register writes only
func (p *Port) Writes() []Op {
	var writes []Op
	for _, op := range p.Ops() {
		if op.Kind == OpWrite {
			writes = append(writes, op)
		}
	}
	return writes
}

func (p *Port) ResetOps() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = nil
}

// Registers returns a copy of the register file
func (p *Port) Registers() map[hw.Reg]uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	regs := make(map[hw.Reg]uint8, len(p.regs))
	for reg := range p.regs {
		regs[reg] = p.read(reg)
	}
	return regs
}

// Program returns a copy of the sequencer program memory
func (p *Port) Program() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	program := make([]byte, len(p.wave))
	copy(program, p.wave[:])
	return program
}
