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

package hw

import (
	"context"
	"fmt"
	"time"
)

// Port is the register level capability of the instrument. Everything the
// acquisition core does to the hardware goes through it.
type Port interface {
	// Read returns the current value of a register
	Read(reg Reg) (uint8, error)
	// Write stores a value into a register
	Write(reg Reg, value uint8) error
	// WaitFlag blocks until any bit of mask is set in reg or ctx is done
	WaitFlag(ctx context.Context, reg Reg, mask uint8) error
	// UploadSequencer writes data to sequencer program memory starting at
	// addr through an auto-incrementing pointer
	UploadSequencer(addr Reg, data []byte) error
	// Settle waits for register writes to propagate
	Settle(d time.Duration)
}

// FieldWrite replaces the bits selected by Mask in Reg with Bits
type FieldWrite struct {
	Reg  Reg
	Mask uint8
	Bits uint8
}

func (f FieldWrite) Apply(value uint8) uint8 {
	return (value &^ f.Mask) | (f.Bits & f.Mask)
}

func (f FieldWrite) String() string {
	return fmt.Sprintf("%s[%02x]=%02x", f.Reg, f.Mask, f.Bits&f.Mask)
}

// Writer chains register operations and keeps the first error so that
// long sequences can be written without checking every step.
type Writer struct {
	port Port
	err  error
}

func NewWriter(port Port) *Writer {
	return &Writer{port: port}
}

func (w *Writer) Write(reg Reg, value uint8) {
	if w.err != nil {
		return
	}
	if err := w.port.Write(reg, value); err != nil {
		w.err = ErrPort{Op: "write", Reg: reg, Err: err}
	}
}

// Modify performs read-modify-write of a register field. A full mask skips
// the read.
func (w *Writer) Modify(f FieldWrite) {
	if w.err != nil {
		return
	}
	if f.Mask == 0xff {
		w.Write(f.Reg, f.Bits)
		return
	}
	value, err := w.port.Read(f.Reg)
	if err != nil {
		w.err = ErrPort{Op: "read", Reg: f.Reg, Err: err}
		return
	}
	w.Write(f.Reg, f.Apply(value))
}

// Toggle inverts the bits of mask in a register
func (w *Writer) Toggle(reg Reg, mask uint8) {
	if w.err != nil {
		return
	}
	value, err := w.port.Read(reg)
	if err != nil {
		w.err = ErrPort{Op: "read", Reg: reg, Err: err}
		return
	}
	w.Write(reg, value^mask)
}

func (w *Writer) Upload(addr Reg, data []byte) {
	if w.err != nil {
		return
	}
	if err := w.port.UploadSequencer(addr, data); err != nil {
		w.err = ErrPort{Op: "upload", Reg: addr, Err: err}
	}
}

// SyncDelay is the short pause required between writes to FIFO and GPIF
// registers
func (w *Writer) SyncDelay() {
	if w.err != nil {
		return
	}
	w.port.Settle(SyncDelay)
}

func (w *Writer) Settle(d time.Duration) {
	if w.err != nil {
		return
	}
	w.port.Settle(d)
}

func (w *Writer) Err() error {
	return w.err
}

const (
	// SyncDelay covers the three CPU cycles needed by FX2 FIFO registers
	SyncDelay = 250 * time.Nanosecond
)

// ErrPort wraps a failure of the underlying port
type ErrPort struct {
	Op  string
	Reg Reg
	Err error
}

func (e ErrPort) Error() string {
	return fmt.Sprintf("Hardware port %s %s failed: %s", e.Op, e.Reg, e.Err)
}

func (e ErrPort) Unwrap() error {
	return e.Err
}
