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

package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	c "github.com/smartystreets/goconvey/convey"

	"jinr.ru/greenlab/go-dso/pkg/hw"
)

func TestSequencerFlag(t *testing.T) {
	c.Convey("Given a freshly powered port", t, func() {
		p := NewPort()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		c.Convey("The sequencer reports done", func() {
			c.So(p.WaitFlag(ctx, hw.RegGPIFTRIG, hw.GPIFTrigDone), c.ShouldBeNil)
		})

		c.Convey("When a transaction is triggered", func() {
			c.So(p.Write(hw.RegGPIFTRIG, 6), c.ShouldBeNil)
			value, _ := p.Read(hw.RegGPIFTRIG)
			c.So(value, c.ShouldEqual, 6)

			c.Convey("Then an abort brings the done flag back", func() {
				c.So(p.Write(hw.RegGPIFABORT, 0xff), c.ShouldBeNil)
				value, _ := p.Read(hw.RegGPIFTRIG)
				c.So(value&hw.GPIFTrigDone, c.ShouldEqual, hw.GPIFTrigDone)
			})
		})

		c.Convey("When the sequencer is hung", func() {
			p.SetHung(true)
			err := p.WaitFlag(ctx, hw.RegGPIFTRIG, hw.GPIFTrigDone)
			c.Convey("Then the wait ends with the context", func() {
				c.So(errors.Is(err, context.DeadlineExceeded), c.ShouldBeTrue)
			})
		})
	})
}

func TestUploadSequencer(t *testing.T) {
	p := NewPort()
	program := make([]byte, hw.WaveDataSize)
	program[0] = 24
	program[127] = 0x5a
	if err := p.UploadSequencer(hw.RegWaveData, program); err != nil {
		t.Fatalf("UploadSequencer() error = %v", err)
	}
	got := p.Program()
	if got[0] != 24 || got[127] != 0x5a {
		t.Errorf("Program() = % x", got)
	}
	regs := p.Registers()
	if regs[hw.RegAUTOPTRSETUP] != 0x07 {
		t.Errorf("AUTOPTRSETUP = %#x, want 0x07", regs[hw.RegAUTOPTRSETUP])
	}

	err := p.UploadSequencer(hw.RegWaveData+1, program)
	var rangeErr ErrUploadRange
	if !errors.As(err, &rangeErr) {
		t.Errorf("UploadSequencer() past the end error = %v, want ErrUploadRange", err)
	}

	ops := p.Ops()
	if len(ops) != 1 || ops[0].Kind != OpUpload || len(ops[0].Data) != hw.WaveDataSize {
		t.Errorf("Ops() = %v, want a single upload", ops)
	}
}

func TestWriterModify(t *testing.T) {
	p := NewPort()
	w := hw.NewWriter(p)
	w.Write(hw.RegIOC, 0xff)
	w.Modify(hw.FieldWrite{Reg: hw.RegIOC, Mask: 0x1c, Bits: 0x48})
	if err := w.Err(); err != nil {
		t.Fatalf("Writer error = %v", err)
	}
	if got := p.Registers()[hw.RegIOC]; got != 0xeb {
		t.Errorf("IOC = %#x, want 0xeb", got)
	}
}
