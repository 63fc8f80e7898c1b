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
	"errors"
	"sync"
	"testing"
	"time"

	c "github.com/smartystreets/goconvey/convey"

	"jinr.ru/greenlab/go-dso/pkg/device/hantek6022be"
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

func TestLoop(t *testing.T) {
	c.Convey("Given a running control loop", t, func() {
		dev, port, core := newTestDevice(hantek6022be.NewBoard(), usb.SpeedFull)
		core.Attach(dev)
		c.So(dev.Init(), c.ShouldBeNil)

		loop := NewLoop(dev, core, 0)
		var mu sync.Mutex
		var seen []uint8
		loop.OnTransfer(func(setup usb.SetupPacket, err error) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, setup.Request)
		})
		speeds := make(chan usb.Speed, 1)
		loop.OnSpeedChange(func(speed usb.Speed) {
			speeds <- speed
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- loop.Run(ctx) }()
		defer func() {
			cancel()
			<-done
		}()

		submitCtx, submitCancel := context.WithTimeout(context.Background(), time.Second)
		defer submitCancel()

		c.Convey("Vendor transfers are applied by the loop", func() {
			setup := usb.NewVendorSetup(OpSetSampleRate, []byte{48})
			_, err := loop.Submit(submitCtx, setup, []byte{48})
			c.So(err, c.ShouldBeNil)
			c.So(dev.State().SampleRate, c.ShouldEqual, 48)

			mu.Lock()
			c.So(seen, c.ShouldResemble, []uint8{OpSetSampleRate})
			mu.Unlock()
		})

		c.Convey("Unhandled vendor transfers stall", func() {
			setup := usb.NewVendorSetup(0xf0, []byte{1})
			_, err := loop.Submit(submitCtx, setup, []byte{1})
			var stall usb.ErrStall
			c.So(errors.As(err, &stall), c.ShouldBeTrue)
		})

		c.Convey("A link speed change reconfigures the endpoints", func() {
			core.SetSpeed(usb.SpeedHigh)
			select {
			case speed := <-speeds:
				c.So(speed, c.ShouldEqual, usb.SpeedHigh)
			case <-time.After(time.Second):
				t.Fatal("speed change not handled")
			}
			c.So(port.Registers()[hw.RegEP6AUTOINLENH], c.ShouldEqual, 0x02)
		})

		c.Convey("GET_INTERFACE answers the current alt", func() {
			setup := usb.SetupPacket{RequestType: usb.RequestRecipientInterface, Request: usb.RequestSetInterface, Value: 1}
			_, err := loop.Submit(submitCtx, setup, nil)
			c.So(err, c.ShouldBeNil)
			setup = usb.SetupPacket{RequestType: usb.RequestDeviceToHost | usb.RequestRecipientInterface,
				Request: usb.RequestGetInterface, Length: 1}
			data, err := loop.Submit(submitCtx, setup, nil)
			c.So(err, c.ShouldBeNil)
			c.So(data, c.ShouldResemble, []byte{1})
		})
	})
}

func TestLoopDropsAbandonedTransfers(t *testing.T) {
	dev, _, core := newTestDevice(hantek6022be.NewBoard(), usb.SpeedFull)
	core.Attach(dev)
	if err := dev.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	loop := NewLoop(dev, core, 0)
	var applied []uint8
	loop.OnTransfer(func(setup usb.SetupPacket, err error) {
		applied = append(applied, setup.Request)
	})

	// nothing serves the queue yet, so the submitter gives up
	abandoned, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	setup := usb.NewVendorSetup(OpSetSampleRate, []byte{48})
	if _, err := loop.Submit(abandoned, setup, []byte{48}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Submit() error = %v, want deadline exceeded", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	defer func() {
		stop()
		<-done
	}()

	submitCtx, submitCancel := context.WithTimeout(context.Background(), time.Second)
	defer submitCancel()
	setup = usb.NewVendorSetup(OpSetNumChannels, []byte{1})
	if _, err := loop.Submit(submitCtx, setup, []byte{1}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rate := dev.State().SampleRate; rate != 1 {
		t.Errorf("abandoned transfer applied, sample rate = %d", rate)
	}
	if len(applied) != 1 || applied[0] != OpSetNumChannels {
		t.Errorf("applied transfers = %v", applied)
	}
}

func TestSignals(t *testing.T) {
	s := NewSignals()
	s.Raise(SignalTick)
	s.Raise(SignalSpeedChanged)
	s.Raise(SignalTick)
	select {
	case <-s.Wake():
	default:
		t.Fatal("Raise() did not wake the loop")
	}
	pending := s.Drain()
	if !pending.Has(SignalTick) || !pending.Has(SignalSpeedChanged) {
		t.Errorf("Drain() = %b", pending)
	}
	if s.Drain() != 0 {
		t.Error("second Drain() should be empty")
	}
}
