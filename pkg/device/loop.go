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
	"time"

	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

const TransferQueueSize = 16

type TransferResult struct {
	Data []byte
	Err  error
}

// Transfer is a control transfer waiting for the loop
type Transfer struct {
	Setup usb.SetupPacket
	Data  []byte
	ctx   context.Context
	done  chan TransferResult
}

// Loop is the single control thread of the firmware. Transports only
// enqueue transfers; the loop answers them, drains signals and runs the
// timer.
type Loop struct {
	dev        *Device
	core       *usb.Core
	period     time.Duration
	transfers  chan *Transfer
	onTransfer func(setup usb.SetupPacket, err error)
	onSpeed    func(speed usb.Speed)
}

// NewLoop returns a loop serving core. A zero period disables the timer.
func NewLoop(dev *Device, core *usb.Core, period time.Duration) *Loop {
	return &Loop{
		dev:       dev,
		core:      core,
		period:    period,
		transfers: make(chan *Transfer, TransferQueueSize),
	}
}

// OnTransfer registers a function called by the loop after every transfer,
// before Submit returns
func (l *Loop) OnTransfer(f func(setup usb.SetupPacket, err error)) {
	l.onTransfer = f
}

// OnSpeedChange registers a function called by the loop once the endpoints
// have been reconfigured for a new link speed
func (l *Loop) OnSpeedChange(f func(speed usb.Speed)) {
	l.onSpeed = f
}

// Period returns the timer period, zero if the timer is off
func (l *Loop) Period() time.Duration {
	return l.period
}

// Submit enqueues a control transfer and waits for its result. A transfer
// whose ctx is done before the loop reaches it is dropped.
func (l *Loop) Submit(ctx context.Context, setup usb.SetupPacket, data []byte) ([]byte, error) {
	t := &Transfer{Setup: setup, Data: data, ctx: ctx, done: make(chan TransferResult, 1)}
	select {
	case l.transfers <- t:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case result := <-t.done:
		return result.Data, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loop) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if l.period > 0 {
		ticker := time.NewTicker(l.period)
		defer ticker.Stop()
		tick = ticker.C
	}
	log.Info("Control loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Control loop stopped")
			return ctx.Err()
		case <-l.dev.signals.Wake():
		case <-tick:
			l.dev.signals.Raise(SignalTick)
		case t := <-l.transfers:
			l.process(ctx, t)
		}
		l.drain()
	}
}

func (l *Loop) process(ctx context.Context, t *Transfer) {
	if err := t.ctx.Err(); err != nil {
		log.Warning("Dropping %s: %s", &t.Setup, err)
		t.done <- TransferResult{Err: err}
		return
	}
	data, err := l.core.HandleSetup(ctx, &t.Setup, t.Data)
	// Submit returns only after the callback
	if l.onTransfer != nil {
		l.onTransfer(t.Setup, err)
	}
	t.done <- TransferResult{Data: data, Err: err}
}

func (l *Loop) drain() {
	pending := l.dev.signals.Drain()
	if pending.Has(SignalSpeedChanged) {
		if err := l.dev.HandleSpeedChange(); err != nil {
			log.Error("Link speed change: %s", err)
		} else if l.onSpeed != nil {
			l.onSpeed(l.core.Speed())
		}
	}
	if pending.Has(SignalTick) {
		if err := l.dev.Tick(); err != nil {
			log.Error("Timer: %s", err)
		}
	}
}
