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

	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
)

const (
	abortAll = 0xff
	// transaction count of 0x2800 bytes per GPIF transaction
	transactionCountHigh = 0x28
	transactionCountLow  = 0x00
)

// FIFO reset stages: NAK all, reset EP2, reset EP6, release
var fifoResetStages = []uint8{0x80, 0x82, 0x86, 0x00}

// end-of-packet and trigger values per transfer mode
var (
	inPacketEnd = map[TransferMode]uint8{
		TransferBulk:        6,
		TransferIsochronous: 2,
	}
	triggerValue = map[TransferMode]uint8{
		TransferBulk:        6,
		TransferIsochronous: 4,
	}
)

// StopSampling aborts the sequencer and flushes the active endpoint. It is
// safe in any state.
func (d *Device) StopSampling() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopSampling()
}

func (d *Device) stopSampling() error {
	w := hw.NewWriter(d.port)
	w.Write(hw.RegGPIFABORT, abortAll)
	w.SyncDelay()
	w.Write(hw.RegINPKTEND, inPacketEnd[d.state.TransferMode])
	if err := w.Err(); err != nil {
		return err
	}
	if d.state.Sampling != SamplingIdle {
		log.Info("Sampling stopped")
	}
	d.state.Sampling = SamplingIdle
	return nil
}

// StartSampling resets the FIFOs, waits for the sequencer and triggers
// continuous acquisition. If the sequencer does not become ready within the
// ready timeout the device goes back to idle.
func (d *Device) StartSampling(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startSampling(ctx)
}

func (d *Device) startSampling(ctx context.Context) error {
	w := hw.NewWriter(d.port)
	w.Write(hw.RegGPIFABORT, abortAll)
	for _, stage := range fifoResetStages {
		w.SyncDelay()
		w.Write(hw.RegFIFORESET, stage)
	}
	if err := w.Err(); err != nil {
		d.state.Sampling = SamplingIdle
		return err
	}
	d.state.Sampling = SamplingArmed
	log.Debug("Sampling armed, waiting for sequencer")

	w.Settle(d.opts.SettleDelay)
	if err := d.waitReady(ctx); err != nil {
		d.state.Sampling = SamplingIdle
		log.Error("Start sampling failed: %s", err)
		return err
	}

	w.SyncDelay()
	w.Write(hw.RegGPIFTCB1, transactionCountHigh)
	w.SyncDelay()
	w.Write(hw.RegGPIFTCB0, transactionCountLow)
	w.Write(hw.RegGPIFTRIG, triggerValue[d.state.TransferMode])
	if err := w.Err(); err != nil {
		d.state.Sampling = SamplingIdle
		return err
	}
	d.state.Sampling = SamplingRunning
	log.Info("Sampling started: %s transfers, rate %d", d.state.TransferMode, d.state.SampleRate)

	d.indicator.Running()
	d.setLED(w, ifc.LEDGreen)
	return w.Err()
}

func (d *Device) waitReady(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, d.opts.ReadyTimeout)
	defer cancel()
	err := d.port.WaitFlag(waitCtx, hw.RegGPIFTRIG, hw.GPIFTrigDone)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrSequencerNotReady{Timeout: d.opts.ReadyTimeout}
	}
	return err
}
