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
	"sync"
	"time"

	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
)

const (
	DefaultReadyTimeout = 100 * time.Millisecond
	// DefaultSettleDelay covers the idle loop run between FIFO reset and the
	// readiness poll
	DefaultSettleDelay = 100 * time.Microsecond
)

type Options struct {
	ReadyTimeout time.Duration
	SettleDelay  time.Duration
}

// Device is the acquisition-control core of one instrument. All state
// changes happen under mu, normally from the single goroutine running Loop.
type Device struct {
	board     ifc.Board
	port      hw.Port
	link      ifc.Link
	opts      Options
	indicator Indicator
	signals   *Signals

	mu    sync.Mutex
	state DeviceState
}

// NewDevice returns a device in power-on state. Call Init before use.
func NewDevice(board ifc.Board, port hw.Port, link ifc.Link, opts Options) *Device {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	return &Device{
		board:   board,
		port:    port,
		link:    link,
		opts:    opts,
		signals: NewSignals(),
		state: DeviceState{
			Channels: 2,
		},
	}
}

func (d *Device) Board() ifc.Board {
	return d.board
}

func (d *Device) Signals() *Signals {
	return d.signals
}

func (d *Device) Indicator() *Indicator {
	return &d.indicator
}

// State returns a copy of the device state
func (d *Device) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Device) Snapshot() Snapshot {
	state := d.State()
	snapshot := Snapshot{
		Board:        d.board.Name(),
		LinkSpeed:    d.link.Speed().String(),
		TransferMode: state.TransferMode.String(),
		Sampling:     state.Sampling.String(),
		Channels:     state.Channels,
		Voltage:      []int{int(state.Voltage[0]), int(state.Voltage[1])},
		SampleRate:   state.SampleRate,
		Coupling:     state.Coupling,
	}
	if profile, ok := d.profile(state.SampleRate); ok {
		snapshot.Frequency = profile.Frequency().String()
	}
	if _, ok := d.board.(ifc.IndicatorBoard); ok {
		snapshot.LED = d.indicator.LED().String()
	}
	return snapshot
}

// Init brings the hardware into the power-on configuration: sequencer idle,
// both channels at range 1, rate 1, two channels, bulk transfers.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	log.Info("Initializing %s", d.board.Name())

	w := hw.NewWriter(d.port)
	w.Write(hw.RegEP4CFG, 0)
	w.Write(hw.RegEP8CFG, 0)
	// tristate all outputs in idle mode
	w.Write(hw.RegGPIFIDLECTL, 0x00)
	w.Write(hw.RegGPIFCTLCFG, 0x80)
	w.Write(hw.RegGPIFWFSELECT, 0x00)
	w.Write(hw.RegGPIFREADYSTAT, 0x00)
	if err := w.Err(); err != nil {
		return err
	}
	if err := d.stopSampling(); err != nil {
		return err
	}
	for _, channel := range []uint8{0, 1} {
		if err := d.setVoltage(channel, 1); err != nil {
			return err
		}
	}
	if err := d.setSampleRate(1); err != nil {
		return err
	}
	if err := d.setNumChannels(2); err != nil {
		return err
	}
	if err := d.selectInterface(0); err != nil {
		return err
	}
	w = hw.NewWriter(d.port)
	d.board.PortSetup(w)
	return w.Err()
}

func (d *Device) profile(rate uint8) (ifc.SampleRateProfile, bool) {
	for _, p := range d.board.Profiles() {
		if p.Rate == rate {
			return p, true
		}
	}
	return ifc.SampleRateProfile{}, false
}

func (d *Device) setLED(w *hw.Writer, led ifc.LED) {
	board, ok := d.board.(ifc.IndicatorBoard)
	if !ok {
		return
	}
	for _, f := range board.LEDFields(led) {
		w.Modify(f)
	}
}

// ensureIdle stops a running acquisition before configuration changes
func (d *Device) ensureIdle() error {
	if d.state.Sampling == SamplingIdle {
		return nil
	}
	return d.stopSampling()
}
