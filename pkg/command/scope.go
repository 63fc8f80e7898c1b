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
package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"

	"jinr.ru/greenlab/go-dso/pkg/command/usbdev"
	"jinr.ru/greenlab/go-dso/pkg/config"
	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

// Scope sends acquisition commands to a digitizer
type Scope struct {
	Transport
	board   ifc.Board
	timeout time.Duration
}

// NewScope connects to the device the config points to: the emulator over
// UDP or real hardware over USB
func NewScope(cfg *config.Config) (*Scope, error) {
	board, err := device.NewBoard(cfg.Board)
	if err != nil {
		return nil, err
	}
	var transport Transport
	switch cfg.Host.Transport {
	case config.TransportUSB:
		transport, err = usbdev.Open(board.USB(), cfg.Host.Timeout)
	default:
		address := cfg.Host.Address
		if address == "" {
			address = cfg.ControlAddress()
		}
		transport, err = NewUDPTransport(address, cfg.Host.Timeout)
	}
	if err != nil {
		return nil, err
	}
	return NewScopeWithTransport(board, transport, cfg.Host.Timeout), nil
}

func NewScopeWithTransport(board ifc.Board, transport Transport, timeout time.Duration) *Scope {
	return &Scope{
		Transport: transport,
		board:     board,
		timeout:   timeout,
	}
}

func (s *Scope) Board() ifc.Board {
	return s.board
}

func (s *Scope) vendor(request uint8, payload ...byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	log.Debug("Vendor request %s: %x", device.OpcodeName(request), payload)
	_, err := s.Control(ctx, usb.NewVendorSetup(request, payload), payload)
	return err
}

func (s *Scope) SetVoltage(channel, code uint8) error {
	switch channel {
	case 0:
		return s.vendor(device.OpSetVoltageCh0, code)
	case 1:
		return s.vendor(device.OpSetVoltageCh1, code)
	}
	return device.ErrInvalidChannel{Channel: channel}
}

func (s *Scope) SetSampleRate(rate uint8) error {
	return s.vendor(device.OpSetSampleRate, rate)
}

func (s *Scope) SetNumChannels(n uint8) error {
	return s.vendor(device.OpSetNumChannels, n)
}

func (s *Scope) SetCoupling(cfg uint8) error {
	if _, ok := s.board.(ifc.CouplingBoard); !ok {
		return device.ErrNotSupported{Board: s.board.Name(), Feature: "coupling"}
	}
	return s.vendor(device.OpSetCoupling, cfg)
}

func (s *Scope) StartSampling() error {
	return s.vendor(device.OpStartSampling, 1)
}

func (s *Scope) StopSampling() error {
	return s.vendor(device.OpStartSampling, 0)
}

// SelectInterface issues SET_INTERFACE for interface 0
func (s *Scope) SelectInterface(alt uint8) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	setup := usb.SetupPacket{
		RequestType: usb.RequestHostToDevice | usb.RequestTypeStandard | usb.RequestRecipientInterface,
		Request:     usb.RequestSetInterface,
		Value:       uint16(alt),
	}
	_, err := s.Control(ctx, setup, nil)
	return err
}

// ParseRate accepts a rate code of the board ("24") or a sample frequency
// ("24MHz", "500kHz")
func ParseRate(board ifc.Board, value string) (uint8, error) {
	value = strings.TrimSpace(value)
	if code, err := strconv.ParseUint(value, 10, 8); err == nil {
		for _, p := range board.Profiles() {
			if p.Rate == uint8(code) {
				return p.Rate, nil
			}
		}
		return 0, device.ErrInvalidRate{Rate: uint8(code)}
	}
	var f physic.Frequency
	if err := f.Set(value); err != nil {
		return 0, err
	}
	for _, p := range board.Profiles() {
		if p.Frequency() == f {
			return p.Rate, nil
		}
	}
	return 0, ErrUnknownFrequency{Frequency: f, Board: board.Name()}
}

// ParseRange accepts a range code of the board
func ParseRange(board ifc.Board, channel uint8, value string) (uint8, error) {
	code, err := strconv.ParseUint(strings.TrimSpace(value), 10, 8)
	if err != nil {
		return 0, err
	}
	for _, r := range board.Ranges() {
		if r == uint8(code) {
			return r, nil
		}
	}
	return 0, device.ErrInvalidRange{Channel: channel, Code: uint8(code)}
}
