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
package control

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/gopacket"
	"golang.org/x/sync/errgroup"

	"jinr.ru/greenlab/go-dso/pkg/config"
	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/hw/sim"
	"jinr.ru/greenlab/go-dso/pkg/layers"
	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/srv"
	"jinr.ru/greenlab/go-dso/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

const MaxFrameSize = 65536

// ControlServer emulates one digitizer. Control transfers arrive as UDP
// frames or API calls and are all applied by the device control loop.
type ControlServer struct {
	srv.Server
	dev   *device.Device
	core  *usb.Core
	loop  *device.Loop
	port  *sim.Port
	state *DeviceState
	api   ifc.ApiServer
}

var _ ifc.ControlServer = &ControlServer{}

// NewControlServer ...
func NewControlServer(ctx context.Context, cfg *config.Config) (*ControlServer, error) {
	log.Debug("Initializing control server with address: %s", cfg.ControlAddress())

	uaddr, err := net.ResolveUDPAddr("udp", cfg.ControlAddress())
	if err != nil {
		return nil, err
	}

	s, err := newControlServer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.UDPAddr = uaddr

	apiServer, err := NewApiServer(cfg, s)
	if err != nil {
		s.state.Close()
		return nil, err
	}
	s.api = apiServer
	return s, nil
}

// newControlServer builds the device, its USB core and the state store
// without any network setup
func newControlServer(ctx context.Context, cfg *config.Config) (*ControlServer, error) {
	board, err := device.NewBoard(cfg.Board)
	if err != nil {
		return nil, err
	}
	speed, err := usb.ParseSpeed(cfg.LinkSpeed)
	if err != nil {
		return nil, err
	}

	info := board.USB()
	core := usb.NewCore(usb.NewDescriptorSet(info.VendorID, info.ProductID, info.Manufacturer, info.Product))
	core.SetSpeed(speed)
	core.SetStrictVendorErrors(cfg.StrictVendorErrors)

	port := sim.NewPort()
	port.SetRecording(false)

	dev := device.NewDevice(board, port, core, device.Options{ReadyTimeout: cfg.ReadyTimeout})
	core.Attach(dev)
	if err := dev.Init(); err != nil {
		return nil, err
	}

	period := cfg.TimerPeriod
	if period == 0 {
		period = board.TimerPeriod()
	}

	state, err := NewDeviceState(cfg.DBPath, cfg.Name)
	if err != nil {
		return nil, err
	}

	s := &ControlServer{
		Server: srv.Server{
			Context: ctx,
			Config:  cfg,
			ChIn:    make(chan srv.InPacket),
			ChOut:   make(chan srv.OutPacket),
		},
		dev:   dev,
		core:  core,
		loop:  device.NewLoop(dev, core, period),
		port:  port,
		state: state,
	}
	s.loop.OnTransfer(s.onTransfer)
	s.loop.OnSpeedChange(func(speed usb.Speed) {
		s.persist()
	})
	s.persist()
	return s, nil
}

func (s *ControlServer) Run() error {
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer s.state.Close()

	log.Info("Emulating %s as %s: control %s api %s",
		s.dev.Board().Name(), s.Config.Name, s.UDPAddr, s.Config.ApiAddress())

	g, ctx := errgroup.WithContext(s.Server.Context)
	s.Server.Context = ctx

	g.Go(func() error {
		return s.loop.Run(ctx)
	})
	g.Go(func() error {
		return s.api.Run(ctx)
	})
	// Read UDP frames from wire and put them to input queue
	g.Go(func() error {
		return s.read(ctx, conn)
	})
	// Decode frames from input queue and pass them to the control loop
	g.Go(func() error {
		source := gopacket.NewPacketSource(s, layers.ControlLayerType)
		for packet := range source.Packets() {
			s.handlePacket(ctx, packet)
		}
		return nil
	})
	// Read frames from output queue and send them to wire
	g.Go(func() error {
		return s.send(ctx, conn)
	})
	g.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return nil
	})
	return g.Wait()
}

func (s *ControlServer) read(ctx context.Context, conn *net.UDPConn) error {
	buffer := make([]byte, MaxFrameSize)
	for {
		length, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		data := make([]byte, length)
		copy(data, buffer[:length])
		captureInfo := gopacket.CaptureInfo{
			Length:        length,
			CaptureLength: length,
			Timestamp:     time.Now(),
			AncillaryData: []interface{}{addr},
		}
		select {
		case s.ChIn <- srv.InPacket{Data: data, CaptureInfo: captureInfo}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *ControlServer) send(ctx context.Context, conn *net.UDPConn) error {
	for {
		select {
		case outPacket := <-s.ChOut:
			if _, err := conn.WriteToUDP(outPacket.Data, outPacket.UDPAddr); err != nil {
				log.Error("Error while sending data to %s", outPacket.UDPAddr)
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *ControlServer) handlePacket(ctx context.Context, packet gopacket.Packet) {
	addr, err := srv.GetAddrPort(packet)
	if err != nil {
		log.Error(err.Error())
		return
	}
	layer := packet.Layer(layers.ControlLayerType)
	if layer == nil {
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			log.Debug("Drop malformed frame from %s: %s", addr, errLayer.Error())
		}
		return
	}
	cl := layer.(*layers.ControlLayer)
	if cl.Type != layers.ControlTypeRequest {
		log.Debug("Drop %s frame from %s", cl.Type, addr)
		return
	}

	response, err := s.respond(ctx, cl)
	if err != nil {
		log.Error("Error while encoding response to %s: %s", addr, err)
		return
	}
	select {
	case s.ChOut <- srv.OutPacket{Data: response, UDPAddr: addr}:
	case <-ctx.Done():
	}
}

// respond runs the transfer and encodes the answer frame. Any failure is
// reported to the host as a stall.
func (s *ControlServer) respond(ctx context.Context, cl *layers.ControlLayer) ([]byte, error) {
	submitCtx, cancel := context.WithTimeout(ctx, config.SubmitTimeout)
	defer cancel()
	data, err := s.Submit(submitCtx, cl.Setup, cl.Data)
	status := layers.ControlStatusAck
	if err != nil {
		var stall usb.ErrStall
		if !errors.As(err, &stall) {
			log.Error("Transfer %d failed: %s", cl.Seq, err)
		}
		status = layers.ControlStatusStall
		data = nil
	}
	return layers.ControlResponseToBytes(status, data, cl.Seq)
}

func (s *ControlServer) Submit(ctx context.Context, setup usb.SetupPacket, data []byte) ([]byte, error) {
	return s.loop.Submit(ctx, setup, data)
}

func (s *ControlServer) DeviceName() string {
	return s.Config.Name
}

func (s *ControlServer) State() ifc.State {
	return s.state
}

// SetLinkSpeed emulates a bus reset at another speed
func (s *ControlServer) SetLinkSpeed(speed usb.Speed) {
	s.core.SetSpeed(speed)
}

func (s *ControlServer) onTransfer(setup usb.SetupPacket, err error) {
	if err != nil {
		log.Debug("Transfer stalled: %s: %s", setup.String(), err)
	}
	if setup.IsDeviceToHost() {
		return
	}
	s.persist()
}

func (s *ControlServer) persist() {
	err := s.state.Store(s.Config.Name, s.port.Registers(), s.port.Program(), s.dev.Snapshot())
	if err != nil {
		log.Error("Error while storing device state: %s", err)
	}
}
