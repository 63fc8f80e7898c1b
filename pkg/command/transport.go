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
	"net"
	"sync"
	"time"

	"jinr.ru/greenlab/go-dso/pkg/layers"
	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

// Transport carries control transfers to a device
type Transport interface {
	Control(ctx context.Context, setup usb.SetupPacket, data []byte) ([]byte, error)
	Close() error
}

// UDPTransport sends control frames to the emulator control port
type UDPTransport struct {
	mu      sync.Mutex
	conn    *net.UDPConn
	seq     uint16
	timeout time.Duration
}

var _ Transport = &UDPTransport{}

func NewUDPTransport(address string, timeout time.Duration) (*UDPTransport, error) {
	log.Debug("Connecting to control port %s", address)
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{conn: conn, timeout: timeout}, nil
}

func (t *UDPTransport) nextSeq() uint16 {
	seq := t.seq
	t.seq++
	return seq
}

// Control sends one request frame and waits for the response carrying the
// same sequence number. Responses to earlier requests are skipped.
func (t *UDPTransport) Control(ctx context.Context, setup usb.SetupPacket, data []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq := t.nextSeq()
	request, err := layers.ControlRequestToBytes(setup, data, seq)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	log.Debug("Sending control request %d: %s", seq, setup.String())
	if _, err := t.conn.Write(request); err != nil {
		return nil, err
	}

	buffer := make([]byte, layers.ControlHeaderSize+layers.ControlMaxDataSize)
	for {
		n, err := t.conn.Read(buffer)
		if err != nil {
			return nil, err
		}
		cl, err := layers.DecodeControl(buffer[:n])
		if err != nil {
			log.Debug("Drop malformed response: %s", err)
			continue
		}
		if cl.Type != layers.ControlTypeResponse || cl.Seq != seq {
			log.Debug("Drop stale response %d", cl.Seq)
			continue
		}
		if cl.Status == layers.ControlStatusStall {
			return nil, usb.ErrStall{Request: setup.Request, What: "stalled by device"}
		}
		return append([]byte(nil), cl.Data...), nil
	}
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
