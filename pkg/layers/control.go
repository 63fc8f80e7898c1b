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

package layers

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

const (
	// ControlLayerNum identifies the layer
	ControlLayerNum = 2001
	// ControlSync is a magic number that appears in the beginning of each control frame
	ControlSync = 0x4453
	// ControlHeaderSize is the size of the frame header in bytes
	ControlHeaderSize = 8
	// ControlMaxDataSize limits the data stage carried by one frame
	ControlMaxDataSize = 4096
)

type ControlType uint8

const (
	// ControlTypeRequest frames carry a SETUP packet followed by the OUT data stage
	ControlTypeRequest ControlType = 1
	// ControlTypeResponse frames carry the status and the IN data stage
	ControlTypeResponse ControlType = 2
)

func (t ControlType) String() string {
	switch t {
	case ControlTypeRequest:
		return "Request"
	case ControlTypeResponse:
		return "Response"
	}
	return "Unknown"
}

type ControlStatus uint8

const (
	ControlStatusAck   ControlStatus = 0
	ControlStatusStall ControlStatus = 1
)

func (s ControlStatus) String() string {
	if s == ControlStatusStall {
		return "STALL"
	}
	return "ACK"
}

// ControlHeader layout (little endian):
//
//	0..1 sync
//	2    type
//	3    status (responses only)
//	4..5 sequence number, echoed in the response
//	6..7 length of the data stage in bytes
type ControlHeader struct {
	Sync   uint16
	Type   ControlType
	Status ControlStatus
	Seq    uint16
	Len    uint16
}

// ControlLayer is a control transfer carried over UDP between the host tools
// and the emulator
type ControlLayer struct {
	layers.BaseLayer
	ControlHeader
	Setup usb.SetupPacket // requests only
	Data  []byte
}

var ControlLayerType = gopacket.RegisterLayerType(ControlLayerNum,
	gopacket.LayerTypeMetadata{Name: "ControlLayerType", Decoder: gopacket.DecodeFunc(DecodeControlLayer)})

// LayerType returns the type of the control layer in the layer catalog
func (cl *ControlLayer) LayerType() gopacket.LayerType {
	return ControlLayerType
}

func (cl *ControlLayer) size() int {
	size := ControlHeaderSize + len(cl.Data)
	if cl.Type == ControlTypeRequest {
		size += usb.SetupPacketSize
	}
	return size
}

// SerializeTo serializes the control layer into bytes and writes the bytes to the SerializeBuffer
func (cl *ControlLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if len(cl.Data) > ControlMaxDataSize {
		return ErrControlFrame{What: fmt.Sprintf("data stage of %d bytes is too long", len(cl.Data))}
	}
	bytes, err := b.AppendBytes(cl.size())
	if err != nil {
		return err
	}
	if opts.FixLengths {
		cl.Sync = ControlSync
		cl.Len = uint16(len(cl.Data))
	}
	binary.LittleEndian.PutUint16(bytes[0:2], cl.Sync)
	bytes[2] = uint8(cl.Type)
	bytes[3] = uint8(cl.Status)
	binary.LittleEndian.PutUint16(bytes[4:6], cl.Seq)
	binary.LittleEndian.PutUint16(bytes[6:8], cl.Len)
	offset := ControlHeaderSize
	if cl.Type == ControlTypeRequest {
		offset += cl.Setup.MarshalTo(bytes[offset:])
	}
	copy(bytes[offset:], cl.Data)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a control frame
func (cl *ControlLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < ControlHeaderSize {
		df.SetTruncated()
		return ErrControlFrame{What: "frame too short"}
	}
	if binary.LittleEndian.Uint16(data[0:2]) != ControlSync {
		log.Debug("Control frame sync is invalid")
		return ErrControlFrame{What: fmt.Sprintf("wrong sync. Must be 0x%04x", ControlSync)}
	}
	cl.Sync = ControlSync
	cl.Type = ControlType(data[2])
	cl.Status = ControlStatus(data[3])
	cl.Seq = binary.LittleEndian.Uint16(data[4:6])
	cl.Len = binary.LittleEndian.Uint16(data[6:8])

	offset := ControlHeaderSize
	switch cl.Type {
	case ControlTypeRequest:
		if err := usb.ParseSetupPacket(data[offset:], &cl.Setup); err != nil {
			df.SetTruncated()
			return err
		}
		offset += usb.SetupPacketSize
	case ControlTypeResponse:
	default:
		return ErrControlFrame{What: fmt.Sprintf("unknown frame type %d", cl.Type)}
	}
	if len(data)-offset < int(cl.Len) {
		df.SetTruncated()
		return ErrControlFrame{What: fmt.Sprintf("data stage truncated: %d of %d bytes", len(data)-offset, cl.Len)}
	}
	cl.Data = data[offset : offset+int(cl.Len)]
	cl.BaseLayer = layers.BaseLayer{
		Contents: data[:offset+int(cl.Len)],
		Payload:  []byte{},
	}
	return nil
}

func DecodeControlLayer(data []byte, p gopacket.PacketBuilder) error {
	cl := &ControlLayer{}
	err := cl.DecodeFromBytes(data, p)
	if err != nil {
		log.Error("Error while decoding control layer: %s", err)
		return err
	}
	p.AddLayer(cl)
	return nil
}

// ControlRequestToBytes encodes a control transfer request frame
func ControlRequestToBytes(setup usb.SetupPacket, data []byte, seq uint16) ([]byte, error) {
	cl := &ControlLayer{
		ControlHeader: ControlHeader{Type: ControlTypeRequest, Seq: seq},
		Setup:         setup,
		Data:          data,
	}
	return serialize(cl)
}

// ControlResponseToBytes encodes a control transfer response frame
func ControlResponseToBytes(status ControlStatus, data []byte, seq uint16) ([]byte, error) {
	cl := &ControlLayer{
		ControlHeader: ControlHeader{Type: ControlTypeResponse, Status: status, Seq: seq},
		Data:          data,
	}
	return serialize(cl)
}

func serialize(cl *ControlLayer) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, cl); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeControl decodes a single frame
func DecodeControl(data []byte) (*ControlLayer, error) {
	packet := gopacket.NewPacket(data, ControlLayerType, gopacket.NoCopy)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	layer := packet.Layer(ControlLayerType)
	if layer == nil {
		return nil, ErrControlFrame{What: "no control layer"}
	}
	return layer.(*ControlLayer), nil
}

// ErrControlFrame returned for malformed control frames
type ErrControlFrame struct {
	What string
}

func (e ErrControlFrame) Error() string {
	return fmt.Sprintf("Malformed control frame: %s", e.What)
}
