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

package usb

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Standard request codes (USB 2.0 table 9-4)
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
)

const (
	RequestDirectionMask = 0x80
	RequestTypeMask      = 0x60
	RequestRecipientMask = 0x1F

	RequestHostToDevice = 0x00
	RequestDeviceToHost = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
)

// VendorOut is bmRequestType of a host-to-device vendor request for the device
const VendorOut = RequestHostToDevice | RequestTypeVendor | RequestRecipientDevice

// SetupPacketSize is the size of a SETUP packet in bytes
const SetupPacketSize = 8

// SetupPacket is the 8-byte SETUP stage of a control transfer
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// ParseSetupPacket decodes data into out
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return ErrSetupTooShort{Length: len(data)}
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// MarshalTo writes the packet to buf and returns the number of bytes written,
// 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestDirectionMask == RequestDeviceToHost
}

func (s *SetupPacket) Type() uint8 {
	return s.RequestType & RequestTypeMask
}

func (s *SetupPacket) IsStandard() bool {
	return s.Type() == RequestTypeStandard
}

func (s *SetupPacket) IsVendor() bool {
	return s.Type() == RequestTypeVendor
}

func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestRecipientMask
}

// InterfaceNumber returns wIndex low byte, the interface for interface requests
func (s *SetupPacket) InterfaceNumber() uint8 {
	return uint8(s.Index)
}

func (s *SetupPacket) String() string {
	return fmt.Sprintf("bmRequestType=%02x bRequest=%02x wValue=%04x wIndex=%04x wLength=%d",
		s.RequestType, s.Request, s.Value, s.Index, s.Length)
}

// NewVendorSetup returns the SETUP stage for a host-to-device vendor request
// carrying payload in its data stage
func NewVendorSetup(request uint8, payload []byte) SetupPacket {
	return SetupPacket{
		RequestType: VendorOut,
		Request:     request,
		Length:      uint16(len(payload)),
	}
}

type Speed uint8

const (
	SpeedUnknown Speed = iota
	SpeedFull
	SpeedHigh
)

func (s Speed) String() string {
	switch s {
	case SpeedFull:
		return "full"
	case SpeedHigh:
		return "high"
	}
	return "unknown"
}

// ParseSpeed accepts "full" or "high"
func ParseSpeed(s string) (Speed, error) {
	switch strings.ToLower(s) {
	case "full":
		return SpeedFull, nil
	case "high":
		return SpeedHigh, nil
	}
	return SpeedUnknown, ErrUnknownSpeed{Speed: s}
}
