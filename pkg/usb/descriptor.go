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
	"unicode/utf16"
)

const (
	DescriptorTypeDevice           = 0x01
	DescriptorTypeConfiguration    = 0x02
	DescriptorTypeString           = 0x03
	DescriptorTypeInterface        = 0x04
	DescriptorTypeEndpoint         = 0x05
	DescriptorTypeQualifier        = 0x06
	DescriptorTypeOtherSpeedConfig = 0x07
)

// The configuration descriptor of the instrument is laid out as
//
//	configuration header                  9 bytes
//	alt 0: interface + bulk endpoint      9 + 7 bytes
//	alt 1: interface + iso endpoint       9 + 7 bytes
//
// so wMaxPacketSize of the endpoint belonging to alt setting N sits at
// 9 + 16*N + 9 + 4.
const (
	ConfigHeaderSize        = 9
	InterfaceDescriptorSize = 9
	EndpointDescriptorSize  = 7
	AltSettingSize          = InterfaceDescriptorSize + EndpointDescriptorSize
	// offset of wMaxPacketSize inside an endpoint descriptor
	EndpointMaxPacketOffset = 4
	DeviceDescriptorSize    = 18
	QualifierSize           = 10
)

// MaxPacketOffset returns the offset of wMaxPacketSize for an alt setting
func MaxPacketOffset(alt uint8) int {
	return ConfigHeaderSize + AltSettingSize*int(alt) + InterfaceDescriptorSize + EndpointMaxPacketOffset
}

const (
	EndpointBulkIn = 0x86 // EP6 IN
	EndpointIsoIn  = 0x82 // EP2 IN

	endpointAttrBulk     = 0x02
	endpointAttrIsoAsync = 0x05
	vendorClass          = 0xff
	maxPower100mA        = 0x32
	busPowered           = 0x80
)

// Max packet sizes per link speed. The high speed isochronous value encodes
// 3 transactions of 1024 bytes per microframe in bits 12:11.
const (
	FullSpeedBulkPacket = 64
	FullSpeedIsoPacket  = 1023
	HighSpeedBulkPacket = 512
	HighSpeedIsoPacket  = 2<<11 | 1024
)

const (
	StringManufacturer = 1
	StringProduct      = 2
	langIDUSEnglish    = 0x0409
)

// DescriptorSet holds the descriptor tables served by the USB core
type DescriptorSet struct {
	Device    []byte
	FullSpeed []byte
	HighSpeed []byte
	Strings   map[uint8][]byte
}

// NewDescriptorSet builds the tables for a device with one interface and two
// alt settings (bulk, isochronous)
func NewDescriptorSet(vendorID, productID uint16, manufacturer, product string) *DescriptorSet {
	return &DescriptorSet{
		Device:    deviceDescriptor(vendorID, productID),
		FullSpeed: configDescriptor(DescriptorTypeConfiguration, FullSpeedBulkPacket, FullSpeedIsoPacket),
		HighSpeed: configDescriptor(DescriptorTypeConfiguration, HighSpeedBulkPacket, HighSpeedIsoPacket),
		Strings: map[uint8][]byte{
			0:                  {4, DescriptorTypeString, byte(langIDUSEnglish & 0xff), byte(langIDUSEnglish >> 8)},
			StringManufacturer: stringDescriptor(manufacturer),
			StringProduct:      stringDescriptor(product),
		},
	}
}

// Config returns the configuration descriptor for a link speed
func (d *DescriptorSet) Config(speed Speed) []byte {
	if speed == SpeedHigh {
		return d.HighSpeed
	}
	return d.FullSpeed
}

// OtherSpeedConfig returns the descriptor the device would use at the other
// speed, typed as OTHER_SPEED_CONFIGURATION
func (d *DescriptorSet) OtherSpeedConfig(speed Speed) []byte {
	other := d.HighSpeed
	if speed == SpeedHigh {
		other = d.FullSpeed
	}
	result := make([]byte, len(other))
	copy(result, other)
	result[1] = DescriptorTypeOtherSpeedConfig
	return result
}

// Qualifier returns the device qualifier descriptor
func (d *DescriptorSet) Qualifier() []byte {
	q := make([]byte, QualifierSize)
	q[0] = QualifierSize
	q[1] = DescriptorTypeQualifier
	copy(q[2:8], d.Device[2:8]) // bcdUSB, class, subclass, protocol, max packet 0
	q[8] = d.Device[17]
	return q
}

func deviceDescriptor(vendorID, productID uint16) []byte {
	b := make([]byte, DeviceDescriptorSize)
	b[0] = DeviceDescriptorSize
	b[1] = DescriptorTypeDevice
	binary.LittleEndian.PutUint16(b[2:4], 0x0200)
	b[4] = vendorClass
	b[5] = vendorClass
	b[6] = vendorClass
	b[7] = 64
	binary.LittleEndian.PutUint16(b[8:10], vendorID)
	binary.LittleEndian.PutUint16(b[10:12], productID)
	binary.LittleEndian.PutUint16(b[12:14], 0x0001)
	b[14] = StringManufacturer
	b[15] = StringProduct
	b[16] = 0
	b[17] = 1
	return b
}

func configDescriptor(descType uint8, bulkPacket, isoPacket uint16) []byte {
	total := ConfigHeaderSize + 2*AltSettingSize
	b := make([]byte, 0, total)
	b = append(b, ConfigHeaderSize, descType, byte(total), byte(total>>8),
		1, 1, 0, busPowered, maxPower100mA)
	b = appendAltSetting(b, 0, EndpointBulkIn, endpointAttrBulk, bulkPacket, 0)
	b = appendAltSetting(b, 1, EndpointIsoIn, endpointAttrIsoAsync, isoPacket, 1)
	return b
}

func appendAltSetting(b []byte, alt, address, attributes uint8, maxPacket uint16, interval uint8) []byte {
	b = append(b, InterfaceDescriptorSize, DescriptorTypeInterface, 0, alt, 1,
		vendorClass, 0, 0, 0)
	return append(b, EndpointDescriptorSize, DescriptorTypeEndpoint, address, attributes,
		byte(maxPacket), byte(maxPacket>>8), interval)
}

func stringDescriptor(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2+2*len(units))
	b[0] = byte(len(b))
	b[1] = DescriptorTypeString
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2+2*i:], u)
	}
	return b
}
