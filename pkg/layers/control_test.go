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
	"testing"

	c "github.com/smartystreets/goconvey/convey"

	"jinr.ru/greenlab/go-dso/pkg/usb"
)

func TestControlRequestFrame(t *testing.T) {
	c.Convey("Given a vendor request for rate 24", t, func() {
		setup := usb.NewVendorSetup(0xe2, []byte{24})
		frame, err := ControlRequestToBytes(setup, []byte{24}, 7)
		c.So(err, c.ShouldBeNil)

		c.Convey("The frame has header, setup and data", func() {
			c.So(len(frame), c.ShouldEqual, ControlHeaderSize+usb.SetupPacketSize+1)
			c.So(frame[0], c.ShouldEqual, 0x53)
			c.So(frame[1], c.ShouldEqual, 0x44)
			c.So(frame[ControlHeaderSize+1], c.ShouldEqual, 0xe2)
		})

		c.Convey("Decoding gives back the transfer", func() {
			cl, err := DecodeControl(frame)
			c.So(err, c.ShouldBeNil)
			c.So(cl.Type, c.ShouldEqual, ControlTypeRequest)
			c.So(cl.Seq, c.ShouldEqual, 7)
			c.So(cl.Setup, c.ShouldResemble, setup)
			c.So(cl.Data, c.ShouldResemble, []byte{24})
		})

		c.Convey("A truncated frame does not decode", func() {
			_, err := DecodeControl(frame[:len(frame)-1])
			c.So(err, c.ShouldNotBeNil)
		})

		c.Convey("A frame with a wrong sync does not decode", func() {
			frame[0] = 0
			_, err := DecodeControl(frame)
			c.So(err, c.ShouldNotBeNil)
		})
	})
}

func TestControlResponseFrame(t *testing.T) {
	frame, err := ControlResponseToBytes(ControlStatusStall, []byte{1, 2}, 3)
	if err != nil {
		t.Fatalf("ControlResponseToBytes() error = %v", err)
	}
	cl, err := DecodeControl(frame)
	if err != nil {
		t.Fatalf("DecodeControl() error = %v", err)
	}
	if cl.Type != ControlTypeResponse || cl.Status != ControlStatusStall || cl.Seq != 3 || len(cl.Data) != 2 {
		t.Errorf("decoded %+v", cl.ControlHeader)
	}
	if _, err := ControlResponseToBytes(ControlStatusAck, make([]byte, ControlMaxDataSize+1), 0); err == nil {
		t.Error("oversized data stage should not serialize")
	}
}
