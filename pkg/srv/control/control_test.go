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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	c "github.com/smartystreets/goconvey/convey"
	"periph.io/x/conn/v3/physic"

	"jinr.ru/greenlab/go-dso/pkg/config"
	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/layers"
	"jinr.ru/greenlab/go-dso/pkg/srv"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

func newTestConfig(t *testing.T) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), config.DefaultDBFile)
	// keep the calibration pin still
	cfg.TimerPeriod = time.Hour
	return cfg
}

// startTestServer returns a server with a running control loop
func startTestServer(t *testing.T, cfg *config.Config) (*ControlServer, *httptest.Server) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := newControlServer(ctx, cfg)
	if err != nil {
		t.Fatalf("newControlServer() = %s", err)
	}
	api, err := NewApiServer(cfg, s)
	if err != nil {
		t.Fatalf("NewApiServer() = %s", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.loop.Run(ctx) }()
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
		s.state.Close()
	})
	return s, ts
}

func postJSON(ts *httptest.Server, path string, v interface{}) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return http.Post(ts.URL+path, "application/json", bytes.NewReader(body))
}

func getSnapshot(ts *httptest.Server, name string) (*device.Snapshot, int, error) {
	resp, err := http.Get(ts.URL + "/api/state/" + name)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	snapshot := &device.Snapshot{}
	return snapshot, resp.StatusCode, json.NewDecoder(resp.Body).Decode(snapshot)
}

func TestApiServer(t *testing.T) {
	c.Convey("Given an emulated hantek6022be behind the API", t, func() {
		cfg := newTestConfig(t)
		_, ts := startTestServer(t, cfg)

		c.Convey("The initial state is persisted", func() {
			snapshot, code, err := getSnapshot(ts, cfg.Name)
			c.So(err, c.ShouldBeNil)
			c.So(code, c.ShouldEqual, http.StatusOK)
			c.So(snapshot.Board, c.ShouldEqual, "hantek6022be")
			c.So(snapshot.SampleRate, c.ShouldEqual, 1)
			c.So(snapshot.Channels, c.ShouldEqual, 2)
			c.So(snapshot.Voltage, c.ShouldResemble, []int{1, 1})
			c.So(snapshot.Frequency, c.ShouldEqual, physic.MegaHertz.String())
		})

		c.Convey("A sample rate request reprograms the sequencer", func() {
			resp, err := postJSON(ts, "/api/samplerate/"+cfg.Name, &SampleRateSetup{Rate: 48})
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusOK)

			snapshot, _, err := getSnapshot(ts, cfg.Name)
			c.So(err, c.ShouldBeNil)
			c.So(snapshot.SampleRate, c.ShouldEqual, 48)

			resp, err = http.Get(ts.URL + "/api/reg/r/" + cfg.Name + "/0xe601")
			c.So(err, c.ShouldBeNil)
			reg := &RegHex{}
			c.So(json.NewDecoder(resp.Body).Decode(reg), c.ShouldBeNil)
			c.So(reg.Value, c.ShouldEqual, "0xea")

			resp, err = http.Get(ts.URL + "/api/program/" + cfg.Name)
			c.So(err, c.ShouldBeNil)
			program := &Program{}
			c.So(json.NewDecoder(resp.Body).Decode(program), c.ShouldBeNil)
			c.So(len(program.Data), c.ShouldEqual, 256)
		})

		c.Convey("An invalid range is acknowledged and leaves the state unchanged", func() {
			resp, err := postJSON(ts, "/api/voltage/"+cfg.Name, &VoltageSetup{Channel: 1, Code: 3})
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusOK)
			snapshot, _, _ := getSnapshot(ts, cfg.Name)
			c.So(snapshot.Voltage, c.ShouldResemble, []int{1, 1})
		})

		c.Convey("A channel other than 0 and 1 is a bad request", func() {
			resp, err := postJSON(ts, "/api/voltage/"+cfg.Name, &VoltageSetup{Channel: 2, Code: 1})
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusBadRequest)
		})

		c.Convey("Sampling starts and stops", func() {
			resp, err := http.Get(ts.URL + "/api/sampling/start/" + cfg.Name)
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusOK)
			snapshot, _, _ := getSnapshot(ts, cfg.Name)
			c.So(snapshot.Sampling, c.ShouldEqual, "running")
			c.So(snapshot.LED, c.ShouldEqual, "green")

			resp, err = http.Get(ts.URL + "/api/sampling/stop/" + cfg.Name)
			c.So(err, c.ShouldBeNil)
			snapshot, _, _ = getSnapshot(ts, cfg.Name)
			c.So(snapshot.Sampling, c.ShouldEqual, "idle")
			c.So(snapshot.LED, c.ShouldEqual, "red")
		})

		c.Convey("Unhandled vendor requests stall", func() {
			resp, err := postJSON(ts, "/api/vendor/"+cfg.Name, &VendorRequest{Request: 0xf0, Data: "01"})
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusBadGateway)
		})

		c.Convey("A link speed change is applied by the loop", func() {
			req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/link/high/"+cfg.Name, nil)
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusOK)

			deadline := time.Now().Add(time.Second)
			var speed string
			for time.Now().Before(deadline) {
				snapshot, _, _ := getSnapshot(ts, cfg.Name)
				if snapshot != nil {
					if speed = snapshot.LinkSpeed; speed == "high" {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
			}
			c.So(speed, c.ShouldEqual, "high")
		})

		c.Convey("Other device names are not found", func() {
			_, code, _ := getSnapshot(ts, "nosuch")
			c.So(code, c.ShouldEqual, http.StatusNotFound)
		})

		c.Convey("Requests without a JSON body type are refused", func() {
			resp, err := http.Post(ts.URL+"/api/samplerate/"+cfg.Name, "text/plain", bytes.NewReader([]byte("48")))
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusUnsupportedMediaType)
		})

		c.Convey("The API document is served", func() {
			resp, err := http.Get(ts.URL + SpecPath)
			c.So(err, c.ShouldBeNil)
			c.So(resp.StatusCode, c.ShouldEqual, http.StatusOK)
		})
	})
}

func TestControlFrames(t *testing.T) {
	c.Convey("Given an emulated dds120", t, func() {
		cfg := newTestConfig(t)
		cfg.Board = "dds120"
		s, _ := startTestServer(t, cfg)
		ctx := context.Background()

		c.Convey("A vendor request frame is acknowledged with the same sequence number", func() {
			setup := usb.NewVendorSetup(device.OpSetCoupling, []byte{0x11})
			response, err := s.respond(ctx, &layers.ControlLayer{
				ControlHeader: layers.ControlHeader{Type: layers.ControlTypeRequest, Seq: 7},
				Setup:         setup,
				Data:          []byte{0x11},
			})
			c.So(err, c.ShouldBeNil)
			cl, err := layers.DecodeControl(response)
			c.So(err, c.ShouldBeNil)
			c.So(cl.Type, c.ShouldEqual, layers.ControlTypeResponse)
			c.So(cl.Status, c.ShouldEqual, layers.ControlStatusAck)
			c.So(cl.Seq, c.ShouldEqual, 7)
			c.So(s.dev.State().Coupling, c.ShouldEqual, 0x11)
		})

		c.Convey("A GET_DESCRIPTOR frame returns the device descriptor", func() {
			setup := usb.SetupPacket{
				RequestType: usb.RequestDeviceToHost,
				Request:     usb.RequestGetDescriptor,
				Value:       uint16(usb.DescriptorTypeDevice) << 8,
				Length:      64,
			}
			response, err := s.respond(ctx, &layers.ControlLayer{
				ControlHeader: layers.ControlHeader{Type: layers.ControlTypeRequest, Seq: 8},
				Setup:         setup,
			})
			c.So(err, c.ShouldBeNil)
			cl, err := layers.DecodeControl(response)
			c.So(err, c.ShouldBeNil)
			c.So(cl.Status, c.ShouldEqual, layers.ControlStatusAck)
			c.So(len(cl.Data), c.ShouldEqual, usb.DeviceDescriptorSize)
		})

		c.Convey("A class request frame is answered with a stall", func() {
			setup := usb.SetupPacket{RequestType: usb.RequestTypeClass, Request: 0x01}
			response, err := s.respond(ctx, &layers.ControlLayer{
				ControlHeader: layers.ControlHeader{Type: layers.ControlTypeRequest, Seq: 9},
				Setup:         setup,
			})
			c.So(err, c.ShouldBeNil)
			cl, err := layers.DecodeControl(response)
			c.So(err, c.ShouldBeNil)
			c.So(cl.Status, c.ShouldEqual, layers.ControlStatusStall)
		})
	})
}

func TestTimerPeriod(t *testing.T) {
	c.Convey("Given emulators without a configured timer period", t, func() {
		for _, testCase := range []struct {
			board  string
			period time.Duration
		}{
			{"hantek6022be", 500 * time.Microsecond},
			{"dds120", time.Millisecond},
		} {
			testCase := testCase
			c.Convey("A "+testCase.board+" runs the board's timer", func() {
				cfg := newTestConfig(t)
				cfg.Board = testCase.board
				cfg.TimerPeriod = 0
				s, err := newControlServer(context.Background(), cfg)
				c.So(err, c.ShouldBeNil)
				defer s.state.Close()
				c.So(s.loop.Period(), c.ShouldEqual, testCase.period)
			})
		}

		c.Convey("A configured period overrides the board", func() {
			cfg := newTestConfig(t)
			cfg.TimerPeriod = 2 * time.Millisecond
			s, err := newControlServer(context.Background(), cfg)
			c.So(err, c.ShouldBeNil)
			defer s.state.Close()
			c.So(s.loop.Period(), c.ShouldEqual, 2*time.Millisecond)
		})
	})
}

func TestDeviceState(t *testing.T) {
	c.Convey("Given a state database", t, func() {
		state, err := NewDeviceState(filepath.Join(t.TempDir(), "state.db"), "dso0")
		c.So(err, c.ShouldBeNil)
		defer state.Close()

		c.Convey("Unknown devices and registers are reported", func() {
			_, err := state.GetReg(0xe601, "dso1")
			c.So(err, c.ShouldHaveSameTypeAs, srv.ErrUnknownDevice{})
			_, err = state.GetReg(0xe601, "dso0")
			c.So(err, c.ShouldHaveSameTypeAs, srv.ErrNotFound{})
			_, err = state.GetSnapshot("dso0")
			c.So(err, c.ShouldHaveSameTypeAs, srv.ErrNotFound{})
		})

		c.Convey("Stored state is read back", func() {
			regs := map[hw.Reg]uint8{hw.RegIFCONFIG: 0xca, hw.RegIOC: 0x4a}
			program := []byte{24, 0, 2, 0x40}
			snapshot := device.Snapshot{Board: "hantek6022be", Channels: 1, Voltage: []int{2, 10}, SampleRate: 24}
			c.So(state.Store("dso0", regs, program, snapshot), c.ShouldBeNil)

			value, err := state.GetReg(uint16(hw.RegIFCONFIG), "dso0")
			c.So(err, c.ShouldBeNil)
			c.So(value, c.ShouldEqual, 0xca)

			all, err := state.GetRegAll("dso0")
			c.So(err, c.ShouldBeNil)
			c.So(all, c.ShouldResemble, map[uint16]uint8{uint16(hw.RegIFCONFIG): 0xca, uint16(hw.RegIOC): 0x4a})

			stored, err := state.GetProgram("dso0")
			c.So(err, c.ShouldBeNil)
			c.So(stored, c.ShouldResemble, program)

			got, err := state.GetSnapshot("dso0")
			c.So(err, c.ShouldBeNil)
			c.So(*got, c.ShouldResemble, snapshot)
		})

		c.Convey("Storing for an unknown device fails", func() {
			err := state.Store("dso1", nil, nil, device.Snapshot{})
			c.So(err, c.ShouldHaveSameTypeAs, srv.ErrUnknownDevice{})
		})
	})
}
