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
// go-dso API
//
// # RESTful APIs to interact with the go-dso emulator
//
// Schemes: http
// Host: localhost:8000
// Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package control

import (
	"context"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-dso/pkg/config"
	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/srv"
	"jinr.ru/greenlab/go-dso/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-dso/pkg/usb"
)

const (
	ApiPrefix       = "/api"
	DocsPath        = "docs"
	SpecPath        = "/swagger.json"
	shutdownTimeout = time.Second
)

//go:embed swagger.yaml
var swaggerYAML []byte

// RegHex ...
type RegHex struct {
	Addr  string `json:"addr"`  // hexadecimal
	Value string `json:"value"` // hexadecimal
}

type Program struct {
	Data string `json:"data"` // hexadecimal
}

type VoltageSetup struct {
	Channel uint8 `json:"channel"`
	Code    uint8 `json:"code"`
}

type SampleRateSetup struct {
	Rate uint8 `json:"rate"`
}

type ChannelsSetup struct {
	Channels uint8 `json:"channels"`
}

type CouplingSetup struct {
	Coupling uint8 `json:"coupling"`
}

type VendorRequest struct {
	Request uint8  `json:"request"`
	Data    string `json:"data"` // hexadecimal
}

type ApiServer struct {
	*config.Config
	*mux.Router
	ctrl ifc.ControlServer
	spec []byte
}

var _ ifc.ApiServer = &ApiServer{}

// NewApiServer validates the embedded API document and sets up the routes
func NewApiServer(cfg *config.Config, ctrl ifc.ControlServer) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.ApiAddress())

	spec, err := yaml.YAMLToJSON(swaggerYAML)
	if err != nil {
		return nil, err
	}
	doc, err := loads.Analyzed(spec, "")
	if err != nil {
		return nil, err
	}
	log.Debug("API document: %s %s", doc.Spec().Info.Title, doc.Version())

	s := &ApiServer{
		Config: cfg,
		ctrl:   ctrl,
		spec:   spec,
	}
	s.configureRouter()
	return s, nil
}

// Handler returns the router wrapped with API docs and access logging
func (s *ApiServer) Handler() http.Handler {
	var h http.Handler = s.Router
	h = middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     DocsPath,
		SpecURL:  SpecPath,
		Title:    "go-dso API",
	}, h)
	h = middleware.Spec("/", s.spec, h)
	return handlers.LoggingHandler(log.Writer(log.DebugLevel), h)
}

func (s *ApiServer) Run(ctx context.Context) error {
	log.Info("Starting API server: address: %s", s.Config.ApiAddress())
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.ApiAddress(),
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix(ApiPrefix).Subrouter()
	subRouter.Use(func(next http.Handler) http.Handler {
		return handlers.ContentTypeHandler(next, "application/json")
	})
	// swagger:operation GET /state/{device} state
	// ---
	// summary: device state
	subRouter.HandleFunc("/state/{device}", s.handleState()).Methods("GET")
	// swagger:operation GET /reg/r/{device} read all registers
	// ---
	// summary: read all registers
	subRouter.HandleFunc("/reg/r/{device}", s.handleRegReadAll()).Methods("GET")
	// swagger:operation GET /reg/r/{device}/{addr} read register
	// ---
	// summary: read register
	subRouter.HandleFunc("/reg/r/{device}/{addr:0x[0-9a-fA-F]{4}}", s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/program/{device}", s.handleProgram()).Methods("GET")
	// swagger:operation POST /voltage/{device} voltage
	// ---
	// summary: set the voltage range of a channel
	subRouter.HandleFunc("/voltage/{device}", s.handleVoltage()).Methods("POST")
	subRouter.HandleFunc("/samplerate/{device}", s.handleSampleRate()).Methods("POST")
	subRouter.HandleFunc("/channels/{device}", s.handleChannels()).Methods("POST")
	subRouter.HandleFunc("/coupling/{device}", s.handleCoupling()).Methods("POST")
	// swagger:operation GET /sampling/{action}/{device} sampling
	// ---
	// summary: start or stop sampling
	subRouter.HandleFunc("/sampling/{action:start|stop}/{device}", s.handleSampling()).Methods("GET")
	subRouter.HandleFunc("/vendor/{device}", s.handleVendor()).Methods("POST")
	subRouter.HandleFunc("/link/{speed:full|high}/{device}", s.handleLink()).Methods("POST")
}

// checkDevice answers 404 for names other than the emulated device
func (s *ApiServer) checkDevice(w http.ResponseWriter, r *http.Request) bool {
	name := mux.Vars(r)["device"]
	if name != s.ctrl.DeviceName() {
		http.Error(w, srv.ErrUnknownDevice{Name: name}.Error(), http.StatusNotFound)
		return false
	}
	return true
}

func stateError(w http.ResponseWriter, err error) {
	var notFound srv.ErrNotFound
	var unknown srv.ErrUnknownDevice
	if errors.As(err, &notFound) || errors.As(err, &unknown) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *ApiServer) handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkDevice(w, r) {
			return
		}
		snapshot, err := s.ctrl.State().GetSnapshot(s.ctrl.DeviceName())
		if err != nil {
			stateError(w, err)
			return
		}
		json.NewEncoder(w).Encode(snapshot)
	}
}

func (s *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkDevice(w, r) {
			return
		}
		vars := mux.Vars(r)
		log.Debug("Handling reg read request: device: %s, addr: %s", vars["device"], vars["addr"])

		addr, err := strconv.ParseUint(vars["addr"], 0, 16)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		value, err := s.ctrl.State().GetReg(uint16(addr), s.ctrl.DeviceName())
		if err != nil {
			stateError(w, err)
			return
		}
		json.NewEncoder(w).Encode(regHex(uint16(addr), value))
	}
}

func (s *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkDevice(w, r) {
			return
		}
		regs, err := s.ctrl.State().GetRegAll(s.ctrl.DeviceName())
		if err != nil {
			stateError(w, err)
			return
		}
		addrs := make([]uint16, 0, len(regs))
		for addr := range regs {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
		regsHex := []*RegHex{}
		for _, addr := range addrs {
			regsHex = append(regsHex, regHex(addr, regs[addr]))
		}
		json.NewEncoder(w).Encode(regsHex)
	}
}

func regHex(addr uint16, value uint8) *RegHex {
	return &RegHex{
		Addr:  "0x" + hex.EncodeToString([]byte{byte(addr >> 8), byte(addr)}),
		Value: "0x" + hex.EncodeToString([]byte{value}),
	}
}

func (s *ApiServer) handleProgram() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkDevice(w, r) {
			return
		}
		program, err := s.ctrl.State().GetProgram(s.ctrl.DeviceName())
		if err != nil {
			stateError(w, err)
			return
		}
		json.NewEncoder(w).Encode(&Program{Data: hex.EncodeToString(program)})
	}
}

// vendor submits a vendor request to the control loop. A stall becomes 502.
func (s *ApiServer) vendor(w http.ResponseWriter, r *http.Request, request uint8, payload []byte) {
	log.Debug("Handling vendor request: %s payload: %x", device.OpcodeName(request), payload)
	ctx, cancel := context.WithTimeout(r.Context(), config.SubmitTimeout)
	defer cancel()
	_, err := s.ctrl.Submit(ctx, usb.NewVendorSetup(request, payload), payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

// decode reads the JSON body into v and answers 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *ApiServer) handleVoltage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setup := &VoltageSetup{}
		if !s.checkDevice(w, r) || !decode(w, r, setup) {
			return
		}
		var request uint8
		switch setup.Channel {
		case 0:
			request = device.OpSetVoltageCh0
		case 1:
			request = device.OpSetVoltageCh1
		default:
			http.Error(w, device.ErrInvalidChannel{Channel: setup.Channel}.Error(), http.StatusBadRequest)
			return
		}
		s.vendor(w, r, request, []byte{setup.Code})
	}
}

func (s *ApiServer) handleSampleRate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setup := &SampleRateSetup{}
		if !s.checkDevice(w, r) || !decode(w, r, setup) {
			return
		}
		s.vendor(w, r, device.OpSetSampleRate, []byte{setup.Rate})
	}
}

func (s *ApiServer) handleChannels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setup := &ChannelsSetup{}
		if !s.checkDevice(w, r) || !decode(w, r, setup) {
			return
		}
		s.vendor(w, r, device.OpSetNumChannels, []byte{setup.Channels})
	}
}

func (s *ApiServer) handleCoupling() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setup := &CouplingSetup{}
		if !s.checkDevice(w, r) || !decode(w, r, setup) {
			return
		}
		s.vendor(w, r, device.OpSetCoupling, []byte{setup.Coupling})
	}
}

func (s *ApiServer) handleSampling() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkDevice(w, r) {
			return
		}
		vars := mux.Vars(r)
		log.Debug("Handling sampling action request: device: %s action: %s", vars["device"], vars["action"])
		switch vars["action"] {
		case "start":
			s.vendor(w, r, device.OpStartSampling, []byte{1})
		case "stop":
			s.vendor(w, r, device.OpStartSampling, []byte{0})
		default:
			err := srv.ErrUnknownOperation{
				What: "Wrong sampling action. Must be one of start/stop",
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
}

func (s *ApiServer) handleVendor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &VendorRequest{}
		if !s.checkDevice(w, r) || !decode(w, r, req) {
			return
		}
		payload, err := hex.DecodeString(req.Data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.vendor(w, r, req.Request, payload)
	}
}

func (s *ApiServer) handleLink() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkDevice(w, r) {
			return
		}
		speed, err := usb.ParseSpeed(mux.Vars(r)["speed"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.ctrl.SetLinkSpeed(speed)
	}
}
