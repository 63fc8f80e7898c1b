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
	"fmt"
	"net/http"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-dso/pkg/config"
	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/srv/control"
)

// ApiClient talks to the emulator HTTP API
type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s%s", cfg.ApiAddress(), control.ApiPrefix),
	}
}

func (c *ApiClient) stateUrl() string {
	return fmt.Sprintf("%s/state/%s", c.ApiPrefix, c.Name)
}

func (c *ApiClient) regReadUrl(addr string) string {
	if addr == "" {
		return fmt.Sprintf("%s/reg/r/%s", c.ApiPrefix, c.Name)
	}
	return fmt.Sprintf("%s/reg/r/%s/%s", c.ApiPrefix, c.Name, addr)
}

func (c *ApiClient) get(url string, v interface{}) error {
	r, err := req.Get(url)
	if err != nil {
		return err
	}
	if r.Response().StatusCode != http.StatusOK {
		return ErrApi{Status: r.Response().Status}
	}
	return r.ToJSON(v)
}

// State returns the device snapshot kept by the emulator
func (c *ApiClient) State() (*device.Snapshot, error) {
	snapshot := &device.Snapshot{}
	if err := c.get(c.stateUrl(), snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RegRead returns the value of a register (hexadecimal address)
func (c *ApiClient) RegRead(addr string) (string, error) {
	reg := &control.RegHex{}
	if err := c.get(c.regReadUrl(addr), reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll returns the values of all registers written so far
func (c *ApiClient) RegReadAll() (map[string]string, error) {
	var regs []*control.RegHex
	if err := c.get(c.regReadUrl(""), &regs); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	for _, reg := range regs {
		result[reg.Addr] = reg.Value
	}
	return result, nil
}

// Program returns the sequencer program memory as a hex string
func (c *ApiClient) Program() (string, error) {
	program := &control.Program{}
	if err := c.get(fmt.Sprintf("%s/program/%s", c.ApiPrefix, c.Name), program); err != nil {
		return "", err
	}
	return program.Data, nil
}

// SetLinkSpeed makes the emulator reconnect at full or high speed
func (c *ApiClient) SetLinkSpeed(speed string) error {
	r, err := req.Post(fmt.Sprintf("%s/link/%s/%s", c.ApiPrefix, speed, c.Name),
		req.Header{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	if r.Response().StatusCode != http.StatusOK {
		return ErrApi{Status: r.Response().Status}
	}
	return nil
}
