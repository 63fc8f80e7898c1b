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
	"context"
	"sync"
	"sync/atomic"

	"jinr.ru/greenlab/go-dso/pkg/log"
)

// Hooks are the parts of standard request handling the firmware answers
// itself, plus the vendor request entry point.
type Hooks interface {
	GetInterface(ifc uint8) (uint8, error)
	SetInterface(ifc, alt uint8) error
	GetConfiguration() uint8
	SetConfiguration(cfg uint8) error
	// VendorCommand returns false if the request is not supported
	VendorCommand(ctx context.Context, request uint8, data []byte) (bool, error)
	// SpeedChanged is called after the link was renegotiated. It may be
	// called from any goroutine.
	SpeedChanged(speed Speed)
}

// Core answers control transfers on EP0
type Core struct {
	desc   *DescriptorSet
	speed  atomic.Uint32
	strict atomic.Bool

	mu      sync.Mutex
	hooks   Hooks
	address uint8
}

func NewCore(desc *DescriptorSet) *Core {
	c := &Core{desc: desc}
	c.speed.Store(uint32(SpeedFull))
	return c
}

func (c *Core) Attach(hooks Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = hooks
}

// SetStrictVendorErrors makes failed vendor commands stall the pipe instead
// of being acknowledged
func (c *Core) SetStrictVendorErrors(strict bool) {
	c.strict.Store(strict)
}

func (c *Core) Speed() Speed {
	return Speed(c.speed.Load())
}

// SetSpeed records the negotiated link speed and notifies the hooks when it
// changed
func (c *Core) SetSpeed(speed Speed) {
	old := Speed(c.speed.Swap(uint32(speed)))
	if old == speed {
		return
	}
	log.Info("Link speed changed: %s -> %s", old, speed)
	if hooks := c.getHooks(); hooks != nil {
		hooks.SpeedChanged(speed)
	}
}

// ConfigDescriptor returns the configuration descriptor in use at speed
func (c *Core) ConfigDescriptor(speed Speed) []byte {
	return c.desc.Config(speed)
}

func (c *Core) Address() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

func (c *Core) getHooks() Hooks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hooks
}

// HandleSetup processes one control transfer. For device-to-host requests it
// returns the data stage, truncated to wLength. ErrStall means EP0 must be
// stalled.
func (c *Core) HandleSetup(ctx context.Context, setup *SetupPacket, data []byte) ([]byte, error) {
	log.Debug("Setup: %s", setup)
	hooks := c.getHooks()
	if hooks == nil {
		return nil, ErrStall{Request: setup.Request, What: "no firmware attached"}
	}
	switch setup.Type() {
	case RequestTypeStandard:
		return c.standard(hooks, setup)
	case RequestTypeVendor:
		return nil, c.vendor(ctx, hooks, setup, data)
	}
	return nil, ErrStall{Request: setup.Request, What: "class requests not supported"}
}

func (c *Core) standard(hooks Hooks, setup *SetupPacket) ([]byte, error) {
	switch setup.Request {
	case RequestGetDescriptor:
		desc := c.descriptor(uint8(setup.Value>>8), uint8(setup.Value))
		if desc == nil {
			return nil, ErrStall{Request: setup.Request, What: "unknown descriptor"}
		}
		return truncate(desc, setup.Length), nil
	case RequestGetStatus:
		return truncate([]byte{0, 0}, setup.Length), nil
	case RequestClearFeature, RequestSetFeature:
		return nil, nil
	case RequestSetAddress:
		c.mu.Lock()
		c.address = uint8(setup.Value & 0x7f)
		c.mu.Unlock()
		return nil, nil
	case RequestGetConfiguration:
		return truncate([]byte{hooks.GetConfiguration()}, setup.Length), nil
	case RequestSetConfiguration:
		if err := hooks.SetConfiguration(uint8(setup.Value)); err != nil {
			return nil, ErrStall{Request: setup.Request, What: err.Error()}
		}
		return nil, nil
	case RequestGetInterface:
		alt, err := hooks.GetInterface(setup.InterfaceNumber())
		if err != nil {
			return nil, ErrStall{Request: setup.Request, What: err.Error()}
		}
		return truncate([]byte{alt}, setup.Length), nil
	case RequestSetInterface:
		if err := hooks.SetInterface(setup.InterfaceNumber(), uint8(setup.Value)); err != nil {
			return nil, ErrStall{Request: setup.Request, What: err.Error()}
		}
		return nil, nil
	}
	return nil, ErrStall{Request: setup.Request, What: "unsupported standard request"}
}

func (c *Core) vendor(ctx context.Context, hooks Hooks, setup *SetupPacket, data []byte) error {
	if setup.IsDeviceToHost() {
		return ErrStall{Request: setup.Request, What: "vendor IN requests not supported"}
	}
	if len(data) > int(setup.Length) {
		data = data[:setup.Length]
	}
	handled, err := hooks.VendorCommand(ctx, setup.Request, data)
	if !handled {
		return ErrStall{Request: setup.Request, What: "unhandled vendor request"}
	}
	if err != nil {
		log.Error("Vendor request 0x%02x failed: %s", setup.Request, err)
		if c.strict.Load() {
			return ErrStall{Request: setup.Request, What: err.Error()}
		}
	}
	return nil
}

func (c *Core) descriptor(descType, index uint8) []byte {
	speed := c.Speed()
	switch descType {
	case DescriptorTypeDevice:
		return c.desc.Device
	case DescriptorTypeConfiguration:
		return c.desc.Config(speed)
	case DescriptorTypeOtherSpeedConfig:
		return c.desc.OtherSpeedConfig(speed)
	case DescriptorTypeQualifier:
		return c.desc.Qualifier()
	case DescriptorTypeString:
		return c.desc.Strings[index]
	}
	return nil
}

func truncate(data []byte, length uint16) []byte {
	if len(data) > int(length) {
		return data[:length]
	}
	return data
}
