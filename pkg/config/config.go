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
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type EmulatorConfig struct {
	IP          string `yaml:"ip"`
	ControlPort int    `yaml:"controlPort"`
	ApiPort     int    `yaml:"apiPort"`
}

type HostConfig struct {
	// Transport is either udp (emulator control port) or usb
	Transport string        `yaml:"transport"`
	Address   string        `yaml:"address,omitempty"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Config struct {
	Board              string          `yaml:"board"`
	Name               string          `yaml:"name"`
	LinkSpeed          string          `yaml:"linkSpeed"`
	ReadyTimeout       time.Duration   `yaml:"readyTimeout"`
	StrictVendorErrors bool            `yaml:"strictVendorErrors"`
	// TimerPeriod overrides the board's timer period when not zero
	TimerPeriod        time.Duration   `yaml:"timerPeriod,omitempty"`
	LogLevel           string          `yaml:"logLevel"`
	DBPath             string          `yaml:"dbPath"`
	Emulator           *EmulatorConfig `yaml:"emulator"`
	Host               *HostConfig     `yaml:"host"`
	filepath           string
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(c.filepath), 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the current values. A missing file
// leaves the defaults in place.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.LinkSpeed) {
	case "full", "high":
	default:
		return ErrInvalidConfig{What: fmt.Sprintf("link speed %q, must be one of full/high", c.LinkSpeed)}
	}
	if c.Host != nil {
		switch c.Host.Transport {
		case TransportUDP, TransportUSB:
		default:
			return ErrInvalidConfig{What: fmt.Sprintf("host transport %q, must be one of %s/%s",
				c.Host.Transport, TransportUDP, TransportUSB)}
		}
	}
	if c.ReadyTimeout < 0 || c.TimerPeriod < 0 {
		return ErrInvalidConfig{What: "negative duration"}
	}
	if c.ReadyTimeout >= SubmitTimeout {
		return ErrInvalidConfig{What: fmt.Sprintf("ready timeout %s, must be below %s", c.ReadyTimeout, SubmitTimeout)}
	}
	return nil
}

func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// ControlAddress is the emulator UDP control endpoint
func (c *Config) ControlAddress() string {
	return fmt.Sprintf("%s:%d", c.Emulator.IP, c.Emulator.ControlPort)
}

func (c *Config) ApiAddress() string {
	return fmt.Sprintf("%s:%d", c.Emulator.IP, c.Emulator.ApiPort)
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ConfigDir, DefaultDBFile)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

func NewDefaultConfig() *Config {
	return &Config{
		Board:        DefaultBoard,
		Name:         DefaultName,
		LinkSpeed:    DefaultLinkSpeed,
		ReadyTimeout: DefaultReadyTimeout,
		LogLevel:     DefaultLogLevel,
		DBPath:       DefaultDBPath(),
		Emulator: &EmulatorConfig{
			IP:          DefaultIP,
			ControlPort: DefaultControlPort,
			ApiPort:     DefaultApiPort,
		},
		Host: &HostConfig{
			Transport: DefaultTransport,
			Timeout:   DefaultHostTimeout,
		},
		filepath: DefaultConfigPath(),
	}
}
