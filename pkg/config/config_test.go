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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	c "github.com/smartystreets/goconvey/convey"
)

func TestConfig(t *testing.T) {
	c.Convey("Given a default config in a temporary directory", t, func() {
		cfg := NewDefaultConfig()
		path := filepath.Join(t.TempDir(), ConfigDir, ConfigFile)
		cfg.SetPath(path)

		c.Convey("A missing file keeps the defaults", func() {
			c.So(cfg.Load(), c.ShouldBeNil)
			c.So(cfg.Board, c.ShouldEqual, DefaultBoard)
			c.So(cfg.ReadyTimeout, c.ShouldEqual, DefaultReadyTimeout)
		})

		c.Convey("Persist writes a file that Load reads back", func() {
			cfg.Board = "dds120"
			cfg.LinkSpeed = "high"
			cfg.StrictVendorErrors = true
			cfg.ReadyTimeout = 250 * time.Millisecond
			cfg.Emulator.ControlPort = 40000
			c.So(cfg.Persist(false), c.ShouldBeNil)

			loaded := NewDefaultConfig()
			loaded.SetPath(path)
			c.So(loaded.Load(), c.ShouldBeNil)
			c.So(loaded.Board, c.ShouldEqual, "dds120")
			c.So(loaded.LinkSpeed, c.ShouldEqual, "high")
			c.So(loaded.StrictVendorErrors, c.ShouldBeTrue)
			c.So(loaded.ReadyTimeout, c.ShouldEqual, 250*time.Millisecond)
			c.So(loaded.ControlAddress(), c.ShouldEqual, "127.0.0.1:40000")
		})

		c.Convey("Persist refuses to overwrite unless asked", func() {
			c.So(cfg.Persist(false), c.ShouldBeNil)
			err := cfg.Persist(false)
			var exists ErrConfigFileExists
			c.So(errors.As(err, &exists), c.ShouldBeTrue)
			c.So(exists.Path, c.ShouldEqual, path)
			c.So(cfg.Persist(true), c.ShouldBeNil)
		})

		c.Convey("A readiness timeout must fit into a transfer", func() {
			cfg.ReadyTimeout = SubmitTimeout
			var invalid ErrInvalidConfig
			c.So(errors.As(cfg.Validate(), &invalid), c.ShouldBeTrue)
			cfg.ReadyTimeout = SubmitTimeout / 2
			c.So(cfg.Validate(), c.ShouldBeNil)
		})

		c.Convey("The timer period defaults to the board's", func() {
			c.So(cfg.TimerPeriod, c.ShouldEqual, 0)
			c.So(cfg.String(), c.ShouldNotContainSubstring, "timerPeriod")
		})

		c.Convey("Invalid values are rejected on load", func() {
			c.So(os.MkdirAll(filepath.Dir(path), 0755), c.ShouldBeNil)
			c.So(os.WriteFile(path, []byte("linkSpeed: super\n"), 0644), c.ShouldBeNil)
			err := cfg.Load()
			var invalid ErrInvalidConfig
			c.So(errors.As(err, &invalid), c.ShouldBeTrue)
		})
	})
}
