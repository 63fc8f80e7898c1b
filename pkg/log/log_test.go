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

package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	c "github.com/smartystreets/goconvey/convey"
)

func TestLevels(t *testing.T) {
	defer Init(os.Stderr, "info")

	c.Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		c.So(Init(&buf, "warning"), c.ShouldBeNil)

		c.Convey("When messages below the level are logged", func() {
			Info("rate %d", 24)
			Debug("register %x", 0xe601)
			c.Convey("Then nothing is written", func() {
				c.So(buf.Len(), c.ShouldEqual, 0)
			})
		})

		c.Convey("When a warning is logged", func() {
			Warning("sequencer busy")
			c.Convey("Then it carries both prefixes", func() {
				c.So(buf.String(), c.ShouldContainSubstring, LogPrefix)
				c.So(buf.String(), c.ShouldContainSubstring, WarningPrefix+"sequencer busy")
			})
		})

		c.Convey("When a wrong level is set", func() {
			err := SetLevel("verbose")
			c.Convey("Then ErrWrongLevel is returned and the level is kept", func() {
				var wrong ErrWrongLevel
				c.So(errors.As(err, &wrong), c.ShouldBeTrue)
				c.So(wrong.Level, c.ShouldEqual, "verbose")
				c.So(Level(), c.ShouldEqual, WarningLevel)
			})
		})

		c.Convey("When lines go through a level writer", func() {
			Writer(DebugLevel).Write([]byte("GET /api/state\n"))
			Writer(ErrorLevel).Write([]byte("POST /api/vendor\n"))
			c.Convey("Then only lines at or above the level are logged", func() {
				c.So(buf.String(), c.ShouldNotContainSubstring, "GET /api/state")
				c.So(buf.String(), c.ShouldContainSubstring, ErrorPrefix+"POST /api/vendor")
			})
		})
	})
}

func TestLevelString(t *testing.T) {
	for name, level := range levelNames {
		if level.String() != name {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, level.String(), name)
		}
	}
}
