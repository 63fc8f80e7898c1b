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

import "time"

const (
	ConfigDir  = ".go-dso"
	ConfigFile = "config"

	DefaultBoard        = "hantek6022be"
	DefaultName         = "dso0"
	DefaultLinkSpeed    = "full"
	DefaultReadyTimeout = 100 * time.Millisecond
	DefaultLogLevel     = "info"
	DefaultDBFile       = "state.db"

	// SubmitTimeout bounds the wait of a control transfer for the loop.
	// The readiness timeout must fit into it.
	SubmitTimeout = time.Second

	DefaultIP          = "127.0.0.1"
	DefaultControlPort = 33400
	DefaultApiPort     = 8000

	TransportUDP = "udp"
	TransportUSB = "usb"

	DefaultTransport   = TransportUDP
	DefaultHostTimeout = time.Second
)
