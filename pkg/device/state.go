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

package device

// TransferMode is the active alt setting of interface 0
type TransferMode uint8

const (
	TransferBulk        TransferMode = 0
	TransferIsochronous TransferMode = 1
)

func (m TransferMode) String() string {
	if m == TransferIsochronous {
		return "isochronous"
	}
	return "bulk"
}

type SamplingState uint8

const (
	SamplingIdle SamplingState = iota
	SamplingArmed
	SamplingRunning
)

func (s SamplingState) String() string {
	switch s {
	case SamplingArmed:
		return "armed"
	case SamplingRunning:
		return "running"
	}
	return "idle"
}

// DeviceState is the configuration the firmware keeps between commands.
// Sampling is never Running while a configuration change is applied.
type DeviceState struct {
	TransferMode TransferMode
	Sampling     SamplingState
	Channels     uint8
	Voltage      [2]uint8
	SampleRate   uint8
	Coupling     uint8
}

// Snapshot is the externally visible device state
type Snapshot struct {
	Board        string `json:"board"`
	LinkSpeed    string `json:"linkSpeed"`
	TransferMode string `json:"transferMode"`
	Sampling     string `json:"sampling"`
	Channels     uint8  `json:"channels"`
	Voltage      []int  `json:"voltage"`
	SampleRate   uint8  `json:"sampleRate"`
	Frequency    string `json:"frequency"`
	Coupling     uint8  `json:"coupling"`
	LED          string `json:"led,omitempty"`
}
