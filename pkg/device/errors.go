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

import (
	"fmt"
	"time"
)

// ErrInvalidRange returned for voltage range codes the board does not accept
type ErrInvalidRange struct {
	Channel uint8
	Code    uint8
}

func (e ErrInvalidRange) Error() string {
	return fmt.Sprintf("Invalid voltage range %d for channel %d", e.Code, e.Channel)
}

// ErrInvalidChannel returned for channel numbers other than 0 and 1
type ErrInvalidChannel struct {
	Channel uint8
}

func (e ErrInvalidChannel) Error() string {
	return fmt.Sprintf("Invalid channel %d. Must be 0 or 1", e.Channel)
}

// ErrInvalidRate returned for rate codes missing from the board's rate table
type ErrInvalidRate struct {
	Rate uint8
}

func (e ErrInvalidRate) Error() string {
	return fmt.Sprintf("Invalid sample rate code %d", e.Rate)
}

// ErrInvalidChannelCount returned for channel counts other than 1 and 2
type ErrInvalidChannelCount struct {
	Count uint8
}

func (e ErrInvalidChannelCount) Error() string {
	return fmt.Sprintf("Invalid channel count %d. Must be 1 or 2", e.Count)
}

// ErrInvalidAlt returned for alt settings other than 0 (bulk) and 1 (iso)
type ErrInvalidAlt struct {
	Alt uint8
}

func (e ErrInvalidAlt) Error() string {
	return fmt.Sprintf("Invalid alt setting %d. Must be 0 or 1", e.Alt)
}

// ErrShortPayload returned when a vendor command arrives without its data byte
type ErrShortPayload struct {
	Opcode uint8
}

func (e ErrShortPayload) Error() string {
	return fmt.Sprintf("Vendor command 0x%02x without payload", e.Opcode)
}

// ErrSequencerNotReady returned when the sequencer does not report done
// within the ready timeout
type ErrSequencerNotReady struct {
	Timeout time.Duration
}

func (e ErrSequencerNotReady) Error() string {
	return fmt.Sprintf("Sequencer not ready after %s", e.Timeout)
}

// ErrNotSupported returned when the board lacks a feature
type ErrNotSupported struct {
	Board   string
	Feature string
}

func (e ErrNotSupported) Error() string {
	return fmt.Sprintf("Board %s does not support %s", e.Board, e.Feature)
}

// ErrUnknownBoard returned for board names missing from the registry
type ErrUnknownBoard struct {
	Name string
}

func (e ErrUnknownBoard) Error() string {
	return fmt.Sprintf("Unknown board %q", e.Name)
}

