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
	"fmt"
)

// ErrStall returned when the control pipe has to be stalled
type ErrStall struct {
	Request uint8
	What    string
}

func (e ErrStall) Error() string {
	return fmt.Sprintf("Control request 0x%02x stalled: %s", e.Request, e.What)
}

// ErrSetupTooShort returned when a SETUP stage has less than 8 bytes
type ErrSetupTooShort struct {
	Length int
}

func (e ErrSetupTooShort) Error() string {
	return fmt.Sprintf("Setup packet too short: %d bytes", e.Length)
}

// ErrUnknownSpeed returned for link speed names other than full and high
type ErrUnknownSpeed struct {
	Speed string
}

func (e ErrUnknownSpeed) Error() string {
	return fmt.Sprintf("Unknown link speed %q. Must be one of full/high", e.Speed)
}
