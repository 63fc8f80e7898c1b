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

	"periph.io/x/conn/v3/physic"
)

// ErrUnknownFrequency returned when no rate profile of the board produces
// the requested sample frequency
type ErrUnknownFrequency struct {
	Frequency physic.Frequency
	Board     string
}

func (e ErrUnknownFrequency) Error() string {
	return fmt.Sprintf("Board %s has no sample rate of %s", e.Board, e.Frequency)
}

// ErrApi returned for API responses other than 200
type ErrApi struct {
	Status string
}

func (e ErrApi) Error() string {
	return fmt.Sprintf("API request failed: %s", e.Status)
}
