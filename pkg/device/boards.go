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
	"sort"

	"jinr.ru/greenlab/go-dso/pkg/device/dds120"
	"jinr.ru/greenlab/go-dso/pkg/device/hantek6022be"
	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
)

const DefaultBoard = hantek6022be.Name

var boards = map[string]func() ifc.Board{
	hantek6022be.Name: func() ifc.Board { return hantek6022be.NewBoard() },
	dds120.Name:       func() ifc.Board { return dds120.NewBoard() },
}

// NewBoard returns the board profile registered under name
func NewBoard(name string) (ifc.Board, error) {
	newBoard, ok := boards[name]
	if !ok {
		return nil, ErrUnknownBoard{Name: name}
	}
	return newBoard(), nil
}

// BoardNames returns the registered board names in order
func BoardNames() []string {
	names := make([]string, 0, len(boards))
	for name := range boards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
