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

package hw

import (
	"fmt"
	"sort"
)

// Register addresses follow the EZ-USB FX2 technical reference manual.
// Addresses below 0x100 are special function registers, everything else
// lives in the on-chip XDATA space.

type Reg uint16

const (
	RegIOA      Reg = 0x0080
	RegIOC      Reg = 0x00A0
	RegIOE      Reg = 0x00B1
	RegOEA      Reg = 0x00B2
	RegOEC      Reg = 0x00B4
	RegOEE      Reg = 0x00B6
	RegGPIFTRIG Reg = 0x00BB

	RegAUTOPTRH2    Reg = 0x009D
	RegAUTOPTRL2    Reg = 0x009E
	RegAUTOPTRSETUP Reg = 0x00AF

	RegWaveData Reg = 0xE400

	RegIFCONFIG   Reg = 0xE601
	RegFIFORESET  Reg = 0xE604
	RegEP2CFG     Reg = 0xE612
	RegEP4CFG     Reg = 0xE613
	RegEP6CFG     Reg = 0xE614
	RegEP8CFG     Reg = 0xE615
	RegEP2FIFOCFG Reg = 0xE618
	RegEP6FIFOCFG Reg = 0xE61A

	RegEP2AUTOINLENH Reg = 0xE620
	RegEP2AUTOINLENL Reg = 0xE621
	RegEP6AUTOINLENH Reg = 0xE624
	RegEP6AUTOINLENL Reg = 0xE625
	RegEP2ISOINPKTS  Reg = 0xE640
	RegINPKTEND      Reg = 0xE648
	RegPORTACFG      Reg = 0xE670
	RegPORTCCFG      Reg = 0xE671
	RegPORTECFG      Reg = 0xE672
	RegEXTAUTODAT2   Reg = 0xE67C
	RegUSBCS         Reg = 0xE680

	RegGPIFWFSELECT  Reg = 0xE6C0
	RegGPIFIDLECS    Reg = 0xE6C1
	RegGPIFIDLECTL   Reg = 0xE6C2
	RegGPIFCTLCFG    Reg = 0xE6C3
	RegGPIFTCB1      Reg = 0xE6D0
	RegGPIFTCB0      Reg = 0xE6D1
	RegEP2GPIFFLGSEL Reg = 0xE6D2
	RegEP6GPIFFLGSEL Reg = 0xE6E2
	RegGPIFREADYSTAT Reg = 0xE6F4
	RegGPIFABORT     Reg = 0xE6F5
)

var regNames = map[Reg]string{
	RegIOA:           "IOA",
	RegIOC:           "IOC",
	RegIOE:           "IOE",
	RegOEA:           "OEA",
	RegOEC:           "OEC",
	RegOEE:           "OEE",
	RegGPIFTRIG:      "GPIFTRIG",
	RegAUTOPTRH2:     "AUTOPTRH2",
	RegAUTOPTRL2:     "AUTOPTRL2",
	RegAUTOPTRSETUP:  "AUTOPTRSETUP",
	RegWaveData:      "WAVEDATA",
	RegIFCONFIG:      "IFCONFIG",
	RegFIFORESET:     "FIFORESET",
	RegEP2CFG:        "EP2CFG",
	RegEP4CFG:        "EP4CFG",
	RegEP6CFG:        "EP6CFG",
	RegEP8CFG:        "EP8CFG",
	RegEP2FIFOCFG:    "EP2FIFOCFG",
	RegEP6FIFOCFG:    "EP6FIFOCFG",
	RegEP2AUTOINLENH: "EP2AUTOINLENH",
	RegEP2AUTOINLENL: "EP2AUTOINLENL",
	RegEP6AUTOINLENH: "EP6AUTOINLENH",
	RegEP6AUTOINLENL: "EP6AUTOINLENL",
	RegEP2ISOINPKTS:  "EP2ISOINPKTS",
	RegINPKTEND:      "INPKTEND",
	RegPORTACFG:      "PORTACFG",
	RegPORTCCFG:      "PORTCCFG",
	RegPORTECFG:      "PORTECFG",
	RegEXTAUTODAT2:   "EXTAUTODAT2",
	RegUSBCS:         "USBCS",
	RegGPIFWFSELECT:  "GPIFWFSELECT",
	RegGPIFIDLECS:    "GPIFIDLECS",
	RegGPIFIDLECTL:   "GPIFIDLECTL",
	RegGPIFCTLCFG:    "GPIFCTLCFG",
	RegGPIFTCB1:      "GPIFTCB1",
	RegGPIFTCB0:      "GPIFTCB0",
	RegEP2GPIFFLGSEL: "EP2GPIFFLGSEL",
	RegEP6GPIFFLGSEL: "EP6GPIFFLGSEL",
	RegGPIFREADYSTAT: "GPIFREADYSTAT",
	RegGPIFABORT:     "GPIFABORT",
}

func (r Reg) String() string {
	if name, ok := regNames[r]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", uint16(r))
}

// Hex returns the register address formatted the same way the API expects it
func (r Reg) Hex() string {
	return fmt.Sprintf("0x%04x", uint16(r))
}

// Registers lists every named register in address order
func Registers() []Reg {
	regs := make([]Reg, 0, len(regNames))
	for r := range regNames {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	return regs
}

const (
	// GPIFTRIG bit 7 reports the sequencer is idle and can be triggered
	GPIFTrigDone uint8 = 0x80
	// USBCS bit 7 reports high speed mode
	USBCSHighSpeed uint8 = 0x80
	// WaveDataSize is the size of the sequencer program memory
	WaveDataSize = 128
)
