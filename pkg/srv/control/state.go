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
package control

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/hw"
	"jinr.ru/greenlab/go-dso/pkg/log"
	"jinr.ru/greenlab/go-dso/pkg/srv"
	"jinr.ru/greenlab/go-dso/pkg/srv/control/ifc"
)

const (
	RegBucketPrefix    = "reg_"
	DeviceBucketPrefix = "dev_"
	SnapshotKey        = "snapshot"
	ProgramKey         = "program"
	dbOpenTimeout      = time.Second
)

// DeviceState keeps the register file, the sequencer program and the
// device snapshot of emulated devices in a bolt database
type DeviceState struct {
	DB *bbolt.DB
}

var _ ifc.State = &DeviceState{}

func NewDeviceState(dbPath string, deviceNames ...string) (*DeviceState, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, err
	}
	// create buckets for all devices
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range deviceNames {
			if _, err := tx.CreateBucketIfNotExists([]byte(regBucketName(name))); err != nil {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists([]byte(deviceBucketName(name))); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &DeviceState{DB: db}, nil
}

func uint16ToByte(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func regBucketName(deviceName string) string {
	return fmt.Sprintf("%s%s", RegBucketPrefix, deviceName)
}

func deviceBucketName(deviceName string) string {
	return fmt.Sprintf("%s%s", DeviceBucketPrefix, deviceName)
}

func (s *DeviceState) Close() error {
	return s.DB.Close()
}

// Store saves the register file, the program memory and the snapshot in a
// single transaction
func (s *DeviceState) Store(deviceName string, regs map[hw.Reg]uint8, program []byte, snapshot device.Snapshot) error {
	snapshotBytes, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}
	log.Debug("Storing state of %s: %d registers", deviceName, len(regs))
	return s.DB.Update(func(tx *bbolt.Tx) error {
		rb := tx.Bucket([]byte(regBucketName(deviceName)))
		devb := tx.Bucket([]byte(deviceBucketName(deviceName)))
		if rb == nil || devb == nil {
			return srv.ErrUnknownDevice{Name: deviceName}
		}
		for reg, value := range regs {
			if err := rb.Put(uint16ToByte(uint16(reg)), []byte{value}); err != nil {
				return err
			}
		}
		if err := devb.Put([]byte(ProgramKey), program); err != nil {
			return err
		}
		return devb.Put([]byte(SnapshotKey), snapshotBytes)
	})
}

func (s *DeviceState) GetReg(addr uint16, deviceName string) (uint8, error) {
	log.Debug("Getting register: Addr: %x", addr)
	var value uint8
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(regBucketName(deviceName)))
		if b == nil {
			return srv.ErrUnknownDevice{Name: deviceName}
		}
		valueBytes := b.Get(uint16ToByte(addr))
		if len(valueBytes) != 1 {
			return srv.ErrNotFound{What: fmt.Sprintf("register 0x%04x", addr)}
		}
		value = valueBytes[0]
		return nil
	})
	return value, err
}

func (s *DeviceState) GetRegAll(deviceName string) (map[uint16]uint8, error) {
	log.Debug("Getting all registers")
	regs := make(map[uint16]uint8)
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(regBucketName(deviceName)))
		if b == nil {
			return srv.ErrUnknownDevice{Name: deviceName}
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) == 2 && len(v) == 1 {
				regs[binary.BigEndian.Uint16(k)] = v[0]
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *DeviceState) get(deviceName, key string) ([]byte, error) {
	var value []byte
	err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(deviceBucketName(deviceName)))
		if b == nil {
			return srv.ErrUnknownDevice{Name: deviceName}
		}
		v := b.Get([]byte(key))
		if v == nil {
			return srv.ErrNotFound{What: key}
		}
		// bolt values are only valid inside the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

func (s *DeviceState) GetSnapshot(deviceName string) (*device.Snapshot, error) {
	data, err := s.get(deviceName, SnapshotKey)
	if err != nil {
		return nil, err
	}
	snapshot := &device.Snapshot{}
	if err := yaml.Unmarshal(data, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *DeviceState) GetProgram(deviceName string) ([]byte, error) {
	return s.get(deviceName, ProgramKey)
}
