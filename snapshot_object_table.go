// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// ObjectProperties is one decoded object-property-table entry: an
// optional name, its class, and up to 4 bytes of class-specific
// properties.
type ObjectProperties struct {
	Name       *string
	Properties [4]byte
	Class      ObjectClass
}

// DisplayName returns the object's name, or UnnamedObject if it has none.
func (p *ObjectProperties) DisplayName() string {
	if p.Name == nil {
		return UnnamedObject
	}
	return *p.Name
}

// QueueLength returns the fixed queue-length property (Queue class only).
func (p *ObjectProperties) QueueLength() uint8 { return p.Properties[0] }

// SemaphoreState is whether a semaphore is cleared or signaled.
type SemaphoreState uint8

const (
	SemaphoreCleared SemaphoreState = iota
	SemaphoreSignaled
)

// State returns the semaphore's cleared/signaled state (Semaphore class only).
func (p *ObjectProperties) State() SemaphoreState {
	if p.Properties[0] == 0 {
		return SemaphoreCleared
	}
	return SemaphoreSignaled
}

// MutexOwner is a mutex's owning task handle, or Free.
type MutexOwner struct {
	Handle uint8
	Free   bool
}

// Owner returns the mutex's current owner (Mutex class only).
func (p *ObjectProperties) Owner() MutexOwner {
	if p.Properties[0] == 0 {
		return MutexOwner{Free: true}
	}
	return MutexOwner{Handle: p.Properties[0]}
}

// CurrentPriority returns a task's current priority (Task class only).
func (p *ObjectProperties) CurrentPriority() uint8 { return p.Properties[0] }

// IsrPriority returns an ISR's priority (Isr class only).
func (p *ObjectProperties) IsrPriority() uint8 { return p.Properties[0] }

// ObjectPropertyTable holds the per-class handle->properties maps decoded
// from a snapshot's header region. Populated once at header-decode time;
// never mutated afterward.
type ObjectPropertyTable struct {
	classes map[ObjectClass]map[ObjectHandle]*ObjectProperties
}

func newObjectPropertyTable() *ObjectPropertyTable {
	t := &ObjectPropertyTable{classes: make(map[ObjectClass]map[ObjectHandle]*ObjectProperties)}
	for _, c := range ObjectClassOrder {
		t.classes[c] = make(map[ObjectHandle]*ObjectProperties)
	}
	return t
}

// Lookup returns the decoded properties for handle within class, or
// ErrObjectLookup if no such entry exists.
func (t *ObjectPropertyTable) Lookup(class ObjectClass, handle ObjectHandle) (*ObjectProperties, error) {
	m, ok := t.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: class %s handle %s", ErrObjectLookup, class, handle)
	}
	props, ok := m[handle]
	if !ok {
		return nil, fmt.Errorf("%w: class %s handle %s", ErrObjectLookup, class, handle)
	}
	return props, nil
}

// readObjectPropertyTable decodes the snapshot object-property-table
// section: class counts/name-lengths/byte-widths/start-indices, then the
// fixed-order class blocks themselves.
func readObjectPropertyTable(r io.Reader, order binary.ByteOrder, logger *log.Helper) (*ObjectPropertyTable, error) {
	numObjectClasses, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	tableSize, err := readU32(r, order)
	if err != nil {
		return nil, err
	}

	const numClasses = len(ObjectClassOrder)

	numObjectsPerClass := make([]uint16, numClasses)
	for i := range numObjectsPerClass {
		v, err := readU8(r)
		if err != nil {
			return nil, err
		}
		numObjectsPerClass[i] = uint16(v)
	}
	nameLenPerClass := make([]uint8, numClasses)
	for i := range nameLenPerClass {
		v, err := readU8(r)
		if err != nil {
			return nil, err
		}
		nameLenPerClass[i] = v
	}
	totalBytesPerClass := make([]uint8, numClasses)
	for i := range totalBytesPerClass {
		v, err := readU8(r)
		if err != nil {
			return nil, err
		}
		totalBytesPerClass[i] = v
	}
	startIndexOfClass := make([]uint16, numClasses)
	for i := range startIndexOfClass {
		v, err := readU16(r, order)
		if err != nil {
			return nil, err
		}
		startIndexOfClass[i] = v
	}

	consumed := uint32(numClasses)*4 + uint32(numClasses)*2

	table := newObjectPropertyTable()
	for i, class := range ObjectClassOrder {
		totalBytes := totalBytesPerClass[i]
		if totalBytes == 0 {
			logger.Errorf("object class %s has zero-width properties, skipping", class)
			continue
		}
		if i >= int(numObjectClasses) {
			logger.Warnf("object class %s index %d beyond declared class count %d", class, i, numObjectClasses)
			continue
		}

		nameLen := int(nameLenPerClass[i])
		propSize := int(class.PropertySize())
		entrySize := nameLen + propSize
		numObjects := int(numObjectsPerClass[i])
		consumed += uint32(entrySize * numObjects)

		handle := ObjectHandle(1)
		for e := 0; e < numObjects; e++ {
			nameBuf, err := readBytes(r, nameLen)
			if err != nil {
				return nil, err
			}
			if nameLen == 0 {
				logger.Warnf("object class %s entry with zero-length name field", class)
				continue
			}

			var name *string
			switch nameBuf[0] {
			case 0x00:
				// Empty slot: no handle consumed, nothing stored.
				if _, err := readBytes(r, propSize); err != nil {
					return nil, err
				}
				continue
			case 0x01:
				name = nil
			default:
				s := TrimmedString(nameBuf)
				name = &s
			}

			propBuf, err := readBytes(r, propSize)
			if err != nil {
				return nil, err
			}
			var props [4]byte
			copy(props[:], propBuf)

			table.classes[class][handle] = &ObjectProperties{Name: name, Properties: props, Class: class}
			handle++
		}
	}

	padded := roundUpNearest4(tableSize)
	if padded > consumed {
		if _, err := readBytes(r, int(padded-consumed)); err != nil {
			return nil, err
		}
	}

	return table, nil
}
