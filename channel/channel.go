/*
 * Channel and device-slot registry for the CDC 6000-series peripheral core.
 *
 * Copyright (c) 2021-2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package channel implements the numbered 12-bit channel fabric that
// every peripheral device plugs into, and the device-slot registry
// keyed by (channel, equipment, device type). Unlike a CCW-chained
// byte channel, a CDC PP channel moves whole 12-bit words one at a
// time under the device's own func/io/activate/disconnect protocol.
package channel

import (
	"fmt"
	"sync"

	"log/slog"
)

// MaxChannels bounds the channel number space; CDC PPs addressed up
// to 64 logical channels.
const MaxChannels = 64

// FcStatus is the outcome of a device's Func callback.
type FcStatus int

const (
	// FcAccepted latches the function code into the slot; the
	// channel will drive further IO callbacks for it.
	FcAccepted FcStatus = iota
	// FcProcessed means the code was fully handled synchronously
	// and nothing is latched.
	FcProcessed
	// FcDeclined means the device does not recognize the code.
	FcDeclined
)

func (s FcStatus) String() string {
	switch s {
	case FcAccepted:
		return "Accepted"
	case FcProcessed:
		return "Processed"
	case FcDeclined:
		return "Declined"
	default:
		return "Unknown"
	}
}

// DeviceType tags the family of device occupying a slot.
type DeviceType int

const (
	DtConsole DeviceType = iota
	DtLp1612
	DtLp5xx
)

// Channel is a single 12-bit-wide PP channel. Data is the word in
// flight; Full is true while a producer's word is waiting to be
// drained by the consumer. Status carries the last device status
// reply.
type Channel struct {
	ID     int
	Data   uint16
	Full   bool
	Status uint16
}

// Device is the four-callback capability every peripheral implements.
// A device is single-threaded within one PP transaction but must be
// safely re-entrant across transactions: the executive may interleave
// other devices between calls.
type Device interface {
	Func(code uint16) FcStatus
	IO()
	Activate()
	Disconnect()
}

// PaperDevice is implemented by the line-printer families to expose
// the operator-driven paper-removal cycle (spec.md section 4.5). Not
// every Device is a PaperDevice -- the console has no capture file --
// so callers type-assert a Slot's Device against this interface.
type PaperDevice interface {
	RemovePaper() error
}

// Slot is a device-slot registry entry: the channel it belongs to,
// its address, and the device implementation occupying it.
type Slot struct {
	Channel    *Channel
	ChanNo     int
	EqNo       int
	UnitNo     int
	DeviceType DeviceType
	Device     Device
}

type slotKey struct {
	chanNo int
	eqNo   int
}

// Registry owns the channel and device-slot tables. The executive
// holds exactly one Registry for the lifetime of the emulator; slots
// are created at configuration time and never destroyed while running.
type Registry struct {
	mu       sync.Mutex
	channels map[int]*Channel
	slots    map[slotKey]*Slot
}

// NewRegistry returns an empty channel/slot registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[int]*Channel),
		slots:    make(map[slotKey]*Slot),
	}
}

// Attach creates (or returns the existing) channel chanNo and
// allocates a device slot for (chanNo, eqNo) of the given type. It is
// an error to attach two devices to the same (channel, equipment)
// pair.
func (r *Registry) Attach(chanNo, eqNo int, dtype DeviceType) (*Slot, error) {
	if chanNo < 0 || chanNo >= MaxChannels {
		return nil, fmt.Errorf("channel %d out of range", chanNo)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{chanNo, eqNo}
	if _, ok := r.slots[key]; ok {
		return nil, fmt.Errorf("channel %#o equipment %#o already has a device attached", chanNo, eqNo)
	}

	ch, ok := r.channels[chanNo]
	if !ok {
		ch = &Channel{ID: chanNo}
		r.channels[chanNo] = ch
	}

	slot := &Slot{
		Channel:    ch,
		ChanNo:     chanNo,
		EqNo:       eqNo,
		DeviceType: dtype,
	}
	r.slots[key] = slot
	return slot, nil
}

// Bind attaches the device implementation to a slot created by
// Attach. Kept separate from Attach because a device's constructor
// typically needs the slot's Channel before it can build itself.
func (s *Slot) Bind(dev Device) {
	s.Device = dev
}

// GetSlot looks up the device slot for (chanNo, eqNo), returning nil
// if none is attached.
func (r *Registry) GetSlot(chanNo, eqNo int) *Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[slotKey{chanNo, eqNo}]
}

// Slots returns every attached slot, in no particular order. Used by
// the operator console's "show" verb to enumerate attached devices.
func (r *Registry) Slots() []*Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Slot, 0, len(r.slots))
	for _, s := range r.slots {
		out = append(out, s)
	}
	return out
}

// Func dispatches a function code to the slot's device, logging and
// declining on behalf of an empty slot rather than panicking -- a
// null device slot is a runtime operator error (spec error kind 2),
// not an invariant breach worth crashing the executive over.
func (r *Registry) Func(chanNo, eqNo int, code uint16) FcStatus {
	slot := r.GetSlot(chanNo, eqNo)
	if slot == nil || slot.Device == nil {
		slog.Warn("func on unattached slot", "chan", chanNo, "eq", eqNo, "code", code)
		return FcDeclined
	}
	return slot.Device.Func(code)
}

// IO drives one IO callback for the slot's device.
func (r *Registry) IO(chanNo, eqNo int) {
	slot := r.GetSlot(chanNo, eqNo)
	if slot == nil || slot.Device == nil {
		return
	}
	slot.Device.IO()
}

// Activate notifies the slot's device that its channel has been
// selected.
func (r *Registry) Activate(chanNo, eqNo int) {
	slot := r.GetSlot(chanNo, eqNo)
	if slot == nil || slot.Device == nil {
		return
	}
	slot.Device.Activate()
}

// Disconnect notifies the slot's device that the PP has released the
// channel.
func (r *Registry) Disconnect(chanNo, eqNo int) {
	slot := r.GetSlot(chanNo, eqNo)
	if slot == nil || slot.Device == nil {
		return
	}
	slot.Device.Disconnect()
}
