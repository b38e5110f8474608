/*
 * Copyright 2024, Richard Cornwell
 */

package channel

import "testing"

type fakeDevice struct {
	funcCode     uint16
	funcReturn   FcStatus
	ioCalls      int
	activated    bool
	disconnected int
}

func (d *fakeDevice) Func(code uint16) FcStatus {
	d.funcCode = code
	return d.funcReturn
}
func (d *fakeDevice) IO()         { d.ioCalls++ }
func (d *fakeDevice) Activate()   { d.activated = true }
func (d *fakeDevice) Disconnect() { d.disconnected++ }

func TestAttachCreatesChannelAndSlot(t *testing.T) {
	reg := NewRegistry()
	slot, err := reg.Attach(5, 2, DtLp1612)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if slot.Channel.ID != 5 || slot.ChanNo != 5 || slot.EqNo != 2 {
		t.Fatalf("slot address = %d,%d (channel id %d), want 5,2", slot.ChanNo, slot.EqNo, slot.Channel.ID)
	}
	if reg.GetSlot(5, 2) != slot {
		t.Fatalf("GetSlot did not return the attached slot")
	}
}

func TestAttachSameAddressTwiceIsError(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Attach(1, 0, DtLp5xx); err != nil {
		t.Fatalf("first Attach: %v", err)
	}
	if _, err := reg.Attach(1, 0, DtLp5xx); err == nil {
		t.Fatalf("second Attach at the same channel,equipment should fail")
	}
}

func TestAttachOutOfRangeChannelIsError(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Attach(MaxChannels, 0, DtConsole); err == nil {
		t.Fatalf("Attach with an out-of-range channel should fail")
	}
}

func TestTwoEquipmentsShareOneChannel(t *testing.T) {
	reg := NewRegistry()
	s1, err := reg.Attach(3, 0, DtLp5xx)
	if err != nil {
		t.Fatalf("Attach eq 0: %v", err)
	}
	s2, err := reg.Attach(3, 1, DtLp5xx)
	if err != nil {
		t.Fatalf("Attach eq 1: %v", err)
	}
	if s1.Channel != s2.Channel {
		t.Fatalf("two equipments on channel 3 should share the same Channel")
	}
}

func TestRegistryDispatchesToBoundDevice(t *testing.T) {
	reg := NewRegistry()
	slot, _ := reg.Attach(0, 0, DtLp1612)
	dev := &fakeDevice{funcReturn: FcAccepted}
	slot.Bind(dev)

	if st := reg.Func(0, 0, 0o5); st != FcAccepted {
		t.Fatalf("Func returned %v, want Accepted", st)
	}
	if dev.funcCode != 0o5 {
		t.Fatalf("device saw code %#o, want 005", dev.funcCode)
	}
	reg.IO(0, 0)
	reg.Activate(0, 0)
	reg.Disconnect(0, 0)
	if dev.ioCalls != 1 || !dev.activated || dev.disconnected != 1 {
		t.Fatalf("dispatch did not reach the bound device: %+v", dev)
	}
}

func TestRegistryOnUnattachedSlotIsSilentDecline(t *testing.T) {
	reg := NewRegistry()
	if st := reg.Func(9, 9, 0o5); st != FcDeclined {
		t.Fatalf("Func on an unattached slot returned %v, want Declined", st)
	}
	// IO/Activate/Disconnect on an unattached slot must not panic.
	reg.IO(9, 9)
	reg.Activate(9, 9)
	reg.Disconnect(9, 9)
}

func TestFcStatusString(t *testing.T) {
	cases := map[FcStatus]string{
		FcAccepted:  "Accepted",
		FcProcessed: "Processed",
		FcDeclined:  "Declined",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	}
}
