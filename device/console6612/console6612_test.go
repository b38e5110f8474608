/*
 * Copyright 2024, Richard Cornwell
 */

package console6612

import (
	"testing"
	"time"

	"github.com/cdcpp/ppcore/chartab"
	"github.com/cdcpp/ppcore/channel"
)

type fakeScreen struct {
	font   Font
	x, y   uint16
	queued []byte
	updates int
}

func (s *fakeScreen) SetFont(f Font) { s.font = f }
func (s *fakeScreen) SetX(x uint16)  { s.x = x }
func (s *fakeScreen) SetY(y uint16)  { s.y = y }
func (s *fakeScreen) Queue(ch byte)  { s.queued = append(s.queued, ch) }
func (s *fakeScreen) Update()        { s.updates++ }

func newTestDevice(t *testing.T) (*Device, *fakeScreen) {
	t.Helper()
	scr := &fakeScreen{}
	dev := &Device{
		ch:     &channel.Channel{ID: 0},
		chanNo: 0,
		eqNo:   0,
		screen: scr,
		now:    func() time.Time { return time.Date(2024, 3, 14, 9, 41, 2, 0, time.UTC) },
	}
	return dev, scr
}

func wordFor(hi, lo byte) uint16 {
	return (uint16(hi) << 6) | uint16(lo)
}

func TestConsoleSelFontSetsOffsetAndNotifiesScreen(t *testing.T) {
	dev, scr := newTestDevice(t)
	if st := dev.Func(Fc6612Sel16CharRight); st != channel.FcAccepted {
		t.Fatalf("Sel16CharRight: got %v, want Accepted", st)
	}
	if dev.currentFont != FontLarge || dev.currentOffset != OffRightScreen {
		t.Fatalf("font/offset = %v/%v, want Large/Right", dev.currentFont, dev.currentOffset)
	}
	if scr.font != FontLarge {
		t.Fatalf("screen was not notified of the font change")
	}
}

func TestConsoleCharacterWordQueuesTwoChars(t *testing.T) {
	dev, scr := newTestDevice(t)
	dev.Func(Fc6612Sel64CharLeft)
	dev.ch.Data = wordFor(chartab.AsciiToCdc['H'], chartab.AsciiToCdc['I'])
	dev.ch.Full = true
	dev.IO()
	if dev.ch.Full {
		t.Fatalf("IO did not drain the data word")
	}
	if string(scr.queued) != "HI" {
		t.Fatalf("queued = %q, want %q", string(scr.queued), "HI")
	}
}

func TestConsoleHorizontalAndVerticalCoordinates(t *testing.T) {
	dev, scr := newTestDevice(t)
	dev.Func(Fc6612Sel64CharRight)

	dev.ch.Data = (uint16(0o61) << 6) | 100 // hi in [060,067]: horizontal
	dev.ch.Full = true
	dev.IO()
	if scr.x != 100+uint16(OffRightScreen) {
		t.Fatalf("x = %d, want %d", scr.x, 100+uint16(OffRightScreen))
	}

	dev.ch.Data = (uint16(0o71) << 6) | 200 // hi >= 070: vertical
	dev.ch.Full = true
	dev.IO()
	if scr.y != 200 {
		t.Fatalf("y = %d, want 200", scr.y)
	}
}

func TestConsoleDotModeQueuesDotOnVertical(t *testing.T) {
	dev, scr := newTestDevice(t)
	dev.Func(Fc6612Sel512DotsLeft)
	dev.ch.Data = (uint16(0o71) << 6) | 5
	dev.ch.Full = true
	dev.IO()
	if string(scr.queued) != "." {
		t.Fatalf("queued = %q, want a single dot", string(scr.queued))
	}
}

func TestConsoleKeyRingThrottlesEveryThirdCall(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.QueueKey('X')

	var got []byte
	for i := 0; i < 6; i++ {
		if k := dev.getKey(); k != 0 {
			got = append(got, k)
		}
	}
	if len(got) != 1 {
		t.Fatalf("got %d keys across 6 polls, want exactly 1 (modulo-3 throttle)", len(got))
	}
}

func TestConsoleKeyRingOverflowDropsNewest(t *testing.T) {
	dev, _ := newTestDevice(t)
	for i := 0; i < keyBufSize+10; i++ {
		dev.QueueKey(byte('A' + i%26))
	}
	count := 0
	for !dev.ring.empty() {
		dev.ring.pop()
		count++
	}
	if count >= keyBufSize {
		t.Fatalf("ring held %d entries, want fewer than %d (one slot reserved to distinguish full from empty)", count, keyBufSize)
	}
}

// TestConsoleAutoDateInjection covers scenario 6: driving "ENTER DATE"
// two characters at a time through Sel32CharLeft exhausts the pattern
// and injects "70MMDD\nHHMMSS\n" into the keyboard ring.
func TestConsoleAutoDateInjection(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.autoDate = true
	dev.autoDateString = "ENTER DATE"
	dev.autoYearString = "70"

	dev.Func(Fc6612Sel32CharLeft)
	for i := 0; i+1 < len(dev.autoDateString); i += 2 {
		dev.ch.Data = wordFor(chartab.AsciiToCdc[dev.autoDateString[i]], chartab.AsciiToCdc[dev.autoDateString[i+1]])
		dev.ch.Full = true
		dev.IO()
		dev.fcode = Fc6612Sel32CharLeft // stays latched across the whole message
	}

	if dev.autoDate {
		t.Fatalf("autoDate should be disabled once the pattern fully matches")
	}
	if dev.ring.empty() {
		t.Fatalf("expected the date/time string to be queued into the keyboard ring")
	}

	want := "70" + dev.now().Format("0102\n150405\n")
	for i := 0; i < len(want); i++ {
		got := dev.ring.pop()
		wantCode := chartab.AsciiToConsole[want[i]]
		if got != wantCode {
			t.Fatalf("ring[%d] = %#o, want %#o (%q)", i, got, wantCode, want[i])
		}
	}
}

func TestConsoleAutoDateMismatchResetsPosition(t *testing.T) {
	dev, _ := newTestDevice(t)
	dev.autoDate = true
	dev.autoDateString = "ENTER DATE"

	dev.Func(Fc6612Sel32CharLeft)
	dev.ch.Data = wordFor(chartab.AsciiToCdc['Z'], chartab.AsciiToCdc['Z'])
	dev.ch.Full = true
	dev.IO()

	if dev.autoPos != 0 {
		t.Fatalf("autoPos = %d, want 0 after a mismatch", dev.autoPos)
	}
	if !dev.autoDate {
		t.Fatalf("a mismatch must not disable autoDate")
	}
}

func TestConsoleActivateForcesRefreshOnDisconnect(t *testing.T) {
	dev, scr := newTestDevice(t)
	dev.Activate()
	dev.Disconnect()
	if scr.updates != 1 {
		t.Fatalf("updates = %d, want 1", scr.updates)
	}
	dev.Disconnect()
	if scr.updates != 1 {
		t.Fatalf("a second Disconnect without an intervening Activate should not refresh again")
	}
}
