/*
 * Copyright 2024, Richard Cornwell
 */

package lp3000

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cdcpp/ppcore/channel"
)

func newTestDevice(t *testing.T, head Head, ansi bool) (*Device, string) {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Join(dir, "LP5xx_C00_E0")
	f, err := os.Create(name)
	if err != nil {
		t.Fatalf("create capture file: %v", err)
	}
	dev := &Device{
		ch:         &channel.Channel{ID: 0},
		chanNo:     0,
		eqNo:       0,
		head:       head,
		controller: Controller3555,
		useANSI:    ansi,
		postprint:  true,
		lpi:        6,
		lpp:        66,
		curLine:    1,
		name:       name,
		file:       f,
	}
	dev.flags |= FlagModel3555
	return dev, name
}

func wordFor(hi, lo byte) uint16 {
	return (uint16(hi) << 6) | uint16(lo)
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("reading %q: %v", name, err)
	}
	return string(b)
}

// TestLp3000EjectThenOutputASCII covers scenario 3: an eject followed
// by a two-character 501 output, ASCII mode, single postprint space.
func TestLp3000EjectThenOutputASCII(t *testing.T) {
	dev, name := newTestDevice(t, Head501, false)

	if st := dev.Func(FcEject); st != channel.FcProcessed {
		t.Fatalf("Eject: got %v, want Processed", st)
	}

	if st := dev.Func(FcOutput); st != channel.FcAccepted {
		t.Fatalf("Output: got %v, want Accepted", st)
	}
	dev.ch.Data = wordFor(0o30, 0o31) // 'A','B'
	dev.ch.Full = true
	dev.IO()
	if dev.ch.Full {
		t.Fatalf("IO did not drain the data word")
	}

	if st := dev.Func(FcPrintSingle); st != channel.FcProcessed {
		t.Fatalf("PrintSingle: got %v, want Processed", st)
	}
	dev.Disconnect()

	got := readFile(t, name)
	if got != "\fAB\n" {
		t.Fatalf("got %q, want %q", got, "\fAB\n")
	}
}

// TestLp3000PreprintANSI covers scenario 4: preprint mode, a double
// space selected before the output word, ANSI carriage control.
func TestLp3000PreprintANSI(t *testing.T) {
	dev, name := newTestDevice(t, Head501, true)
	dev.postprint = false

	if st := dev.Func(FcPrintDouble); st != channel.FcProcessed {
		t.Fatalf("PrintDouble: got %v, want Processed", st)
	}

	dev.Func(FcOutput)
	dev.ch.Data = wordFor(0o32, 0o33) // 'C','D'
	dev.ch.Full = true
	dev.IO()
	dev.Disconnect()

	got := readFile(t, name)
	if got != "\n0CD" {
		t.Fatalf("got %q, want %q", got, "\n0CD")
	}
}

// TestLp3000PostprintSuppressANSI covers scenario 5: postprint mode,
// two lines, the second preceded by a NoSpace (suppress) function,
// ANSI carriage control, confirming the control token is written as a
// prefix to each buffered line rather than a suffix.
func TestLp3000PostprintSuppressANSI(t *testing.T) {
	dev, name := newTestDevice(t, Head501, true)

	writeLine(t, dev, "LINE1")
	if st := dev.Func(FcPrintSingle); st != channel.FcProcessed {
		t.Fatalf("PrintSingle: got %v, want Processed", st)
	}
	dev.Disconnect()

	if st := dev.Func(FcNoSpace); st != channel.FcProcessed {
		t.Fatalf("NoSpace: got %v, want Processed", st)
	}
	writeLine(t, dev, "LINE2")
	dev.Disconnect()

	got := readFile(t, name)
	want := "\n LINE1\n+LINE2"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// writeLine drives one Output-fc 512-head transfer of s through the
// device, byte by byte, without invoking Disconnect (the caller does
// that once the trailing control function has also been applied).
func writeLine(t *testing.T, dev *Device, s string) {
	t.Helper()
	dev.head = Head512
	if st := dev.Func(FcOutput); st != channel.FcAccepted {
		t.Fatalf("Output: got %v, want Accepted", st)
	}
	for i := 0; i < len(s); i++ {
		dev.ch.Data = uint16(s[i])
		dev.ch.Full = true
		dev.IO()
		if i < len(s)-1 {
			dev.fcode = FcOutput // re-latch for the next byte of this record
		}
	}
}

func TestLp3000ReleaseArchivesWhenPrinted(t *testing.T) {
	dev, name := newTestDevice(t, Head512, false)

	dev.Func(FcOutput)
	dev.ch.Data = uint16('X')
	dev.ch.Full = true
	dev.IO()
	dev.Disconnect()

	if st := dev.Func(FcRelease); st != channel.FcProcessed {
		t.Fatalf("Release: got %v, want Processed", st)
	}
	if dev.printed {
		t.Fatalf("Release should clear printed after archiving")
	}
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("capture file should be reopened at the original name: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(name), "LP5xx_*.txt"))
	if len(matches) == 0 {
		t.Fatalf("expected an archived LP5xx_*.txt file after Release")
	}
}

func TestLp3000RemovePaperEmptyFileIsNoop(t *testing.T) {
	dev, name := newTestDevice(t, Head501, false)
	if err := dev.RemovePaper(); err == nil {
		t.Fatalf("RemovePaper on empty file should report an error and not rename")
	}
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("original file should still exist: %v", err)
	}
}

func TestLp3000FillImageMemDiscardsOutput(t *testing.T) {
	dev, name := newTestDevice(t, Head512, false)

	dev.Func(FcFillMemory)
	if st := dev.Func(FcOutput); st != channel.FcAccepted {
		t.Fatalf("Output: got %v, want Accepted", st)
	}
	if dev.fcode != fcOutputDiscard {
		t.Fatalf("fcode = %#o, want the discard variant", dev.fcode)
	}
	dev.ch.Data = uint16('Z')
	dev.ch.Full = true
	dev.IO()
	dev.Disconnect()

	got := readFile(t, name)
	if got != "" {
		t.Fatalf("got %q, want empty -- fill-image-memory transfer must not reach the capture file", got)
	}
}

func TestLp3000VFUSelectIsNop(t *testing.T) {
	dev, _ := newTestDevice(t, Head501, false)
	if st := dev.Func(FcPreVFUBase + 3); st != channel.FcProcessed {
		t.Fatalf("VFU preselect: got %v, want Processed", st)
	}
	if st := dev.Func(FcPostVFUBase + 3); st != channel.FcProcessed {
		t.Fatalf("VFU postselect: got %v, want Processed", st)
	}
}

func TestLp3000UnknownCodeIsProcessedNotDeclined(t *testing.T) {
	dev, _ := newTestDevice(t, Head501, false)
	if st := dev.Func(0o77); st != channel.FcProcessed {
		t.Fatalf("unknown code: got %v, want Processed", st)
	}
}
