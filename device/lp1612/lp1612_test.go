/*
 * Copyright 2024, Richard Cornwell
 */

package lp1612

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cdcpp/ppcore/channel"
)

func newTestDevice(t *testing.T, ansi bool) (*Device, string) {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Join(dir, "LP1612_C00")
	f, err := os.Create(name)
	if err != nil {
		t.Fatalf("create capture file: %v", err)
	}
	dev := &Device{
		ch:      &channel.Channel{ID: 0},
		chanNo:  0,
		eqNo:    0,
		useANSI: ansi,
		name:    name,
		file:    f,
	}
	return dev, name
}

func wordFor(hi, lo byte) uint16 {
	return (uint16(hi) << 6) | uint16(lo)
}

func TestLp1612SingleLinePrintASCII(t *testing.T) {
	dev, name := newTestDevice(t, false)

	if st := dev.Func(FcSelect); st != channel.FcAccepted {
		t.Fatalf("Select: got %v, want Accepted", st)
	}
	dev.ch.Data = wordFor(0o30, 0o31) // external BCD 'H','I'
	dev.ch.Full = true
	dev.IO()
	if dev.ch.Full {
		t.Fatalf("IO did not drain the data word")
	}

	if st := dev.Func(FcSingleSpace); st != channel.FcAccepted {
		t.Fatalf("SingleSpace: got %v, want Accepted", st)
	}
	dev.Disconnect()

	got := readFile(t, name)
	if got != "HI\n" {
		t.Fatalf("got %q, want %q", got, "HI\n")
	}
}

func TestLp1612SingleLinePrintANSI(t *testing.T) {
	dev, name := newTestDevice(t, true)

	dev.Func(FcSelect)
	dev.ch.Data = wordFor(0o30, 0o31)
	dev.ch.Full = true
	dev.IO()
	dev.Func(FcSingleSpace)
	dev.Disconnect()

	got := readFile(t, name)
	if got != "HI\n " {
		t.Fatalf("got %q, want %q", got, "HI\n ")
	}
}

func TestLp1612StatusReqQuirk(t *testing.T) {
	dev, _ := newTestDevice(t, false)

	if st := dev.Func(FcStatusReq); st != channel.FcAccepted {
		t.Fatalf("StatusReq: got %v, want Accepted", st)
	}
	dev.IO()
	if dev.ch.Data != 0 {
		t.Fatalf("first StatusReq data = %#o, want 0", dev.ch.Data)
	}
	if !dev.ch.Full {
		t.Fatalf("StatusReq IO should set Full")
	}
	if dev.ch.Status != StPrintReady {
		t.Fatalf("status after first StatusReq = %#o, want StPrintReady", dev.ch.Status)
	}

	dev.ch.Full = false
	dev.Func(FcStatusReq)
	dev.IO()
	if dev.ch.Data != StPrintReady {
		t.Fatalf("second StatusReq data = %#o, want StPrintReady", dev.ch.Data)
	}
}

func TestLp1612SuppressLFIsProcessedNotLatched(t *testing.T) {
	dev, name := newTestDevice(t, false)
	if st := dev.Func(FcSuppressLF); st != channel.FcProcessed {
		t.Fatalf("SuppressLF: got %v, want Processed", st)
	}
	if dev.latched {
		t.Fatalf("SuppressLF must not latch fcode")
	}
	if got := readFile(t, name); got != "\r" {
		t.Fatalf("got %q, want %q", got, "\r")
	}
}

func TestLp1612RemovePaperEmptyFileIsNoop(t *testing.T) {
	dev, name := newTestDevice(t, false)
	if err := dev.RemovePaper(); err == nil {
		t.Fatalf("RemovePaper on empty file should report an error and not rename")
	}
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("original file should still exist: %v", err)
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("reading %q: %v", name, err)
	}
	return string(b)
}
