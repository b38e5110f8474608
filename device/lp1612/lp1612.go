/*
 * CDC 1612 line printer emulation.
 *
 * Copyright 2024, Richard Cornwell
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

// Package lp1612 emulates the CDC 1612 line printer: one function
// code active at a time, ASCII or ANSI/ASA carriage-control output.
package lp1612

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/cdcpp/ppcore/chartab"
	"github.com/cdcpp/ppcore/channel"
	"github.com/cdcpp/ppcore/command/command"
	"github.com/cdcpp/ppcore/config/configparser"
	"github.com/cdcpp/ppcore/device/paperfile"
	"github.com/cdcpp/ppcore/util/debug"
)

// Function codes, octal, lower 6 bits of the 12-bit word (the full
// word is the code for this device -- there is no equipment-select
// high half to strip, unlike the 3000-series).
const (
	FcSelect      uint16 = 0o00
	FcSingleSpace uint16 = 0o01
	FcDoubleSpace uint16 = 0o02
	FcMoveCh7     uint16 = 0o03
	FcMoveTOF     uint16 = 0o04
	FcPrint       uint16 = 0o05
	FcSuppressLF  uint16 = 0o06
	FcStatusReq   uint16 = 0o07
	FcClearFormat uint16 = 0o10 // 010-016 octal: clear/format group
)

// StPrintReady is bit 12 (1-based) of the status word.
const StPrintReady uint16 = 0o4000

// Device is a single attached 1612 printer.
type Device struct {
	slot    *channel.Slot
	ch      *channel.Channel
	chanNo  int
	eqNo    int
	useANSI bool
	path    string // output directory, trailing slash already appended
	name    string // active capture file name
	file    *os.File
	latched bool
	fcode   uint16
}

func init() {
	configparser.RegisterModel("1612", create)
}

// create parses the "path,controllerType,mode" device-initialization
// parameter string (controllerType is ignored for the 1612 -- it has
// no controller choice -- but accepted so the same grammar works for
// both printer families) and attaches a 1612 to (chanNo, eqNo).
func create(reg *channel.Registry, chanNo, eqNo int, param string) error {
	path, _, mode := splitParam(param)

	slot, err := reg.Attach(chanNo, eqNo, channel.DtLp1612)
	if err != nil {
		return err
	}

	dev := &Device{
		slot:    slot,
		ch:      slot.Channel,
		chanNo:  chanNo,
		eqNo:    eqNo,
		useANSI: mode == "ansi",
		path:    path,
		name:    fmt.Sprintf("%sLP1612_C%02o", path, chanNo),
	}

	f, err := os.Create(dev.name)
	if err != nil {
		return errors.Wrapf(err, "creating capture file %q", dev.name)
	}
	dev.file = f

	slot.Bind(dev)
	return nil
}

// splitParam parses "path,controllerType,mode" non-destructively (the
// original source mutates its copy with strtok; we take the string by
// value and never touch the caller's copy).
func splitParam(param string) (path, controllerType, mode string) {
	parts := strings.Split(param, ",")
	if len(parts) > 0 {
		path = parts[0]
	}
	if len(parts) > 1 {
		controllerType = parts[1]
	}
	if len(parts) > 2 {
		mode = strings.ToLower(parts[2])
	}
	if path != "" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path, controllerType, mode
}

// Func implements channel.Device.
func (d *Device) Func(code uint16) channel.FcStatus {
	c := code & 0o77
	switch {
	case c == FcSingleSpace || c == FcMoveCh7 || c == FcPrint:
		d.emit("\n", "\n ")
		return d.latch(c)
	case c == FcDoubleSpace:
		d.emit("\n\n", "\n0")
		return d.latch(c)
	case c == FcMoveTOF:
		d.emit("\f", "\n1")
		return d.latch(c)
	case c == FcSuppressLF:
		d.emit("\r", "\n+")
		d.latched = false
		d.fcode = 0
		return channel.FcProcessed
	case c == FcSelect || c == FcStatusReq:
		return d.latch(c)
	case c >= FcClearFormat && c <= FcClearFormat+6:
		return d.latch(c)
	default:
		debug.DebugDevf(d.chanNo, d.eqNo, debug.Lp1612, debug.Lp1612, "declined code %#o", c)
		return channel.FcDeclined
	}
}

func (d *Device) latch(code uint16) channel.FcStatus {
	d.latched = true
	d.fcode = code
	return channel.FcAccepted
}

func (d *Device) emit(ascii, ansi string) {
	if d.file == nil {
		return
	}
	s := ascii
	if d.useANSI {
		s = ansi
	}
	if _, err := d.file.WriteString(s); err != nil {
		debug.DebugDevf(d.chanNo, d.eqNo, debug.Lp1612, debug.Lp1612, "write error: %v", err)
	}
}

// IO implements channel.Device. While StatusReq is latched it
// reproduces the documented status quirk: channel.Data always
// reflects whatever channel.Status held *before* this call, and
// Status is only ever written by a previous StatusReq transaction --
// so the very first StatusReq after attach returns zero. For every
// other latched code, a data word carries two external-BCD characters
// packed high/low and both are written to the capture file.
func (d *Device) IO() {
	if !d.latched {
		return
	}
	if d.fcode == FcStatusReq {
		d.ch.Data = d.ch.Status
		d.ch.Status = StPrintReady
		d.ch.Full = true
		d.latched = false
		d.fcode = 0
		return
	}
	if d.file == nil || !d.ch.Full {
		return
	}
	word := d.ch.Data
	hi := byte((word >> 6) & 0o77)
	lo := byte(word & 0o77)
	if _, err := d.file.Write([]byte{chartab.ExtBcdToAscii[hi], chartab.ExtBcdToAscii[lo]}); err != nil {
		debug.DebugDevf(d.chanNo, d.eqNo, debug.Lp1612, debug.Lp1612, "write error: %v", err)
	}
	d.ch.Full = false
}

// Activate implements channel.Device; the 1612 has no deferred
// selection work.
func (d *Device) Activate() {}

// Disconnect implements channel.Device. The 1612 never defers
// spacing, so ending the transaction is all that is left to do.
func (d *Device) Disconnect() {
	d.latched = false
	d.fcode = 0
}

// RemovePaper implements channel.PaperDevice: flush, abort on an
// empty file, close, rename with retry, reopen. The 1612 archive name
// omits the .txt suffix the 3000-series uses, preserving existing
// behavior (spec.md section 6).
func (d *Device) RemovePaper() error {
	if d.file == nil {
		return fmt.Errorf("lp1612 %#o,%#o: no capture file open", d.chanNo, d.eqNo)
	}
	pos, err := d.file.Seek(0, os.SEEK_CUR)
	if err != nil {
		return err
	}
	if pos == 0 {
		return fmt.Errorf("lp1612 %#o,%#o: no output has been written, paper not removed", d.chanNo, d.eqNo)
	}
	if err := d.file.Close(); err != nil {
		return err
	}
	d.file = nil

	archived, err := paperfile.RenameWithRetry(d.name, "LP1612", "")
	if err != nil {
		return err
	}
	debug.DebugDevf(d.chanNo, d.eqNo, debug.Operator, debug.Operator, "paper removed to %s", archived)

	f, err := os.Create(d.name)
	if err != nil {
		return errors.Wrapf(err, "reopening capture file %q", d.name)
	}
	d.file = f
	return nil
}

// ActiveFile exposes the capture file path for tests.
func (d *Device) ActiveFile() string { return d.name }

// Options implements command.Command: the operator console's set of
// attach/set/show verbs this device understands.
func (d *Device) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "file", OptionType: command.OptionFile, OptionValid: command.ValidAttach},
		{Name: "ansi", OptionType: command.OptionSwitch, OptionValid: command.ValidSet},
	}
}

// Attach implements command.Command: re-point the active capture file
// at a new path without going through the paper-removal rename cycle.
func (d *Device) Attach(options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name != "file" {
			continue
		}
		f, err := os.Create(opt.EqualOpt)
		if err != nil {
			return errors.Wrapf(err, "attaching capture file %q", opt.EqualOpt)
		}
		if d.file != nil {
			d.file.Close()
		}
		d.file = f
		d.name = opt.EqualOpt
		return nil
	}
	return fmt.Errorf("lp1612 %#o,%#o: attach requires a file option", d.chanNo, d.eqNo)
}

// Detach implements command.Command: close the capture file without
// reopening it. A later Attach is required before output resumes.
func (d *Device) Detach() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Set implements command.Command. Only "ansi" is settable; set==true
// is the "unset" form (switch back to plain ASCII carriage control).
func (d *Device) Set(set bool, options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name == "ansi" {
			d.useANSI = !set
		}
	}
	return nil
}

// Show implements command.Command.
func (d *Device) Show(_ []*command.CmdOption) (string, error) {
	mode := "ascii"
	if d.useANSI {
		mode = "ansi"
	}
	return fmt.Sprintf("lp1612 %#o,%#o: mode=%s file=%s", d.chanNo, d.eqNo, mode, d.name), nil
}
