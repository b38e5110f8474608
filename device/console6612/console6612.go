/*
 * CDC 6612 console emulation.
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

// Package console6612 emulates the CDC 6612 operator console: font/side
// selection, character- and dot-mode screen words, coordinate words, a
// lock-free single-producer/single-consumer keyboard ring, and the
// "autodate" pattern-matching injector. The console never touches a
// concrete window toolkit; callers supply a Screen and, optionally, a
// KeyboardSource after construction.
package console6612

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cdcpp/ppcore/chartab"
	"github.com/cdcpp/ppcore/channel"
	"github.com/cdcpp/ppcore/command/command"
	"github.com/cdcpp/ppcore/config/configparser"
	"github.com/cdcpp/ppcore/util/debug"
)

// Font is the glyph size the console is currently plotting with.
type Font int

const (
	FontDot    Font = iota // single-dot plotting (512-dot character sets)
	FontSmall              // 64 characters per row
	FontMedium             // 32 characters per row
	FontLarge              // 16 characters per row
)

// Offset is the horizontal origin added to every X coordinate; the two
// logical screens sit side by side in the same coordinate space.
type Offset uint16

const (
	OffLeftScreen  Offset = 0
	OffRightScreen Offset = 512
)

const keyBufSize = 50

// Function codes, full 12-bit words (the console, like the 1612, has
// no equipment-select high half to strip).
const (
	Fc6612Sel64CharLeft   uint16 = 0o7000
	Fc6612Sel32CharLeft   uint16 = 0o7001
	Fc6612Sel16CharLeft   uint16 = 0o7002
	Fc6612Sel512DotsLeft  uint16 = 0o7010
	Fc6612SelKeyIn        uint16 = 0o7020
	Fc6612Sel64CharRight  uint16 = 0o7100
	Fc6612Sel32CharRight  uint16 = 0o7101
	Fc6612Sel16CharRight  uint16 = 0o7102
	Fc6612Sel512DotsRight uint16 = 0o7110
)

// Screen is the host window abstraction a console Device draws
// through. Implementations own pixel/cell rendering; the console core
// only ever calls these five methods.
type Screen interface {
	SetFont(f Font)
	SetX(x uint16)
	SetY(y uint16)
	Queue(ch byte)
	Update()
}

// KeyboardSource is the direct, synchronous keyboard path: polled once
// per SelKeyIn io() cycle, returning 0 when nothing is pending. Keys
// are plain ASCII; the console maps them through AsciiToConsole itself.
type KeyboardSource interface {
	PollKey() byte
}

type nullScreen struct{}

func (nullScreen) SetFont(Font) {}
func (nullScreen) SetX(uint16)  {}
func (nullScreen) SetY(uint16)  {}
func (nullScreen) Queue(byte)   {}
func (nullScreen) Update()      {}

// keyRing is the asynchronous keyboard path: a fixed 50-slot ring fed
// by consoleQueueKey-style producers (the autodate injector, or a
// remote/console-side key source) and drained, throttled, by the
// device's own io() cycles. keyIn is written only by producers,
// keyOut only by the device itself, per spec.md 5's SPSC contract.
type keyRing struct {
	buf [keyBufSize]byte
	in  uint32
	out uint32
}

func (r *keyRing) push(ch byte) {
	in := atomic.LoadUint32(&r.in)
	out := atomic.LoadUint32(&r.out)
	next := (in + 1) % keyBufSize
	if next == out {
		return // full: drop the newest key
	}
	r.buf[in] = ch
	atomic.StoreUint32(&r.in, next)
}

func (r *keyRing) empty() bool {
	return atomic.LoadUint32(&r.in) == atomic.LoadUint32(&r.out)
}

func (r *keyRing) pop() byte {
	out := atomic.LoadUint32(&r.out)
	in := atomic.LoadUint32(&r.in)
	if in == out {
		return 0
	}
	key := r.buf[out]
	atomic.StoreUint32(&r.out, (out+1)%keyBufSize)
	return key
}

// Device is a single attached 6612 console.
type Device struct {
	slot   *channel.Slot
	ch     *channel.Channel
	chanNo int
	eqNo   int

	currentFont   Font
	currentOffset Offset
	emptyDrop     bool

	ring     keyRing
	keyLoops uint64

	autoDate       bool
	autoDateString string
	autoYearString string
	autoPos        int

	screen   Screen
	keyboard KeyboardSource
	now      func() time.Time

	fcode uint16
}

func init() {
	configparser.RegisterModel("6612", create)
}

// create parses the console's device-initialization parameter string,
// "autoDateString,autoYearString" (both optional; an absent
// autoDateString leaves autodate disabled). Unlike the printer
// families there is no path component -- the console has no capture
// file.
func create(reg *channel.Registry, chanNo, eqNo int, param string) error {
	dateStr, yearStr := splitParam(param)

	slot, err := reg.Attach(chanNo, eqNo, channel.DtConsole)
	if err != nil {
		return err
	}

	dev := &Device{
		slot:           slot,
		ch:             slot.Channel,
		chanNo:         chanNo,
		eqNo:           eqNo,
		screen:         nullScreen{},
		now:            time.Now,
		autoDateString: dateStr,
		autoYearString: yearStr,
		autoDate:       dateStr != "",
	}

	slot.Bind(dev)
	return nil
}

func splitParam(param string) (dateStr, yearStr string) {
	parts := strings.SplitN(param, ",", 2)
	if len(parts) > 0 {
		dateStr = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		yearStr = strings.TrimSpace(parts[1])
	}
	return dateStr, yearStr
}

// SetScreen wires the host window abstraction into an already-attached
// console. Called from setup code after configparser has created the
// device, since model-registry create functions take only the bare
// parameter string.
func (d *Device) SetScreen(s Screen) {
	if s == nil {
		s = nullScreen{}
	}
	d.screen = s
}

// SetKeyboardSource wires the direct synchronous keyboard path.
func (d *Device) SetKeyboardSource(k KeyboardSource) {
	d.keyboard = k
}

// QueueKey feeds one console-code byte into the asynchronous keyboard
// ring; this is the producer side of the SPSC contract and may be
// called from a different goroutine than the one driving Func/IO.
func (d *Device) QueueKey(code byte) {
	d.ring.push(code)
}

// Func implements channel.Device.
func (d *Device) Func(code uint16) channel.FcStatus {
	d.ch.Full = false

	switch code {
	case Fc6612Sel512DotsLeft:
		d.currentFont, d.currentOffset = FontDot, OffLeftScreen
	case Fc6612Sel512DotsRight:
		d.currentFont, d.currentOffset = FontDot, OffRightScreen
	case Fc6612Sel64CharLeft:
		d.currentFont, d.currentOffset = FontSmall, OffLeftScreen
	case Fc6612Sel32CharLeft:
		d.currentFont, d.currentOffset = FontMedium, OffLeftScreen
	case Fc6612Sel16CharLeft:
		d.currentFont, d.currentOffset = FontLarge, OffLeftScreen
	case Fc6612Sel64CharRight:
		d.currentFont, d.currentOffset = FontSmall, OffRightScreen
	case Fc6612Sel32CharRight:
		d.currentFont, d.currentOffset = FontMedium, OffRightScreen
	case Fc6612Sel16CharRight:
		d.currentFont, d.currentOffset = FontLarge, OffRightScreen
	case Fc6612SelKeyIn:
		// no font/offset change
	default:
		debug.DebugDevf(d.chanNo, d.eqNo, debug.Console, debug.Console, "declined code %#o", code)
		return channel.FcDeclined
	}

	if code != Fc6612SelKeyIn {
		d.screen.SetFont(d.currentFont)
	}
	d.fcode = code
	return channel.FcAccepted
}

// IO implements channel.Device.
func (d *Device) IO() {
	switch d.fcode {
	case Fc6612Sel64CharLeft, Fc6612Sel32CharLeft, Fc6612Sel16CharLeft,
		Fc6612Sel64CharRight, Fc6612Sel32CharRight, Fc6612Sel16CharRight:
		if !d.ch.Full {
			return
		}
		d.emptyDrop = false
		d.decodeCharWord()
		d.ch.Full = false

	case Fc6612Sel512DotsLeft, Fc6612Sel512DotsRight:
		if !d.ch.Full {
			return
		}
		d.emptyDrop = false
		d.decodeDotWord()
		d.ch.Full = false

	case Fc6612SelKeyIn:
		var key byte
		if d.keyboard != nil {
			key = d.keyboard.PollKey()
		}
		word := uint16(chartab.AsciiToConsole[key])
		if word == 0 {
			word = uint16(d.getKey())
		}
		d.ch.Data = word
		d.ch.Full = true
		d.ch.Status = 0
		d.fcode = 0
	}
}

// decodeCharWord handles a character-mode (Small/Medium/Large font)
// screen word: high 6 bits < 060 means two packed display-code
// characters, 060-067 a horizontal coordinate, 070-077 a vertical one.
func (d *Device) decodeCharWord() {
	word := d.ch.Data
	hi := byte((word >> 6) & 0o77)

	switch {
	case hi >= 0o70:
		d.screen.SetY(word & 0o777)
	case hi >= 0o60:
		d.screen.SetX((word & 0o777) + uint16(d.currentOffset))
	default:
		d.screen.Queue(chartab.ConsoleToAscii[hi])
		d.screen.Queue(chartab.ConsoleToAscii[word&0o77])
	}

	d.checkAutoDate(word)
}

// decodeDotWord handles a Dot-font screen word: the character branch
// of decodeCharWord never applies in dot mode, but a vertical
// coordinate additionally queues a plotted '.' for each dot written.
func (d *Device) decodeDotWord() {
	word := d.ch.Data
	hi := byte((word >> 6) & 0o77)

	switch {
	case hi >= 0o70:
		d.screen.SetY(word & 0o777)
		d.screen.Queue('.')
	case hi >= 0o60:
		d.screen.SetX((word & 0o777) + uint16(d.currentOffset))
	}
}

// checkAutoDate cross-checks one character-mode word against the
// configured autodate pattern, advancing or resetting autoPos, and
// injecting the date/time into the keyboard ring on a full match with
// an empty ring. Only Medium-font (32-char) selects participate, per
// the documented "enter date" sequence.
func (d *Device) checkAutoDate(word uint16) {
	if !d.autoDate {
		return
	}
	if d.fcode != Fc6612Sel32CharLeft && d.fcode != Fc6612Sel32CharRight {
		return
	}

	hi := byte((word >> 6) & 0o77)
	lo := byte(word & 0o77)
	want1 := charAt(d.autoDateString, d.autoPos)
	want2 := charAt(d.autoDateString, d.autoPos+1)

	if hi != chartab.AsciiToCdc[want1] || lo != chartab.AsciiToCdc[want2] {
		d.autoPos = 0
		return
	}

	if want2 == 0 || charAt(d.autoDateString, d.autoPos+2) == 0 {
		d.finishAutoDate()
	} else {
		d.autoPos += 2
	}
}

func charAt(s string, i int) byte {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

// finishAutoDate disables autodate and, provided nothing is already
// waiting in the keyboard ring, queues "YYMMDD\nHHMMSS\n" with YY
// overridden by autoYearString -- the DSD operator's date/time entry
// shorthand the real console drivers expect to read back.
func (d *Device) finishAutoDate() {
	d.autoDate = false
	if !d.ring.empty() {
		return
	}

	ts := []byte(d.now().Format("060102\n150405\n"))
	if len(d.autoYearString) >= 2 {
		ts[0] = d.autoYearString[0]
		ts[1] = d.autoYearString[1]
	}
	for _, ch := range ts {
		d.ring.push(chartab.AsciiToConsole[ch])
	}
}

func (d *Device) getKey() byte {
	d.keyLoops++
	if d.ring.empty() {
		return 0
	}
	if d.keyLoops%3 != 1 {
		return 0
	}
	return d.ring.pop()
}

// Activate implements channel.Device: the PP has selected this
// channel, so the next Disconnect should force a screen refresh even
// if no data word ever arrives.
func (d *Device) Activate() {
	d.emptyDrop = true
}

// Disconnect implements channel.Device.
func (d *Device) Disconnect() {
	if d.emptyDrop {
		d.screen.Update()
		d.emptyDrop = false
	}
}

// Options implements command.Command: the console has no capture file,
// so only the autodate pattern is operator-settable.
func (d *Device) Options(_ string) []command.Options {
	return []command.Options{
		{Name: "autodate", OptionType: command.OptionName, OptionValid: command.ValidSet},
	}
}

// Attach implements command.Command; the console has nothing to attach.
func (d *Device) Attach([]*command.CmdOption) error {
	return fmt.Errorf("console %#o,%#o: nothing to attach", d.chanNo, d.eqNo)
}

// Detach implements command.Command; the console has nothing to detach.
func (d *Device) Detach() error {
	return fmt.Errorf("console %#o,%#o: nothing to detach", d.chanNo, d.eqNo)
}

// Set implements command.Command: "autodate" re-arms the autodate
// pattern matcher with the date string given as its value, using
// whatever autoYearString was configured at attach time.
func (d *Device) Set(set bool, options []*command.CmdOption) error {
	for _, opt := range options {
		if opt.Name != "autodate" {
			continue
		}
		if set {
			d.autoDate = false
			continue
		}
		d.autoDateString = opt.EqualOpt
		d.autoPos = 0
		d.autoDate = true
	}
	return nil
}

// Show implements command.Command.
func (d *Device) Show(_ []*command.CmdOption) (string, error) {
	return fmt.Sprintf("console %#o,%#o: font=%v offset=%v autoDate=%v",
		d.chanNo, d.eqNo, d.currentFont, d.currentOffset, d.autoDate), nil
}
