/*
 * Bitmask-gated subsystem trace logging.
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

package debug

import (
	"fmt"
	"os"
	"strconv"
)

// Per-subsystem debug mask bits.
const (
	Channel  = 1 << iota // channel/device-slot dispatch
	Lp1612               // 1612 line printer
	Lp5xx                // 3000-series line printer
	Console              // 6612 console
	Operator             // operator commands (removePaper, attach, ...)
)

var logFile *os.File = os.Stderr

// SetLogFile redirects subsystem trace output. Passing nil restores
// stderr. The caller owns the file's lifetime; debug never closes it.
func SetLogFile(file *os.File) {
	if file == nil {
		file = os.Stderr
	}
	logFile = file
}

// Debugf emits a module-tagged trace line when mask has any of level's
// bits set.
func Debugf(module string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		fmt.Fprintf(logFile, module+": "+format+"\n", a...)
	}
}

// DebugDevf emits a trace line tagged with a device address in octal,
// matching how the operator names channel/equipment pairs elsewhere.
func DebugDevf(chanNo, eqNo int, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		addr := strconv.FormatInt(int64(chanNo), 8) + "," + strconv.FormatInt(int64(eqNo), 8)
		fmt.Fprintf(logFile, addr+": "+format+"\n", a...)
	}
}

// DebugChanf emits a trace line tagged with a channel number.
func DebugChanf(chanNo int, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		ch := strconv.FormatInt(int64(chanNo), 10)
		fmt.Fprintf(logFile, "Channel "+ch+": "+format+"\n", a...)
	}
}
