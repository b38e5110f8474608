/*
 * Configuration file parser and device model registry.
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

// Package configparser reads the peripheral configuration file and
// drives device registration. Devices register their model name at
// package-init time via RegisterModel; the parser's job is purely
// syntactic, turning config lines into (channel, equipment, model,
// parameter-string) tuples and calling the matching create function.
package configparser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"log/slog"

	"github.com/cdcpp/ppcore/channel"
)

/* Configuration file format:
 *
 * '#' indicates a comment, rest of line ignored.
 * blank lines ignored.
 * '[channel <octal>]' begins a new channel section.
 * '<octal-eq> = <model> [, <param-string>]' attaches a device to the
 *   equipment number within the current channel section. <param-string>
 *   is passed to the model's create function unparsed, exactly as
 *   written after the first comma -- this is the same string the
 *   device-initialization parameter grammar in the device layer
 *   ("path,controllerType,mode") expects to receive whole.
 * '[cyber]' begins a global settings section (named after the original
 *   source's own [cyber] config-file section); recognized keys are
 *   'printapp = <path>' and 'autoremovepaper = <0|1>', read once via
 *   GlobalConfig() after ParseFile/Parse returns.
 */

// Global holds the process-wide settings read from a [cyber] section,
// consumed by main after configuration load to wire the paper-removal
// print-application hand-off into every attached printer.
type Global struct {
	PrintApp        string
	AutoRemovePaper bool
}

var global Global

// GlobalConfig returns the settings accumulated from any [cyber]
// section encountered by the most recent Parse/ParseFile call.
func GlobalConfig() Global { return global }

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionChannel
	sectionCyber
)

// CreateFunc attaches a device of the registered model to
// (chanNo, eqNo) on reg, parsing param itself.
type CreateFunc func(reg *channel.Registry, chanNo, eqNo int, param string) error

var models = map[string]CreateFunc{}

// RegisterModel is called from a device package's init() to make a
// model name available in configuration files.
func RegisterModel(name string, fn CreateFunc) {
	name = strings.ToUpper(name)
	if _, dup := models[name]; dup {
		panic("configparser: duplicate model registration: " + name)
	}
	models[name] = fn
}

// ParseFile reads a configuration file and attaches every device line
// it finds. A configuration error (unknown model, malformed channel
// header, a model's own create failure) is fatal: it is returned to
// the caller, who per spec error kind 1 logs and terminates.
func ParseFile(reg *channel.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening configuration file %q", path)
	}
	defer f.Close()
	return Parse(reg, f)
}

// Parse reads configuration lines from r. Exported separately from
// ParseFile so tests can drive it from a strings.Reader.
func Parse(reg *channel.Registry, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	section := sectionNone
	chanNo := -1
	global = Global{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			kind, n, err := parseHeader(line)
			if err != nil {
				return errors.Wrapf(err, "line %d", lineNo)
			}
			section, chanNo = kind, n
			continue
		}

		switch section {
		case sectionCyber:
			if err := parseGlobalLine(line); err != nil {
				return errors.Wrapf(err, "line %d", lineNo)
			}
		case sectionChannel:
			if err := parseDeviceLine(reg, chanNo, line); err != nil {
				return errors.Wrapf(err, "line %d", lineNo)
			}
		default:
			return fmt.Errorf("line %d: setting outside any [channel] or [cyber] section", lineNo)
		}
	}
	return scanner.Err()
}

func parseHeader(line string) (sectionKind, int, error) {
	line = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
	fields := strings.Fields(line)
	if len(fields) == 1 && strings.EqualFold(fields[0], "cyber") {
		return sectionCyber, -1, nil
	}
	if len(fields) != 2 || !strings.EqualFold(fields[0], "channel") {
		return sectionNone, 0, fmt.Errorf("malformed section header %q", line)
	}
	n, err := strconv.ParseInt(fields[1], 8, 32)
	if err != nil {
		return sectionNone, 0, errors.Wrapf(err, "channel number %q", fields[1])
	}
	return sectionChannel, int(n), nil
}

// parseGlobalLine handles one "key = value" line of the [cyber]
// section: printapp names the external print application invoked
// after a successful paper-removal rename, autoremovepaper gates
// whether that hand-off happens at all.
func parseGlobalLine(line string) error {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("malformed setting %q", line)
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	switch key {
	case "printapp":
		global.PrintApp = value
	case "autoremovepaper":
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return errors.Wrapf(err, "autoremovepaper value %q", value)
		}
		global.AutoRemovePaper = n != 0
	default:
		return fmt.Errorf("unknown [cyber] setting %q", key)
	}
	return nil
}

func parseDeviceLine(reg *channel.Registry, chanNo int, line string) error {
	eqStr, rest, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("malformed device line %q", line)
	}
	eqNo, err := strconv.ParseInt(strings.TrimSpace(eqStr), 8, 32)
	if err != nil {
		return errors.Wrapf(err, "equipment number %q", eqStr)
	}

	modelName, param, _ := strings.Cut(strings.TrimSpace(rest), ",")
	modelName = strings.ToUpper(strings.TrimSpace(modelName))
	param = strings.TrimSpace(param)

	create, ok := models[modelName]
	if !ok {
		return fmt.Errorf("unknown device model %q", modelName)
	}

	slog.Info("attaching device", "chan", chanNo, "eq", eqNo, "model", modelName)
	if err := create(reg, chanNo, int(eqNo), param); err != nil {
		return errors.Wrapf(err, "attaching %s at %#o,%#o", modelName, chanNo, eqNo)
	}
	return nil
}
