/*
 * Operator command-line tokenizer.
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

// Package parser interprets operator console command lines against a
// channel.Registry. Devices are addressed by octal "chan,eq" pairs
// rather than a single hex device number, matching how the channel
// layer itself keys device slots.
package parser

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/cdcpp/ppcore/channel"
	"github.com/cdcpp/ppcore/command/command"
)

type cmd struct {
	Name     string
	Min      int
	Process  func(*cmdLine, *channel.Registry) (bool, error)
	Complete func(*cmdLine) []string
}

type cmdLine struct {
	line string
	pos  int
}

// ProcessCommand executes one command line against reg. The returned
// bool reports whether the operator asked to quit.
func ProcessCommand(commandLine string, reg *channel.Registry) (bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)
	if name == "" {
		return false, nil
	}

	match := matchList(name)
	if len(match) == 0 {
		return false, errors.New("command not found: " + name)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + name)
	}

	return match[0].Process(&line, reg)
}

// CompleteCmd drives liner's tab completion.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)

	if !line.isEOL() && !unicode.IsSpace(rune(line.getCurrent())) {
		match := matchList(name)
		if len(match) != 1 || match[0].Complete == nil {
			return nil
		}
		return match[0].Complete(&line)
	}

	var matches []string
	for _, c := range cmdList {
		if strings.HasPrefix(c.Name, name) {
			matches = append(matches, c.Name)
		}
	}
	return matches
}

func matchCommand(m cmd, name string) bool {
	if len(name) > len(m.Name) {
		return false
	}
	for i := range name {
		if m.Name[i] != name[i] {
			return false
		}
	}
	return len(name) >= m.Min
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var match []cmd
	for _, m := range cmdList {
		if matchCommand(m, name) {
			match = append(match, m)
		}
	}
	return match
}

func matchOption(name string, opts []command.Options, cmdType int) command.Options {
	for _, opt := range opts {
		if opt.OptionValid&cmdType == 0 {
			continue
		}
		if opt.Name == name {
			return opt
		}
	}
	return command.Options{OptionType: -1}
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line) || l.line[l.pos] == '#'
}

func (l *cmdLine) getCurrent() byte {
	if l.isEOL() {
		return 0
	}
	by := l.line[l.pos]
	l.pos++
	return by
}

// parseQuoteString parses either a "quoted string" or a bare
// space-terminated token; the quote form allows embedded spaces.
func (l *cmdLine) parseQuoteString() (string, bool) {
	inQuote := false
	value := ""

	by := l.getCurrent()
	if by == 0 {
		return "", false
	}
	if by == '"' {
		inQuote = true
		by = l.getCurrent()
	}

	for by != 0 {
		if by == '"' && inQuote {
			return value, true
		}
		if !inQuote && unicode.IsSpace(rune(by)) {
			return value, true
		}
		value += string(by)
		by = l.getCurrent()
	}
	return value, !inQuote
}

// getNumber parses an integer in the given base; comma-separated device
// address components are read in octal, numeric options in decimal.
func (l *cmdLine) getNumber(base int) (int, error) {
	l.skipSpace()
	if l.isEOL() {
		return 0, errors.New("expected a number")
	}
	start := l.pos
	for !l.isEOL() && !unicode.IsSpace(rune(l.line[l.pos])) && l.line[l.pos] != ',' {
		l.pos++
	}
	n, err := strconv.ParseInt(l.line[start:l.pos], base, 32)
	if err != nil {
		return 0, errors.New("not a number: " + l.line[start:l.pos])
	}
	return int(n), nil
}

// getWord parses a bare identifier, stopping at '=' when equal is
// true, matching the teacher's word/name tokenizer.
func (l *cmdLine) getWord(equal bool) string {
	l.skipSpace()
	value := ""
	for !l.isEOL() {
		by := l.line[l.pos]
		if unicode.IsSpace(rune(by)) {
			break
		}
		if equal && by == '=' {
			break
		}
		value += string(by)
		l.pos++
	}
	return strings.ToLower(value)
}

// getDeviceAddr parses an octal "chan,eq" pair and resolves it to an
// attached slot.
func (l *cmdLine) getDeviceAddr(reg *channel.Registry) (*channel.Slot, error) {
	l.skipSpace()
	chanNo, err := l.getNumber(8)
	if err != nil {
		return nil, errors.New("device address must be chan,eq in octal")
	}
	if l.getCurrent() != ',' {
		return nil, errors.New("device address must be chan,eq in octal")
	}
	eqNo, err := l.getNumber(8)
	if err != nil {
		return nil, errors.New("device address must be chan,eq in octal")
	}

	slot := reg.GetSlot(chanNo, eqNo)
	if slot == nil || slot.Device == nil {
		return nil, errors.New("no device attached at that address")
	}
	return slot, nil
}

func (l *cmdLine) getDevice(reg *channel.Registry) (command.Command, error) {
	slot, err := l.getDeviceAddr(reg)
	if err != nil {
		return nil, err
	}
	cmdDev, ok := slot.Device.(command.Command)
	if !ok {
		return nil, errors.New("device does not support operator commands")
	}
	return cmdDev, nil
}

// getOption parses one "name" or "name=value" token for an
// attach/set/show argument list.
func (l *cmdLine) getOption(opts []command.Options, cmdType int) (*command.CmdOption, error) {
	name := l.getWord(true)
	if name == "" {
		if l.isEOL() {
			return nil, nil
		}
		if cmdType == command.ValidAttach {
			file, ok := l.parseQuoteString()
			if !ok {
				return nil, errors.New("invalid file argument")
			}
			return &command.CmdOption{Name: "file", EqualOpt: file}, nil
		}
		return nil, nil
	}

	opt := command.CmdOption{Name: name}
	match := matchOption(name, opts, cmdType)
	switch match.OptionType {
	case -1:
		return nil, errors.New("unknown option: " + name)
	case command.OptionSwitch:
		return &opt, nil
	case command.OptionFile:
		if l.getCurrent() != '=' {
			return nil, errors.New("option requires a file: " + name)
		}
		file, ok := l.parseQuoteString()
		if !ok {
			return nil, errors.New("invalid file argument: " + name)
		}
		opt.EqualOpt = file
	case command.OptionNumber:
		if l.getCurrent() != '=' {
			return nil, errors.New("option requires a number: " + name)
		}
		n, err := l.getNumber(10)
		if err != nil {
			return nil, err
		}
		opt.Value = n
	case command.OptionName, command.OptionList:
		if l.getCurrent() != '=' {
			return nil, errors.New("option requires a value: " + name)
		}
		opt.EqualOpt = l.getWord(false)
		if match.OptionType == command.OptionList {
			valid := false
			for _, v := range match.OptionList {
				if strings.EqualFold(v, opt.EqualOpt) {
					valid = true
					break
				}
			}
			if !valid {
				return nil, errors.New("invalid value for option: " + name)
			}
		}
	}
	return &opt, nil
}

func (l *cmdLine) getOptions(dev command.Command, cmdType int) ([]*command.CmdOption, error) {
	opts := dev.Options("")
	var out []*command.CmdOption
	for {
		opt, err := l.getOption(opts, cmdType)
		if err != nil {
			return out, err
		}
		if opt == nil {
			return out, nil
		}
		out = append(out, opt)
	}
}
