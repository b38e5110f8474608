/*
 * Operator command implementations.
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

package parser

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cdcpp/ppcore/channel"
	"github.com/cdcpp/ppcore/command/command"
)

var cmdList = []cmd{
	{Name: "attach", Min: 2, Process: attach},
	{Name: "detach", Min: 2, Process: detach},
	{Name: "set", Min: 3, Process: set},
	{Name: "unset", Min: 4, Process: unset},
	{Name: "show", Min: 2, Process: show, Complete: showComplete},
	{Name: "removepaper", Min: 6, Process: removePaper},
	{Name: "quit", Min: 4, Process: quit},
	{Name: "help", Min: 1, Process: help},
}

func attach(line *cmdLine, reg *channel.Registry) (bool, error) {
	slog.Debug("command attach")
	dev, err := line.getDevice(reg)
	if err != nil {
		return false, err
	}
	opts, err := line.getOptions(dev, command.ValidAttach)
	if err != nil {
		return false, err
	}
	if len(opts) == 0 {
		return false, errors.New("attach requires at least one option")
	}
	return false, dev.Attach(opts)
}

func detach(line *cmdLine, reg *channel.Registry) (bool, error) {
	slog.Debug("command detach")
	dev, err := line.getDevice(reg)
	if err != nil {
		return false, err
	}
	return false, dev.Detach()
}

func set(line *cmdLine, reg *channel.Registry) (bool, error) {
	slog.Debug("command set")
	dev, err := line.getDevice(reg)
	if err != nil {
		return false, err
	}
	opts, err := line.getOptions(dev, command.ValidSet)
	if err != nil {
		return false, err
	}
	if len(opts) == 0 {
		return false, errors.New("set requires at least one option")
	}
	return false, dev.Set(false, opts)
}

func unset(line *cmdLine, reg *channel.Registry) (bool, error) {
	slog.Debug("command unset")
	dev, err := line.getDevice(reg)
	if err != nil {
		return false, err
	}
	opts, err := line.getOptions(dev, command.ValidSet)
	if err != nil {
		return false, err
	}
	if len(opts) == 0 {
		return false, errors.New("unset requires at least one option")
	}
	return false, dev.Set(true, opts)
}

func show(line *cmdLine, reg *channel.Registry) (bool, error) {
	slog.Debug("command show")
	name := line.getWord(false)
	if name == "all" {
		for _, slot := range reg.Slots() {
			dev, ok := slot.Device.(command.Command)
			if !ok {
				continue
			}
			out, err := dev.Show(nil)
			if err != nil {
				continue
			}
			fmt.Println(out)
		}
		return false, nil
	}

	line.pos = 0
	dev, err := line.getDevice(reg)
	if err != nil {
		return false, err
	}
	opts, err := line.getOptions(dev, command.ValidShow)
	if err != nil {
		return false, err
	}
	out, err := dev.Show(opts)
	if err != nil {
		return false, err
	}
	fmt.Println(out)
	return false, nil
}

func showComplete(_ *cmdLine) []string {
	return []string{"all"}
}

// removePaper implements spec.md 4.5's operator command:
// "removepaper <kind> <chan,eq>" where kind is lp1612 or lp5xx. kind
// is validated against the attached device's actual type rather than
// trusted blindly, since the slot already knows what is plugged in.
func removePaper(line *cmdLine, reg *channel.Registry) (bool, error) {
	slog.Debug("command removepaper")
	kind := line.getWord(false)
	if kind != "lp1612" && kind != "lp5xx" {
		return false, errors.New("removepaper kind must be lp1612 or lp5xx")
	}

	slot, err := line.getDeviceAddr(reg)
	if err != nil {
		return false, err
	}

	wantType := channel.DtLp1612
	if kind == "lp5xx" {
		wantType = channel.DtLp5xx
	}
	if slot.DeviceType != wantType {
		return false, fmt.Errorf("device at that address is not a %s", kind)
	}

	paperDev, ok := slot.Device.(channel.PaperDevice)
	if !ok {
		return false, errors.New("device does not support paper removal")
	}
	return false, paperDev.RemovePaper()
}

func quit(_ *cmdLine, _ *channel.Registry) (bool, error) {
	slog.Debug("command quit")
	return true, nil
}

func help(_ *cmdLine, _ *channel.Registry) (bool, error) {
	fmt.Println("commands: attach, detach, set, unset, show, removepaper, quit, help")
	return false, nil
}
