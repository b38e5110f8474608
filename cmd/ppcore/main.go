/*
 * ppcore - Main process.
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

package main

import (
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/cdcpp/ppcore/channel"
	reader "github.com/cdcpp/ppcore/command/reader"
	config "github.com/cdcpp/ppcore/config/configparser"
	"github.com/cdcpp/ppcore/device/console6612"
	"github.com/cdcpp/ppcore/device/lp3000"
	logger "github.com/cdcpp/ppcore/util/logger"

	_ "github.com/cdcpp/ppcore/device/lp1612"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "ppcore.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optTest := getopt.BoolLong("test", 't', "Load configuration and exit without starting the operator console")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("creating log file", "error", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	log := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(log)

	log.Info("ppcore started")

	if *optConfig == "" {
		log.Error("please specify a configuration file")
		os.Exit(1)
	}
	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		log.Error("configuration file not found", "path", *optConfig)
		os.Exit(1)
	}

	reg := channel.NewRegistry()
	if err := config.ParseFile(reg, *optConfig); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	attachPrintApp(reg, config.GlobalConfig())

	if *optTest {
		log.Info("configuration loaded successfully, exiting (-test)")
		return
	}

	attachTerminalKeyboards(reg, log)

	reader.ConsoleReader(reg)

	log.Info("ppcore stopped")
}

// attachPrintApp wires the [cyber]-section print-application hand-off
// into every attached 3000-series printer; the 1612 has no such hook
// in the original source, so it is left untouched.
func attachPrintApp(reg *channel.Registry, global config.Global) {
	for _, slot := range reg.Slots() {
		dev, ok := slot.Device.(*lp3000.Device)
		if !ok {
			continue
		}
		dev.SetPrintApp(global.PrintApp, global.AutoRemovePaper)
	}
}

// attachTerminalKeyboards wires a raw-mode terminal keyboard into
// every attached 6612 console, best-effort: a non-interactive stdin
// (piped input, a test harness) just leaves the console's queued-key
// API as the only way to feed it input.
func attachTerminalKeyboards(reg *channel.Registry, log *slog.Logger) {
	for _, slot := range reg.Slots() {
		dev, ok := slot.Device.(*console6612.Device)
		if !ok {
			continue
		}
		kbd, err := console6612.NewTermKeyboard()
		if err != nil {
			log.Debug("no terminal keyboard available for console", "chan", slot.ChanNo, "eq", slot.EqNo, "error", err)
			continue
		}
		dev.SetKeyboardSource(kbd)
	}
}
