/*
 * mini-rv32ima - Main process.
 *
 * Copyright (c) 2024, Richard Cornwell
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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/daniilfigasystems/mini-rv32ima/config/configparser"
	"github.com/daniilfigasystems/mini-rv32ima/console"
	"github.com/daniilfigasystems/mini-rv32ima/internal/machine"
	"github.com/daniilfigasystems/mini-rv32ima/util/logger"
)

var Logger *slog.Logger

func main() {
	optImage := getopt.StringLong("image", 'i', "", "Flat kernel image to load at ram offset 0")
	optDTB := getopt.StringLong("dtb", 'd', "", "Devicetree blob (built-in one used if omitted)")
	optRAM := getopt.StringLong("ram", 'm', "", "RAM size in bytes (default 64MiB)")
	optPort := getopt.StringLong("port", 'p', "", "Console listen address (default 127.0.0.1:0)")
	optStrict := getopt.BoolLong("strict", 's', "Abort on first unhandled fault instead of delivering a trap")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if optLogFile != nil && *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mini-rv32ima: can't create log file: %v\n", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, *optStrict))
	slog.SetDefault(Logger)

	Logger.Info("mini-rv32ima started")

	var ramBytes uint64
	if optRAM != nil && *optRAM != "" {
		if _, err := fmt.Sscanf(*optRAM, "%d", &ramBytes); err != nil {
			Logger.Error("invalid --ram value", "value", *optRAM)
			os.Exit(1)
		}
	}

	cfg, err := configparser.New(*optImage, *optDTB, ramBytes, *optPort, *optStrict, *optLogFile)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	kernel, err := os.ReadFile(cfg.ImagePath)
	if err != nil {
		Logger.Error("can't read image", "path", cfg.ImagePath, "err", err)
		os.Exit(1)
	}

	var dtb []byte
	if cfg.DTBPath != "" {
		dtb, err = os.ReadFile(cfg.DTBPath)
		if err != nil {
			Logger.Error("can't read dtb", "path", cfg.DTBPath, "err", err)
			os.Exit(1)
		}
	}

	con, err := console.Listen(cfg.ConsoleAddr)
	if err != nil {
		Logger.Error("can't start console", "addr", cfg.ConsoleAddr, "err", err)
		os.Exit(1)
	}
	Logger.Info("console listening", "addr", con.Addr().String())

	m := machine.New(cfg.RAMSize, con, cfg.Strict)
	dtbAddr, err := m.LoadImage(kernel, dtb)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	m.Reset(dtbAddr)

	// Start main emulator.
	m.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cmdChan := make(chan string, 1)
	go runDebugPrompt(cmdChan)

loop:
	for {
		select {
		case <-sigChan:
			fmt.Println("Got quit signal")
			break loop
		case line := <-cmdChan:
			handleDebugCommand(line, m)
		}
	}

	Logger.Info("shutting down hart")
	m.Stop()
	Logger.Info("shutting down console")
	con.Close()
	Logger.Info("stopped")
}

// runDebugPrompt feeds operator commands typed at stdin into cmdChan,
// using liner for history and line editing the way an operator shell
// would expect.
func runDebugPrompt(cmdChan chan<- string) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("mini-rv32ima> ")
		if err != nil {
			cmdChan <- "quit"
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		cmdChan <- input
	}
}

// handleDebugCommand implements the small set of operator commands the
// stdin prompt accepts; "quit" and an unreadable stdin both fall
// through to the same shutdown path as a signal.
func handleDebugCommand(cmd string, m *machine.Machine) {
	switch cmd {
	case "quit", "exit":
		syscall.Kill(syscall.Getpid(), syscall.SIGINT)
	case "regs":
		snap := m.Snapshot()
		fmt.Printf("pc=%#010x a0=%#010x a1=%#010x\n", snap.PC, snap.Regs[10], snap.Regs[11])
	default:
		fmt.Printf("unknown command %q (try: regs, quit)\n", cmd)
	}
}
