// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// fwflash writes a selected firmware image to the WarDragon ESP32 radio
// peripheral, quiescing the DragonSync service around the write. Repeated
// runs are cheap: the esptool clone and downloaded images are reused.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/peterbourgon/ff/v3"

	"github.com/lukeswitz/DragonSync/internal/catalog"
	"github.com/lukeswitz/DragonSync/internal/executil"
	"github.com/lukeswitz/DragonSync/internal/orchestrator"
	"github.com/lukeswitz/DragonSync/pkg/config"
)

// Exit codes distinguish every failure stage so callers can tell a failed
// flash from a service that never came back.
const (
	exitOK               = 0
	exitUsage            = 1
	exitInvalidSelection = 2
	exitToolAcquisition  = 3
	exitFirmwareFetch    = 4
	exitFlashFailed      = 5
	exitRestartFailed    = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fwflash", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "path to a YAML config file overriding the appliance defaults")
		manifest   = fs.String("manifest", "", "path to a YAML firmware manifest extending the built-in catalog")
		firmware   = fs.String("firmware", "", "catalog index of the firmware to flash; prompts when empty")
		port       = fs.String("port", "", "serial port of the radio peripheral")
		baud       = fs.Int("baud", 0, "serial baud rate")
		unit       = fs.String("service", "", "systemd unit to quiesce around the flash")
		workDir    = fs.String("workdir", "", "directory caching the esptool clone and firmware images")
		listOnly   = fs.Bool("list", false, "list the firmware catalog and exit")
		jsonLog    = fs.Bool("json", false, "force JSON log output")
	)
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("FWFLASH")); err != nil {
		return exitUsage
	}

	log := newLogger(*jsonLog)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("invalid configuration", "err", err)
		return exitUsage
	}
	applyFlags(&cfg, fs, *port, *baud, *unit, *workDir)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		return exitUsage
	}

	cat := catalog.Default()
	if *manifest != "" {
		cat, err = catalog.LoadManifest(cat, *manifest)
		if err != nil {
			log.Error("invalid firmware manifest", "err", err)
			return exitUsage
		}
	}

	if *listOnly {
		for _, e := range cat.List() {
			fmt.Printf("%d) %s\n", e.Index, e.Name)
		}
		return exitOK
	}

	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer done()

	deps := orchestrator.Deps{
		Runner: executil.ExecRunner{},
		Client: httpClient(cfg.DownloadTimeout),
		Log:    log,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}

	if err := orchestrator.Run(ctx, cfg, cat, *firmware, deps); err != nil {
		log.Error("run failed", "err", err)
		return exitCode(err)
	}
	return exitOK
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, port string, baud int, unit, workDir string) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Device.Port = port
		case "baud":
			cfg.Device.Baud = baud
		case "service":
			cfg.Service = unit
		case "workdir":
			cfg.WorkDir = workDir
		}
	})
}

func exitCode(err error) int {
	var se *orchestrator.StageError
	if !errors.As(err, &se) {
		return exitUsage
	}
	switch se.Stage {
	case orchestrator.StageSelect:
		return exitInvalidSelection
	case orchestrator.StageTool:
		return exitToolAcquisition
	case orchestrator.StageFirmware:
		return exitFirmwareFetch
	case orchestrator.StageFlash:
		return exitFlashFailed
	case orchestrator.StageRestart:
		return exitRestartFailed
	default:
		return exitUsage
	}
}

func newLogger(forceJSON bool) *slog.Logger {
	w := os.Stderr
	if !forceJSON && isatty.IsTerminal(w.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{}))
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
}
