// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// Package orchestrator sequences one flashing run: validate the firmware
// selection, resolve the tool and the image, then flash inside the service
// quiescence bracket. Components never call back into the orchestrator and
// data flows one way, from selection to resolved paths to the flash.
package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lukeswitz/DragonSync/internal/artifact"
	"github.com/lukeswitz/DragonSync/internal/catalog"
	"github.com/lukeswitz/DragonSync/internal/executil"
	"github.com/lukeswitz/DragonSync/internal/flash"
	"github.com/lukeswitz/DragonSync/internal/service"
	"github.com/lukeswitz/DragonSync/pkg/config"
)

// Stage identifies where a run failed.
type Stage int

const (
	StageSelect Stage = iota
	StageTool
	StageFirmware
	StageFlash
	StageRestart
)

func (s Stage) String() string {
	switch s {
	case StageSelect:
		return "selection"
	case StageTool:
		return "tool acquisition"
	case StageFirmware:
		return "firmware acquisition"
	case StageFlash:
		return "flash"
	case StageRestart:
		return "service restart"
	default:
		return "unknown"
	}
}

// StageError wraps a failure with the stage it happened in, so the CLI can
// map it to a distinct exit code.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Deps are the injected capabilities of a run. Stdin/Stdout serve the
// interactive firmware prompt only.
type Deps struct {
	Runner executil.Runner
	Client *http.Client
	Log    *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
}

// Run performs one orchestration pass. selection is a 1-based catalog index
// as a string; when empty, the operator is prompted. The selection is
// validated before anything is acquired, so bad input leaves no side
// effects at all, and any failure before the guard leaves the service and
// the device untouched.
func Run(ctx context.Context, cfg config.Config, cat catalog.Catalog, selection string, deps Deps) error {
	log := deps.Log

	if err := cat.Validate(); err != nil {
		return fail(StageSelect, err)
	}

	opt, err := selectOption(cat, selection, deps)
	if err != nil {
		return fail(StageSelect, err)
	}
	log.Info("firmware selected", "name", opt.Name, "file", opt.Filename)

	resolver := &artifact.Resolver{
		Runner:  deps.Runner,
		Client:  deps.Client,
		Log:     log,
		WorkDir: cfg.WorkDir,
	}

	tool, err := resolver.ResolveTool(ctx, cfg)
	if err != nil {
		return fail(StageTool, err)
	}

	firmware, err := resolver.ResolveFirmware(ctx, opt, cfg.RetryWindow)
	if err != nil {
		return fail(StageFirmware, err)
	}

	guard := &service.Guard{Runner: deps.Runner, Log: log}
	executor := &flash.Executor{Runner: deps.Runner, Log: log, Timeout: cfg.FlashTimeout}

	err = guard.WithQuiesced(ctx, cfg.Service, func(ctx context.Context) error {
		return executor.Flash(ctx, tool, cfg.Device, firmware)
	})

	var restartErr *service.RestartError
	switch {
	case errors.As(err, &restartErr):
		return fail(StageRestart, err)
	case err != nil:
		return fail(StageFlash, err)
	}

	log.Info("firmware flashed", "name", opt.Name, "port", cfg.Device.Port)
	return nil
}

func selectOption(cat catalog.Catalog, selection string, deps Deps) (catalog.Option, error) {
	if selection != "" {
		return cat.SelectString(selection)
	}
	return prompt(cat, deps.Stdin, deps.Stdout)
}

func prompt(cat catalog.Catalog, in io.Reader, out io.Writer) (catalog.Option, error) {
	fmt.Fprintln(out, "Available firmware:")
	for _, e := range cat.List() {
		fmt.Fprintf(out, "  %d) %s\n", e.Index, e.Name)
	}
	fmt.Fprintf(out, "Select firmware [1-%d]: ", len(cat))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return catalog.Option{}, fmt.Errorf("read selection: %w", err)
	}
	return cat.SelectString(line)
}
