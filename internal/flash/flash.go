// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// Package flash invokes the resolved esptool against the radio peripheral.
// This is the only operation in the tool that mutates hardware state, and
// it has no undo: everything else runs before it so it is never reached
// with bad inputs.
package flash

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lukeswitz/DragonSync/internal/artifact"
	"github.com/lukeswitz/DragonSync/internal/executil"
	"github.com/lukeswitz/DragonSync/pkg/config"
)

// Executor runs the flashing tool.
type Executor struct {
	Runner executil.Runner
	Log    *slog.Logger

	// Timeout bounds the esptool subprocess. Zero means no bound.
	Timeout time.Duration
}

// Args returns the fixed esptool argument set for writing firmwarePath to
// dev. The offset/path pair is the write_flash grammar esptool expects.
func Args(dev config.Device, firmwarePath string) []string {
	return []string{
		"--chip", dev.Chip,
		"--port", dev.Port,
		"--baud", strconv.Itoa(dev.Baud),
		"--before", dev.Before,
		"--after", dev.After,
		"write_flash", "-z",
		"--flash_mode", dev.FlashMode,
		"--flash_freq", dev.FlashFreq,
		"--flash_size", dev.FlashSize,
		dev.Offset, firmwarePath,
	}
}

// Flash writes firmwarePath to dev using tool. A non-zero exit from the
// subprocess is a failure; there is no retry here, the caller owns the
// restart bracket around this call.
func (e *Executor) Flash(ctx context.Context, tool artifact.Tool, dev config.Device, firmwarePath string) error {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	argv := append(tool.Argv(), Args(dev, firmwarePath)...)
	e.Log.Info("flashing firmware", "port", dev.Port, "file", firmwarePath, "cmd", argv)

	if err := e.Runner.Run(ctx, argv[0], argv[1:]...); err != nil {
		return fmt.Errorf("flash %s to %s: %w", firmwarePath, dev.Port, err)
	}
	e.Log.Info("flash complete", "port", dev.Port, "file", firmwarePath)
	return nil
}
