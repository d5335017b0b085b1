// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// Package service brackets a hardware-mutating operation with a stop/start
// of the systemd unit that normally owns the serial port.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lukeswitz/DragonSync/internal/executil"
)

// RestartError reports that the unit did not come back up after the
// operation. It carries the operation's own error so neither failure masks
// the other; a flash failure with a stopped service is the one state that
// needs manual intervention.
type RestartError struct {
	Unit  string
	Err   error
	OpErr error
}

func (e *RestartError) Error() string {
	if e.OpErr != nil {
		return fmt.Sprintf("service %s did not resume after failed operation (%v): %v", e.Unit, e.OpErr, e.Err)
	}
	return fmt.Sprintf("service %s did not resume: %v", e.Unit, e.Err)
}

func (e *RestartError) Unwrap() error { return e.Err }

// Guard runs operations with a named service quiesced.
type Guard struct {
	Runner executil.Runner
	Log    *slog.Logger
}

// WithQuiesced stops unit, runs op exactly once, and always attempts to
// start unit again, whatever op returned. A failed stop is only a warning:
// the unit may simply not be running, and that must never block a flash.
// Neither the stop nor the start is retried.
func (g *Guard) WithQuiesced(ctx context.Context, unit string, op func(context.Context) error) error {
	g.Log.Info("stopping service", "unit", unit)
	if err := g.Runner.Run(ctx, "systemctl", "stop", unit); err != nil {
		g.Log.Warn("could not stop service, it may not be running", "unit", unit, "err", err)
	}

	opErr := op(ctx)
	if opErr != nil {
		g.Log.Error("operation failed, restarting service anyway", "unit", unit, "err", opErr)
	}

	g.Log.Info("starting service", "unit", unit)
	// Started with context.Background(): even a cancelled run must leave
	// the dependent service running.
	if err := g.Runner.Run(context.Background(), "systemctl", "start", unit); err != nil {
		return &RestartError{Unit: unit, Err: err, OpErr: opErr}
	}
	g.Log.Info("service restarted", "unit", unit)

	return opErr
}
