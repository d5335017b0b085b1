// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// Package executil abstracts subprocess invocation so that callers which
// mutate hardware or service state can be tested against a scripted fake.
package executil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Runner is the capability used for every external process this tool
// touches: the flashing tool, git, and systemctl.
type Runner interface {
	// Look resolves an executable on the search path, like exec.LookPath.
	Look(file string) (string, error)

	// Run executes name with args and waits for it to exit. A non-zero
	// exit status is returned as an error.
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs real processes. Subprocess output is passed through to
// the operator so flash progress from the tool is visible in real time.
type ExecRunner struct{}

func (ExecRunner) Look(file string) (string, error) {
	return exec.LookPath(file)
}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
