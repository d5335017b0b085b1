// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// Package artifact makes sure the flashing tool and the selected firmware
// image exist locally before any hardware is touched. Both resolutions are
// idempotent: state already on disk is reused, never re-fetched.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/lukeswitz/DragonSync/internal/executil"
	"github.com/lukeswitz/DragonSync/pkg/config"
)

// ErrToolCorrupt means the esptool clone exists but its entry point is
// missing, which indicates a partial or failed clone. The run must not
// proceed past it.
var ErrToolCorrupt = errors.New("esptool clone is missing its entry point")

// ToolKind says how the flashing tool is invoked.
type ToolKind int

const (
	// ToolSystem is an esptool installed on the search path.
	ToolSystem ToolKind = iota
	// ToolClone is a local checkout of the esptool repository, run
	// through the python interpreter.
	ToolClone
)

// Tool is the resolved location of the flashing executable. Resolved once
// per run and never mutated afterwards.
type Tool struct {
	Kind ToolKind
	// Path is the executable for ToolSystem, or the entry-point script
	// inside the clone for ToolClone.
	Path string
}

// Argv returns the subprocess prefix the flash arguments are appended to.
func (t Tool) Argv() []string {
	if t.Kind == ToolClone {
		return []string{"python3", t.Path}
	}
	return []string{t.Path}
}

// Resolver acquires external artifacts into WorkDir.
type Resolver struct {
	Runner executil.Runner
	Client *http.Client
	Log    *slog.Logger

	WorkDir string
}

const cloneDir = "esptool"

// ResolveTool locates esptool, cloning its repository into WorkDir when it
// is neither installed system-wide nor already cloned. A system-wide
// install always wins over a clone, even when both exist.
func (r *Resolver) ResolveTool(ctx context.Context, cfg config.Config) (Tool, error) {
	if path, err := r.Runner.Look(config.EsptoolEntry); err == nil {
		r.Log.Info("using system esptool", "path", path)
		return Tool{Kind: ToolSystem, Path: path}, nil
	}

	clone := filepath.Join(r.WorkDir, cloneDir)
	if _, err := os.Stat(clone); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Tool{}, fmt.Errorf("stat esptool clone: %w", err)
		}
		r.Log.Info("esptool not found, cloning", "repo", cfg.EsptoolRepo, "dir", clone)
		if err := r.Runner.Run(ctx, "git", "clone", cfg.EsptoolRepo, clone); err != nil {
			return Tool{}, fmt.Errorf("clone esptool: %w", err)
		}
	} else {
		r.Log.Info("reusing existing esptool clone", "dir", clone)
	}

	entry := filepath.Join(clone, config.EsptoolEntry)
	if _, err := os.Stat(entry); err != nil {
		return Tool{}, fmt.Errorf("%w: %s", ErrToolCorrupt, entry)
	}
	return Tool{Kind: ToolClone, Path: entry}, nil
}
