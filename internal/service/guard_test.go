// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lukeswitz/DragonSync/internal/executil"
)

const unit = "dragonsync.service"

func testGuard(fake *executil.Fake) *Guard {
	return &Guard{Runner: fake, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// The restart must be attempted exactly once for every combination of stop
// and operation outcome.
func TestWithQuiescedRestartAlways(t *testing.T) {
	opErr := errors.New("flash blew up")
	stopErr := errors.New("unit not running")

	tests := []struct {
		name    string
		stopErr error
		opErr   error
		wantErr error
	}{
		{"stop ok, op ok", nil, nil, nil},
		{"stop fails, op ok", stopErr, nil, nil},
		{"stop ok, op fails", nil, opErr, opErr},
		{"stop fails, op fails", stopErr, opErr, opErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &executil.Fake{}
			if tt.stopErr != nil {
				fake.Errs = map[string]error{"systemctl stop": tt.stopErr}
			}

			ran := 0
			err := testGuard(fake).WithQuiesced(context.Background(), unit, func(context.Context) error {
				ran++
				return tt.opErr
			})

			require.Equal(t, 1, ran, "operation must run exactly once")
			require.Len(t, fake.CallsMatching("systemctl stop "+unit), 1)
			require.Len(t, fake.CallsMatching("systemctl start "+unit), 1)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWithQuiescedRestartFails(t *testing.T) {
	startErr := errors.New("start refused")

	t.Run("after successful operation", func(t *testing.T) {
		fake := &executil.Fake{Errs: map[string]error{"systemctl start": startErr}}
		err := testGuard(fake).WithQuiesced(context.Background(), unit, func(context.Context) error { return nil })

		var re *RestartError
		require.ErrorAs(t, err, &re)
		require.Equal(t, unit, re.Unit)
		require.NoError(t, re.OpErr)
		require.ErrorIs(t, err, startErr)
	})

	t.Run("after failed operation keeps both errors", func(t *testing.T) {
		opErr := errors.New("flash blew up")
		fake := &executil.Fake{Errs: map[string]error{"systemctl start": startErr}}
		err := testGuard(fake).WithQuiesced(context.Background(), unit, func(context.Context) error { return opErr })

		var re *RestartError
		require.ErrorAs(t, err, &re)
		require.ErrorIs(t, re.OpErr, opErr)
		require.Contains(t, err.Error(), "flash blew up")
		require.Contains(t, err.Error(), "start refused")
	})
}

// A cancelled run context must not prevent the restart attempt.
func TestWithQuiescedRestartSurvivesCancel(t *testing.T) {
	fake := &executil.Fake{}
	ctx, cancel := context.WithCancel(context.Background())

	err := testGuard(fake).WithQuiesced(ctx, unit, func(context.Context) error {
		cancel()
		return ctx.Err()
	})

	require.Len(t, fake.CallsMatching("systemctl start "+unit), 1)
	require.ErrorIs(t, err, context.Canceled)
}
