// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

package executil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeScripting(t *testing.T) {
	stopErr := errors.New("stop failed")
	anyErr := errors.New("systemctl broken")
	f := &Fake{Errs: map[string]error{
		"systemctl":      anyErr,
		"systemctl stop": stopErr,
	}}

	require.ErrorIs(t, f.Run(context.Background(), "systemctl", "stop", "x.service"), stopErr)
	require.ErrorIs(t, f.Run(context.Background(), "systemctl", "start", "x.service"), anyErr)
	require.NoError(t, f.Run(context.Background(), "git", "clone", "repo"))

	calls := f.Calls()
	require.Len(t, calls, 3)
	require.Equal(t, "systemctl stop x.service", calls[0].String())
	require.Len(t, f.CallsMatching("systemctl"), 2)
}

func TestFakeLook(t *testing.T) {
	f := &Fake{Path: map[string]string{"esptool.py": "/usr/bin/esptool.py"}}

	p, err := f.Look("esptool.py")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/esptool.py", p)

	_, err = f.Look("git")
	require.Error(t, err)
}

func TestFakeHonorsContext(t *testing.T) {
	f := &Fake{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, f.Run(ctx, "sleep", "60"), context.Canceled)
	require.Empty(t, f.Calls())
}
