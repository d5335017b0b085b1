// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

package executil

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded subprocess invocation.
type Call struct {
	Name string
	Args []string
}

func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Fake is a Runner that records every invocation and answers with scripted
// results. The zero value succeeds at everything and finds nothing on PATH.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	// Path maps executable names to resolved paths. Names not present
	// report exec.ErrNotFound semantics via LookErr.
	Path map[string]string
	// LookErr is returned for names missing from Path.
	LookErr error

	// Errs maps a command prefix ("systemctl stop", "git", ...) to the
	// error Run should return for invocations matching it. Longest
	// matching prefix wins.
	Errs map[string]error
}

func (f *Fake) record(name string, args []string) Call {
	c := Call{Name: name, Args: args}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return c
}

func (f *Fake) scripted(c Call) error {
	var match string
	var err error
	for prefix, e := range f.Errs {
		if strings.HasPrefix(c.String(), prefix) && len(prefix) > len(match) {
			match, err = prefix, e
		}
	}
	return err
}

func (f *Fake) Look(file string) (string, error) {
	if p, ok := f.Path[file]; ok {
		return p, nil
	}
	if f.LookErr != nil {
		return "", f.LookErr
	}
	return "", errNotOnPath(file)
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.scripted(f.record(name, args))
}

// Calls returns every invocation recorded so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsMatching returns the recorded invocations whose command line starts
// with prefix.
func (f *Fake) CallsMatching(prefix string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if strings.HasPrefix(c.String(), prefix) {
			out = append(out, c)
		}
	}
	return out
}

type errNotOnPath string

func (e errNotOnPath) Error() string {
	return "executable file not found in $PATH: " + string(e)
}
