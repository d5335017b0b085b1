// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCatalog() Catalog {
	return Catalog{
		{Name: "one", URL: "http://example.com/one.bin", Filename: "one.bin"},
		{Name: "two", URL: "http://example.com/two.bin", Filename: "two.bin"},
		{Name: "three", URL: "http://example.com/three.bin", Filename: "three.bin"},
	}
}

func TestSelect(t *testing.T) {
	c := testCatalog()

	for i := 1; i <= len(c); i++ {
		opt, err := c.Select(i)
		require.NoError(t, err)
		require.Equal(t, c[i-1], opt)
	}

	for _, n := range []int{0, -1, len(c) + 1, 100} {
		_, err := c.Select(n)
		require.ErrorIs(t, err, ErrInvalidSelection, "index %d", n)
	}
}

func TestSelectString(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"first", "1", "one", false},
		{"last", "3", "three", false},
		{"whitespace", " 2\n", "two", false},
		{"zero", "0", "", true},
		{"past end", "4", "", true},
		{"double digit past end", "12", "", true},
		{"non numeric", "x", "", true},
		{"empty", "", "", true},
		{"float", "1.5", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := c.SelectString(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidSelection)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, opt.Name)
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, testCatalog().Validate())
	require.NoError(t, Default().Validate())

	dup := append(testCatalog(), Option{Name: "dup", URL: "http://example.com/d.bin", Filename: "one.bin"})
	err := dup.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "one.bin")

	missing := Catalog{{Name: "nofile", URL: "http://example.com"}}
	require.Error(t, missing.Validate())
}

func TestList(t *testing.T) {
	entries := testCatalog().List()
	require.Len(t, entries, 3)
	require.Equal(t, Entry{Index: 1, Name: "one"}, entries[0])
	require.Equal(t, Entry{Index: 3, Name: "three"}, entries[2])
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	t.Run("appends and keeps order", func(t *testing.T) {
		p := write("ok.yaml", `
firmwares:
  - name: experimental mesh sniffer
    url: http://example.com/mesh.bin.xz
    filename: mesh.bin
    sha256: abc123
`)
		merged, err := LoadManifest(testCatalog(), p)
		require.NoError(t, err)
		require.Len(t, merged, 4)
		require.Equal(t, "experimental mesh sniffer", merged[3].Name)
		require.Equal(t, "abc123", merged[3].SHA256)

		opt, err := merged.Select(4)
		require.NoError(t, err)
		require.Equal(t, "mesh.bin", opt.Filename)
	})

	t.Run("duplicate filename rejected", func(t *testing.T) {
		p := write("dup.yaml", `
firmwares:
  - name: clashes with builtin
    url: http://example.com/other.bin
    filename: one.bin
`)
		_, err := LoadManifest(testCatalog(), p)
		require.Error(t, err)
	})

	t.Run("empty manifest rejected", func(t *testing.T) {
		p := write("empty.yaml", "firmwares: []\n")
		_, err := LoadManifest(testCatalog(), p)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadManifest(testCatalog(), filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
		require.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("bad yaml", func(t *testing.T) {
		p := write("bad.yaml", "firmwares: [wat")
		_, err := LoadManifest(testCatalog(), p)
		require.Error(t, err)
	})
}
