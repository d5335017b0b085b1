// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

// Package catalog holds the registry of flashable firmware images for the
// WarDragon radio peripheral. New variants are added by appending a record,
// either here or through a YAML manifest.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSelection is returned for out-of-range or non-numeric firmware
// choices. The orchestrator must not acquire or flash anything after it.
var ErrInvalidSelection = errors.New("invalid firmware selection")

// Option is one flashable image. Filename doubles as the idempotency key in
// the working directory, so it must be unique within a catalog.
type Option struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Filename string `yaml:"filename"`
	// SHA256 optionally pins the expected digest of the decompressed
	// payload. Empty means the digest is logged but not enforced.
	SHA256 string `yaml:"sha256,omitempty"`
}

// Catalog is an ordered set of options, selected by 1-based index.
type Catalog []Option

// Default returns the built-in firmware set shipped with the appliance.
func Default() Catalog {
	return Catalog{
		{
			Name:     "WiFi Remote ID scanner (dual core)",
			URL:      "https://github.com/alphafox02/T-Halow/raw/master/firmware/firmware_T-Halow_DragonOS_RID_scanner_dualcore.bin",
			Filename: "firmware_T-Halow_DragonOS_RID_scanner_dualcore.bin",
		},
		{
			Name:     "WiFi Remote ID scanner (single core)",
			URL:      "https://github.com/alphafox02/T-Halow/raw/master/firmware/firmware_T-Halow_DragonOS_RID_scanner.bin",
			Filename: "firmware_T-Halow_DragonOS_RID_scanner.bin",
		},
		{
			Name:     "WiFi/BT dual sniffer",
			URL:      "https://github.com/alphafox02/T-Halow/raw/master/firmware/firmware_T-Halow_DragonOS_dual_sniffer.bin",
			Filename: "firmware_T-Halow_DragonOS_dual_sniffer.bin",
		},
	}
}

// Entry is one row of the human-facing listing.
type Entry struct {
	Index int
	Name  string
}

// List returns the options in order with their 1-based selection indexes.
func (c Catalog) List() []Entry {
	out := make([]Entry, len(c))
	for i, opt := range c {
		out[i] = Entry{Index: i + 1, Name: opt.Name}
	}
	return out
}

// Select returns the option at 1-based index n.
func (c Catalog) Select(n int) (Option, error) {
	if n < 1 || n > len(c) {
		return Option{}, fmt.Errorf("%w: %d is not in range 1-%d", ErrInvalidSelection, n, len(c))
	}
	return c[n-1], nil
}

// SelectString parses s as a 1-based index and selects it. The range check
// is an explicit integer comparison, never a pattern over the digits.
func (c Catalog) SelectString(s string) (Option, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Option{}, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, s)
	}
	return c.Select(n)
}

// Validate rejects catalogs whose options collide on filename. Distinct
// options sharing a filename would silently satisfy each other's
// idempotency check on disk, so this is treated as a configuration error.
func (c Catalog) Validate() error {
	seen := make(map[string]string, len(c))
	for _, opt := range c {
		if opt.Name == "" || opt.URL == "" || opt.Filename == "" {
			return fmt.Errorf("catalog option %q: name, url and filename are all required", opt.Name)
		}
		if prev, ok := seen[opt.Filename]; ok {
			return fmt.Errorf("catalog options %q and %q share filename %q", prev, opt.Name, opt.Filename)
		}
		seen[opt.Filename] = opt.Name
	}
	return nil
}

type manifest struct {
	Firmwares []Option `yaml:"firmwares"`
}

// LoadManifest reads a YAML firmware manifest and appends its options to c.
// The combined catalog is re-validated before it is returned.
func LoadManifest(c Catalog, path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read firmware manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse firmware manifest %s: %w", path, err)
	}
	if len(m.Firmwares) == 0 {
		return nil, fmt.Errorf("firmware manifest %s lists no firmwares", path)
	}

	merged := append(append(Catalog{}, c...), m.Firmwares...)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("firmware manifest %s: %w", path, err)
	}
	return merged, nil
}
