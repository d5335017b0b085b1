// SPDX-FileCopyrightText: (C) 2025 DragonSync contributors
// SPDX-License-Identifier: MIT

package artifact

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/lukeswitz/DragonSync/internal/catalog"
)

// ResolveFirmware ensures the firmware for opt exists in WorkDir and
// returns its path. A file already present under the option's filename is
// trusted as-is; otherwise the image is downloaded, with exponential
// backoff across attempts bounded by retryWindow. No partial file is ever
// left under the final filename.
func (r *Resolver) ResolveFirmware(ctx context.Context, opt catalog.Option, retryWindow time.Duration) (string, error) {
	dest := filepath.Join(r.WorkDir, opt.Filename)
	if _, err := os.Stat(dest); err == nil {
		r.Log.Info("firmware already present, skipping download", "file", dest)
		return dest, nil
	}

	operation := func() error {
		return r.download(ctx, opt, dest)
	}
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = retryWindow
	notify := func(err error, wait time.Duration) {
		r.Log.Warn("firmware download failed, retrying", "err", err, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(boff, ctx), notify); err != nil {
		return "", fmt.Errorf("download firmware %s: %w", opt.Name, err)
	}

	r.Log.Info("firmware downloaded", "file", dest)
	return dest, nil
}

func (r *Resolver) download(ctx context.Context, opt catalog.Option, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opt.URL, http.NoBody)
	if err != nil {
		return backoff.Permanent(err)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", opt.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("%s not found", opt.URL))
		}
		return fmt.Errorf("fetch %s: %s", opt.URL, resp.Status)
	}

	payload, err := decompressor(opt.URL, resp.Body)
	if err != nil {
		return backoff.Permanent(err)
	}
	defer payload.Close()

	// The digest covers the decompressed image, i.e. the bytes that end
	// up on disk and eventually on the device.
	hash := sha256.New()

	// Stream into a temp file and rename only on full success, so a
	// partial write never registers as resolved on the next run.
	tmp, err := os.CreateTemp(r.WorkDir, opt.Filename+".partial-*")
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, io.TeeReader(payload, hash))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}

	digest := hex.EncodeToString(hash.Sum(nil))
	r.Log.Info("fetched firmware payload", "url", opt.URL, "bytes", written, "sha256", digest)
	if opt.SHA256 != "" && digest != opt.SHA256 {
		return backoff.Permanent(fmt.Errorf("sha256 mismatch for %s: got %s, want %s", opt.URL, digest, opt.SHA256))
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return backoff.Permanent(fmt.Errorf("rename into place: %w", err))
	}
	return nil
}

// decompressor picks a stream decoder from the URL suffix. Firmware is
// published either raw or compressed; the on-disk file is always the raw
// image under the catalog filename.
func decompressor(url string, r io.Reader) (io.ReadCloser, error) {
	switch filepath.Ext(url) {
	case ".gz":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, nil
	case ".xz":
		x, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		return io.NopCloser(x), nil
	case ".zst":
		z, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return z.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}
