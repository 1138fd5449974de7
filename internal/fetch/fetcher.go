// Package fetch retrieves remote installer artifacts to local files with
// chunked streaming and periodic progress reporting.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const (
	// chunkSize is the read granularity; small enough to keep progress
	// responsive, large enough to stay off the syscall hot path.
	chunkSize = 8 * 1024
	// progressEvery throttles progress lines to one per completed mebibyte.
	progressEvery = 1024 * 1024

	defaultTimeout = 30 * time.Second
)

// Sink receives human-readable progress lines as they are produced.
type Sink func(text string)

// Fetcher downloads artifacts over HTTP.
type Fetcher struct {
	client *http.Client
	sink   Sink
}

// New creates a Fetcher whose timeout bounds connection setup and the wait
// for response headers. The body transfer itself carries no deadline, so a
// large artifact on a slow link completes as long as bytes keep arriving;
// callers bound the whole download through ctx. A non-positive timeout uses
// the 30s default; a nil sink discards progress lines.
func New(timeout time.Duration, sink Sink) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if sink == nil {
		sink = func(string) {}
	}
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		sink: sink,
	}
}

// Download issues a streaming GET for url and writes the body to dest in
// fixed-size chunks, emitting a progress line at most once per completed
// mebibyte. It returns true on completion. On any failure the cause is
// logged, a partially written dest is removed, and false is returned:
// acquisition failure is a reportable condition for the caller, never a
// fault that escapes this boundary.
func (f *Fetcher) Download(ctx context.Context, url, dest string) bool {
	f.sink(fmt.Sprintf("Downloading %s", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.sink(fmt.Sprintf("Download failed: %v", err))
		return false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.sink(fmt.Sprintf("Download failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.sink(fmt.Sprintf("Download failed: server returned status %d", resp.StatusCode))
		return false
	}

	out, err := os.Create(dest)
	if err != nil {
		f.sink(fmt.Sprintf("Download failed: cannot create %s: %v", dest, err))
		return false
	}

	total := resp.ContentLength
	var written int64
	var lastReported int64
	buf := make([]byte, chunkSize)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				f.sink(fmt.Sprintf("Download failed: write error: %v", writeErr))
				f.discard(out, dest)
				return false
			}
			written += int64(n)
			if written-lastReported >= progressEvery {
				lastReported = written - written%progressEvery
				f.sink(progressLine(written, total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.sink(fmt.Sprintf("Download failed: %v", readErr))
			f.discard(out, dest)
			return false
		}
	}

	if err := out.Close(); err != nil {
		f.sink(fmt.Sprintf("Download failed: cannot finish %s: %v", dest, err))
		_ = os.Remove(dest)
		return false
	}

	f.sink(fmt.Sprintf("Downloaded %s (%s)", dest, byteCount(written)))
	return true
}

func (f *Fetcher) discard(out *os.File, dest string) {
	_ = out.Close()
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		f.sink(fmt.Sprintf("Could not remove partial file %s: %v", dest, err))
	}
}

func progressLine(written, total int64) string {
	if total > 0 {
		return fmt.Sprintf("Downloaded %s of %s (%.0f%%)", byteCount(written), byteCount(total), float64(written)/float64(total)*100)
	}
	return fmt.Sprintf("Downloaded %s", byteCount(written))
}

func byteCount(n int64) string {
	const mib = 1024 * 1024
	if n >= mib {
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	}
	if n >= 1024 {
		return fmt.Sprintf("%.1f KiB", float64(n)/1024)
	}
	return fmt.Sprintf("%d B", n)
}
