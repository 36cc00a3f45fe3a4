// Package scanner reads barcode frames from the serial scanner and turns
// valid ones into credentials. The stream is restartable: on read or open
// failure it reconnects with a fixed backoff until its context is
// cancelled.
package scanner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/KurtDue/iono-pi-access-control/internal/api/metrics"
	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
)

const minBarcodeLen = 3

// Config carries the serial port and framing settings.
type Config struct {
	Device   string
	BaudRate int
	Prefix   string // stripped from the start of each frame when present
	Suffix   string // stripped from the end of each frame when present
	Backoff  time.Duration
}

// PortOpener opens the underlying byte stream. Production uses the serial
// port; tests substitute a pipe.
type PortOpener func() (io.ReadCloser, error)

// Stream reads frames and hands valid credentials to a callback.
type Stream struct {
	cfg       Config
	open      PortOpener
	log       zerolog.Logger
	connected atomic.Bool
}

// NewStream creates a Stream reading from the configured serial device.
func NewStream(cfg Config, log zerolog.Logger) *Stream {
	s := &Stream{cfg: cfg, log: log.With().Str("component", "scanner").Logger()}
	s.open = func() (io.ReadCloser, error) {
		mode := &serial.Mode{BaudRate: cfg.BaudRate}
		return serial.Open(cfg.Device, mode)
	}
	return s
}

// NewStreamWithPort creates a Stream reading from a caller-supplied port.
func NewStreamWithPort(cfg Config, open PortOpener, log zerolog.Logger) *Stream {
	s := NewStream(cfg, log)
	s.open = open
	return s
}

// Connected reports whether the port is currently open.
func (s *Stream) Connected() bool { return s.connected.Load() }

// Run reads frames until ctx is cancelled, invoking handle for every valid
// credential. It never returns an error from the port: failures are logged
// and followed by a reconnect after the configured backoff.
func (s *Stream) Run(ctx context.Context, handle func(domain.Credential)) {
	backoff := s.cfg.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	for {
		if ctx.Err() != nil {
			return
		}

		port, err := s.open()
		if err != nil {
			s.log.Error().Err(err).Str("device", s.cfg.Device).Msg("failed to open scanner port")
			if !sleep(ctx, backoff) {
				return
			}
			continue
		}

		s.connected.Store(true)
		s.log.Info().Str("device", s.cfg.Device).Msg("scanner connected")

		err = s.readLoop(ctx, port, handle)
		_ = port.Close()
		s.connected.Store(false)

		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, io.EOF) {
			s.log.Error().Err(err).Msg("scanner read failed")
		}
		if !sleep(ctx, backoff) {
			return
		}
	}
}

// readLoop reads newline-terminated frames. A watcher goroutine closes
// the port on cancellation to unblock the pending read; it exits with
// readLoop so reconnect cycles do not accumulate goroutines.
func (s *Stream) readLoop(ctx context.Context, port io.ReadCloser, handle func(domain.Credential)) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = port.Close()
		case <-done:
		}
	}()

	r := bufio.NewReader(port)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			s.handleFrame(line, handle)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Stream) handleFrame(raw string, handle func(domain.Credential)) {
	barcode := strings.TrimSpace(raw)

	if s.cfg.Prefix != "" {
		barcode = strings.TrimPrefix(barcode, s.cfg.Prefix)
	}
	if suffix := strings.TrimSpace(s.cfg.Suffix); suffix != "" {
		barcode = strings.TrimSuffix(barcode, suffix)
	}
	barcode = strings.TrimSpace(barcode)

	if barcode == "" {
		return
	}

	if !ValidBarcode(barcode) {
		metrics.ScansTotal.WithLabelValues("rejected").Inc()
		s.log.Warn().Str("barcode", barcode).Msg("invalid barcode frame dropped")
		return
	}

	metrics.ScansTotal.WithLabelValues("accepted").Inc()
	s.log.Info().Str("barcode", barcode).Msg("barcode scanned")

	handle(domain.Credential{
		Barcode:    barcode,
		Source:     domain.SourceScanner,
		CapturedAt: time.Now().UTC(),
	})
}

// ValidBarcode reports whether a frame looks like a credential: at least
// three characters, alphanumeric plus space and dash.
func ValidBarcode(barcode string) bool {
	if len(barcode) < minBarcodeLen {
		return false
	}
	for _, r := range barcode {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
