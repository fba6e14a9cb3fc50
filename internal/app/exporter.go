// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/relabs-tech/bme280_exporter/internal/exposition"
	"github.com/relabs-tech/bme280_exporter/internal/sensors"
)

// ErrorPage is the body of every failed scrape.
const ErrorPage = "<html><body>An internal server error has occured!</body></html>"

// Exporter turns one HTTP request into one forced measurement. The mutex
// serializes sensor access and guards the shared output buffer.
type Exporter struct {
	mu     sync.Mutex
	reader sensors.EnvReader
	addr   uint16
	buf    []byte
	log    zerolog.Logger
}

// NewExporter returns an Exporter labelling samples with addr and rendering
// them into a bufSize byte buffer.
func NewExporter(reader sensors.EnvReader, addr uint16, bufSize int, log zerolog.Logger) *Exporter {
	return &Exporter{
		reader: reader,
		addr:   addr,
		buf:    make([]byte, bufSize),
		log:    log,
	}
}

// Scrape measures once and returns the exposition text. The returned slice
// is owned by the caller.
func (e *Exporter) Scrape() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.reader.Measure()
	if err != nil {
		return nil, err
	}
	n, err := exposition.Format(e.buf, e.addr, s)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}

// ServeHTTP answers a scrape with 200 and the metrics, or 500 and ErrorPage.
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := e.Scrape()
	if err != nil {
		e.logger(r).Error().
			Err(err).
			Str("kind", errKind(err)).
			Msg("scrape failed")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, ErrorPage)
		return
	}

	w.Header().Set("Content-Type", exposition.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		e.logger(r).Debug().Err(err).Msg("write response")
	}
}

// logger prefers the request logger installed by the router.
func (e *Exporter) logger(r *http.Request) *zerolog.Logger {
	if l := hlog.FromRequest(r); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &e.log
}

// errKind names the failure class for logs.
func errKind(err error) string {
	switch {
	case errors.Is(err, sensors.ErrBusFault):
		return "bus_fault"
	case errors.Is(err, exposition.ErrTruncated):
		return "truncated"
	default:
		return "internal"
	}
}
