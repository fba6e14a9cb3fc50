// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/bme280_exporter/internal/config"
	"github.com/relabs-tech/bme280_exporter/internal/sensors"
)

const shutdownTimeout = 10 * time.Second

// NewRouter serves the exporter on GET for every path. Other methods get
// chi's 405 with an empty body.
func NewRouter(e *Exporter, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(req).Debug().
			Str("request_id", middleware.GetReqID(req.Context())).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("proto", req.Proto).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/", e.ServeHTTP)
	r.Get("/*", e.ServeHTTP)

	return r
}

// RunExporter opens the sensor described by cfg and serves scrapes on
// cfg.ListenAddr until ctx is cancelled. The sensor is halted on return.
func RunExporter(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reader, err := sensors.Open(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			log.Error().Err(err).Msg("sensor close failed")
		}
	}()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	exp := NewExporter(reader, cfg.I2CAddr, cfg.BufferSize, log)
	return Serve(ctx, ln, NewRouter(exp, log), log)
}

// Serve runs an HTTP server on ln until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully...")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
