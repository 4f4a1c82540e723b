package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// NewHTTPMux wires the webhook and ops endpoints. webhook may be nil when the bot is disabled.
func NewHTTPMux(webhook http.HandlerFunc, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.HandleFunc("/telegram/webhook", webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then drains for up to ten seconds.
func ListenAndServe(ctx context.Context, addr string, mux *http.ServeMux) error {
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("server: stopped")
	return nil
}
