// Package reader exposes the local HTTP endpoint the NFC bridge reports
// reader and card events to.
package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/card"
)

const shutdownTimeout = 3 * time.Second

type readerRequest struct {
	Reader string `json:"reader"`
}

type cardRequest struct {
	ID     string `json:"id"`
	Reader string `json:"reader"`
}

// CardResponse is the body of GET /card.
type CardResponse struct {
	ID              string `json:"id,omitempty"`
	LastKnownID     string `json:"lastKnownId,omitempty"`
	Reader          string `json:"reader,omitempty"`
	Connected       bool   `json:"connected"`
	ReaderConnected bool   `json:"readerConnected"`
}

// Bridge translates bridge HTTP calls into registry updates.
type Bridge struct {
	registry *card.Registry
	log      zerolog.Logger
}

// NewBridge returns a bridge feeding registry.
func NewBridge(registry *card.Registry, logger zerolog.Logger) *Bridge {
	return &Bridge{
		registry: registry,
		log:      logger.With().Str("component", "reader").Logger(),
	}
}

// Routes returns the HTTP handler.
func (b *Bridge) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/reader", func(r chi.Router) {
		r.Post("/connected", b.handleReaderConnected)
		r.Post("/disconnected", b.handleReaderDisconnected)
	})
	r.Route("/card", func(r chi.Router) {
		r.Get("/", b.handleCard)
		r.Post("/connected", b.handleCardConnected)
		r.Post("/disconnected", b.handleCardDisconnected)
	})
	return r
}

// ListenAndServe serves the bridge on addr until ctx is cancelled.
func (b *Bridge) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	b.log.Info().Str("addr", addr).Msg("reader bridge listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("reader bridge failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop reader bridge: %w", err)
		}
		return nil
	}
}

func (b *Bridge) handleReaderConnected(w http.ResponseWriter, r *http.Request) {
	var req readerRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.log.Info().Str("reader", req.Reader).Msg("reader connected")
	b.registry.ReaderAttached(strings.TrimSpace(req.Reader))
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bridge) handleReaderDisconnected(w http.ResponseWriter, _ *http.Request) {
	b.log.Info().Msg("reader disconnected")
	b.registry.ReaderDetached()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bridge) handleCardConnected(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		http.Error(w, "card id is required", http.StatusBadRequest)
		return
	}
	b.registry.Connect(id, strings.TrimSpace(req.Reader))
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bridge) handleCardDisconnected(w http.ResponseWriter, _ *http.Request) {
	b.registry.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bridge) handleCard(w http.ResponseWriter, _ *http.Request) {
	snap := b.registry.Snapshot()
	resp := CardResponse{
		ID:              snap.Card.ID,
		LastKnownID:     snap.Card.LastKnownID,
		Reader:          snap.Card.ReaderName,
		Connected:       snap.Card.Connected,
		ReaderConnected: snap.ReaderConnected,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		b.log.Error().Err(err).Msg("failed to write card snapshot")
	}
}

// decodeOptional decodes a JSON body into v. An empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid request body: %w", err)
}
