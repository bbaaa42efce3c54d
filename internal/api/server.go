package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadrush/internal/config"
	"leadrush/internal/game"
	"leadrush/internal/metrics"
)

const (
	replayCacheSize = 1024
	replayWindow    = 10 * time.Minute
)

type replayedResponse struct {
	status int
	body   []byte
}

type Server struct {
	cfg      config.ServerConfig
	log      *slog.Logger
	game     *game.Game
	store    game.KV
	validate *Validator
	upgrader websocket.Upgrader

	// keyed mutations are serialized so a retry racing its original still replays
	idemMu  sync.Mutex
	replays *expirable.LRU[string, replayedResponse]

	mux http.Handler
}

func New(cfg config.ServerConfig, logger *slog.Logger, g *game.Game, store game.KV) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StreamEvery <= 0 {
		cfg.StreamEvery = time.Second
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		game:     g,
		store:    store,
		validate: NewValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		replays: expirable.NewLRU[string, replayedResponse](replayCacheSize, nil, replayWindow),
	}
	s.mux = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// The stream is long-lived; it stays outside the request timeout.
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/state", s.handleState)
			r.Get("/rates", s.handleRates)
			r.Get("/buildings", s.handleBuildings)
			r.Get("/upgrades", s.handleUpgrades)
			r.Get("/powerups", s.handlePowerups)

			r.Group(func(r chi.Router) {
				r.Use(s.idempotent)
				r.Post("/buildings/{id}/buy", s.handleBuyBuilding)
				r.Post("/upgrades/{id}/buy", s.handleBuyUpgrade)
				r.Post("/click/{resource}", s.handleClick)
				r.Post("/acquisition/toggle", s.handleToggleAcquisition)
				r.Post("/workflow/toggle", s.handleToggleWorkflow)
				r.Post("/powerups/{id}/click", s.handleClickPowerup)
				r.Post("/powerups/{id}/trigger", s.handleTriggerPowerup)
				r.Post("/game/pause", s.handlePause)
				r.Post("/game/resume", s.handleResume)
				r.Post("/save", s.handleSave)
				r.Post("/load", s.handleLoad)
				r.Delete("/save", s.handleReset)
			})
		})
	})
	return r
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Snapshot())
}

func (s *Server) handleRates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Rates())
}

func (s *Server) handleBuildings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"buildings": s.game.Buildings()})
}

func (s *Server) handleUpgrades(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"upgrades": s.game.Upgrades()})
}

func (s *Server) handlePowerups(w http.ResponseWriter, _ *http.Request) {
	snap := s.game.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"powerups": s.game.Powerups(),
		"pending":  snap.Pending,
	})
}

type idParam struct {
	ID string `validate:"required,max=64,alphanum"`
}

type buyBuildingRequest struct {
	Bulk bool `json:"bulk"`
}

type clickRequest struct {
	Resource string `json:"-" validate:"oneof=leads opportunities"`
	Count    int    `json:"count" validate:"omitempty,min=1,max=50"`
}

// pathID reads and validates the {id} URL param, writing a 400 when it is malformed.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	in := idParam{ID: chi.URLParam(r, "id")}
	if err := s.validate.ValidateStruct(in); err != nil {
		writeValidationError(w, err)
		return "", false
	}
	return in.ID, true
}

func (s *Server) handleBuyBuilding(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var in buyBuildingRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.game.BuyBuilding(id, in.Bulk)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.PurchasesTotal.WithLabelValues("building", id).Add(float64(res.Quantity))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBuyUpgrade(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.game.BuyUpgrade(id); err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.PurchasesTotal.WithLabelValues("upgrade", id).Inc()
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "purchased": true})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var in clickRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Resource = chi.URLParam(r, "resource")
	if err := s.validate.ValidateStruct(in); err != nil {
		writeValidationError(w, err)
		return
	}
	if in.Count == 0 {
		in.Count = 1
	}

	var (
		res game.ClickResult
		err error
	)
	if in.Resource == "leads" {
		res, err = s.game.ClickLeads(in.Count)
	} else {
		res, err = s.game.ClickOpportunities(in.Count)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.ClicksTotal.WithLabelValues(in.Resource).Add(float64(res.Clicks))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleToggleAcquisition(w http.ResponseWriter, _ *http.Request) {
	paused, err := s.game.ToggleAcquisitionPause()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"acquisitionPaused": paused})
}

func (s *Server) handleToggleWorkflow(w http.ResponseWriter, _ *http.Request) {
	enabled, err := s.game.ToggleFlexibleWorkflow()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flexibleWorkflowActive": enabled})
}

func (s *Server) handleClickPowerup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	boost, err := s.game.ClickPowerup(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "boost": boost})
}

func (s *Server) handleTriggerPowerup(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	boost, err := s.game.TriggerBoost(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "boost": boost})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.game.Pause()
	writeJSON(w, http.StatusOK, map[string]any{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	s.game.Resume()
	writeJSON(w, http.StatusOK, map[string]any{"paused": false})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	err := s.game.Save(r.Context(), s.store)
	metrics.ObserveSave(err)
	if err != nil {
		s.log.Error("save failed", "reason", "api", "err", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	res, err := s.game.Load(r.Context(), s.store)
	if err != nil {
		s.log.Error("load failed", "err", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleReset deletes the stored save and starts a fresh game.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.game.DeleteSave(r.Context(), s.store); err != nil {
		writeDomainError(w, err)
		return
	}
	s.game.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

// handleStream pushes a Snapshot every StreamEvery until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()
	s.log.Debug("stream client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debug("stream read failed", "err", err)
				}
				return
			}
		}
	}()

	send := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(s.game.Snapshot())
	}
	if err := send(); err != nil {
		return
	}
	ticker := time.NewTicker(s.cfg.StreamEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			s.log.Debug("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-ticker.C:
			if err := send(); err != nil {
				return
			}
		}
	}
}

// idempotent replays the first response for a repeated Idempotency-Key
// instead of applying the mutation again.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, supplied := idempotencyKey(r)
		w.Header().Set("Idempotency-Key", key)
		if !supplied {
			next.ServeHTTP(w, r)
			return
		}

		cacheKey := r.Method + " " + r.URL.Path + " " + key
		s.idemMu.Lock()
		defer s.idemMu.Unlock()
		if prev, ok := s.replays.Get(cacheKey); ok {
			s.log.Debug("idempotent replay", "key", key, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(prev.status)
			_, _ = w.Write(prev.body)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		// Server errors are not remembered so a retry can succeed.
		if rec.status < http.StatusInternalServerError {
			s.replays.Add(cacheKey, replayedResponse{status: rec.status, body: rec.body.Bytes()})
		}
	})
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)
	return rw.ResponseWriter.Write(p)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownBuilding), errors.Is(err, game.ErrUnknownUpgrade),
		errors.Is(err, game.ErrUnknownPowerup), errors.Is(err, game.ErrNoPendingPowerup),
		errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrTierLocked), errors.Is(err, game.ErrFeatureLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrAlreadyPurchased), errors.Is(err, game.ErrGameWon),
		errors.Is(err, game.ErrPaused):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": FormatValidationError(err),
	})
}

// decodeJSON accepts an empty body as the zero value.
func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

// idempotencyKey returns the caller's key, or a fresh one and false when none was sent.
func idempotencyKey(r *http.Request) (string, bool) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key, true
	}
	return uuid.NewString(), false
}
