package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"tourdesk/internal/config"
	"tourdesk/internal/database"
	"tourdesk/internal/export"
	"tourdesk/internal/models"
	"tourdesk/internal/sync"

	"github.com/rs/zerolog"
)

// Overridable in tests.
var writeFailedReport = export.WriteFailedReport

// DispatchRunner triggers one write-back pass.
type DispatchRunner interface {
	Run(ctx context.Context, opts sync.RunOptions) (sync.RunResult, *models.QueueStats, error)
}

// PullRunner triggers one pull-sync import for a sheet.
type PullRunner interface {
	Run(ctx context.Context, sheetName string) (sync.PullResult, error)
}

// Server exposes the sync bridge over HTTP.
type Server struct {
	cfg        config.APIConfig
	db         *database.DB
	dispatcher DispatchRunner
	importer   PullRunner
	auth       *Auth
	limiter    *rateLimiter
	exportDir  string
	server     *http.Server
	logger     zerolog.Logger
}

func NewServer(
	cfg config.APIConfig,
	syncCfg config.SyncConfig,
	db *database.DB,
	dispatcher DispatchRunner,
	importer PullRunner,
	exportDir string,
	logger *zerolog.Logger,
) *Server {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	s := &Server{
		cfg:        cfg,
		db:         db,
		dispatcher: dispatcher,
		importer:   importer,
		auth:       NewAuth(cfg.Auth, syncCfg.CronSecret),
		limiter:    newRateLimiter(cfg.RateLimit),
		exportDir:  exportDir,
		logger:     base,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/sync/run", s.handleSyncRun)
	mux.HandleFunc("/api/v1/sync/status", s.handleSyncStatus)
	mux.HandleFunc("/api/v1/sync/pull", s.handleSyncPull)
	mux.HandleFunc("/api/v1/sync/failed/export", s.handleFailedExport)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           loggingMiddleware(base, mux),
		ReadHeaderTimeout: 5 * time.Second,
		// Sheets calls are slow; a full dispatcher pass needs room.
		WriteTimeout: 120 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authorize authenticates the caller and checks a permission plus the
// per-client rate limit. An empty perm admits any authenticated caller.
// A nil return means the response is written.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, perm string) *Identity {
	identity, err := s.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	if !s.limiter.allow(identity.Name) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return nil
	}
	if perm != "" && !identity.Allowed(perm) {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil
	}
	return identity
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type syncRunRequest struct {
	RunMaintenance bool `json:"runMaintenance"`
}

type syncRunResponse struct {
	Success    bool               `json:"success"`
	Result     sync.RunResult     `json:"result"`
	QueueStats *models.QueueStats `json:"queueStats"`
}

func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.authorize(w, r, PermSyncRun) == nil {
		return
	}

	var req syncRunRequest
	if r.Body != nil {
		// Body is optional; a bare POST runs a normal pass.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, stats, err := s.dispatcher.Run(r.Context(), sync.RunOptions{RunMaintenance: req.RunMaintenance})
	if err != nil {
		s.logger.Error().Err(err).Msg("dispatcher run failed")
		writeError(w, http.StatusInternalServerError, "sync run failed")
		return
	}

	// Per-item failures are reported in the body, not as an HTTP error,
	// so operators can watch backlog health without the endpoint
	// flapping.
	writeJSON(w, http.StatusOK, syncRunResponse{Success: true, Result: result, QueueStats: stats})
}

type syncStatusResponse struct {
	Stats         *models.QueueStats     `json:"stats"`
	RecentFailed  []models.SyncQueueItem `json:"recentFailed"`
	RecentLogs    []models.SyncLogEntry  `json:"recentLogs"`
	LastProcessed *time.Time             `json:"lastProcessed,omitempty"`
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	// Basic stats are visible to every authenticated caller.
	identity := s.authorize(w, r, "")
	if identity == nil {
		return
	}

	stats, err := s.db.QueueStats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("queue stats failed")
		writeError(w, http.StatusInternalServerError, "failed to read queue stats")
		return
	}

	resp := syncStatusResponse{
		Stats:        stats,
		RecentFailed: []models.SyncQueueItem{},
		RecentLogs:   []models.SyncLogEntry{},
	}

	// Failure details stay behind the admin permission.
	if identity.Allowed(PermSyncAdmin) {
		if failed, err := s.db.RecentFailedSyncItems(r.Context(), 10); err == nil && failed != nil {
			resp.RecentFailed = failed
		}
		if logs, err := s.db.RecentSyncLogs(r.Context(), 20); err == nil && logs != nil {
			resp.RecentLogs = logs
		}
		if last, err := s.db.LastSyncedAt(r.Context()); err == nil && !last.IsZero() {
			resp.LastProcessed = &last
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type syncPullRequest struct {
	SheetName string `json:"sheetName"`
}

type syncPullResponse struct {
	Success      bool `json:"success"`
	Synced       int  `json:"synced"`
	Errors       int  `json:"errors"`
	LastRowIndex int  `json:"lastRowIndex"`
}

func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.authorize(w, r, PermSyncAdmin) == nil {
		return
	}

	var req syncPullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SheetName == "" {
		writeError(w, http.StatusBadRequest, "sheetName is required")
		return
	}

	result, err := s.importer.Run(r.Context(), req.SheetName)
	if err != nil {
		if errors.Is(err, sync.ErrSheetNotConfigured) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Str("sheet", req.SheetName).Msg("pull sync failed")
		writeError(w, http.StatusInternalServerError, "pull sync failed")
		return
	}

	writeJSON(w, http.StatusOK, syncPullResponse{
		Success:      true,
		Synced:       result.Synced,
		Errors:       result.Errors,
		LastRowIndex: result.LastRowIndex,
	})
}

func (s *Server) handleFailedExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.authorize(w, r, PermSyncAdmin) == nil {
		return
	}

	entries, err := s.db.AllFailedSyncLogs(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load failed sync logs")
		writeError(w, http.StatusInternalServerError, "failed to load sync logs")
		return
	}

	path, err := writeFailedReport(s.exportDir, entries)
	if err != nil {
		s.logger.Error().Err(err).Msg("write failed report")
		writeError(w, http.StatusInternalServerError, "failed to write report")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
