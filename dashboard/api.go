package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/animus-labs/aigov-dashboard/internal/artifacts"
	"github.com/animus-labs/aigov-dashboard/internal/domain"
	"github.com/animus-labs/aigov-dashboard/internal/integrity"
	"github.com/animus-labs/aigov-dashboard/internal/repo"
)

type dashboardAPI struct {
	logger       *slog.Logger
	runs         repo.RunRepository
	issuer       *artifacts.Issuer
	listLimit    int
	queryTimeout time.Duration
}

func (api *dashboardAPI) register(mux *http.ServeMux, gate func(http.Handler) http.Handler) {
	mux.Handle("GET /api/runs", gate(http.HandlerFunc(api.handleListRuns)))
	mux.Handle("GET /api/runs/{id}", gate(http.HandlerFunc(api.handleGetRun)))
	mux.Handle("GET /api/storage/signed-urls", gate(http.HandlerFunc(api.handleSignedURLs)))
	mux.Handle("GET /api/bundle/{id}", gate(api.handleDownload(artifacts.KindBundle)))
	mux.Handle("GET /api/raw/audit/{id}", gate(api.handleDownload(artifacts.KindAudit)))
	mux.Handle("GET /api/raw/evidence/{id}", gate(api.handleDownload(artifacts.KindEvidence)))
}

type runDetail struct {
	OK        bool              `json:"ok"`
	Run       domain.Run        `json:"run"`
	Integrity integrity.Verdict `json:"integrity"`
	Checks    []integrity.Check `json:"checks"`
}

func (api *dashboardAPI) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := runFilterFromQuery(r, api.listLimit)

	ctx, cancel := api.queryContext(r.Context())
	defer cancel()
	runs, err := api.runs.ListRuns(ctx, filter)
	if err != nil {
		api.logger.Error("list runs failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		api.writeError(w, http.StatusInternalServerError, "db_error", "Failed to load runs.")
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"runs": runs,
	})
}

func (api *dashboardAPI) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		api.writeError(w, http.StatusBadRequest, "bad_request", "Missing run id.")
		return
	}

	ctx, cancel := api.queryContext(r.Context())
	defer cancel()
	run, err := api.runs.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, http.StatusNotFound, "not_found", "Run not found.")
			return
		}
		api.logger.Error("get run failed", "request_id", r.Header.Get("X-Request-Id"), "run_id", id, "error", err)
		api.writeError(w, http.StatusInternalServerError, "db_error", "Failed to load run.")
		return
	}

	verdict := integrity.Evaluate(run)
	api.writeJSON(w, http.StatusOK, runDetail{
		OK:        true,
		Run:       run,
		Integrity: verdict,
		Checks:    verdict.Checks(),
	})
}

func (api *dashboardAPI) handleSignedURLs(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.URL.Query().Get("runId"))
	if runID == "" {
		api.writeError(w, http.StatusBadRequest, "bad_request", "Missing runId.")
		return
	}

	out, err := api.issuer.SignURLs(r.Context(), runID)
	if err != nil {
		if errors.Is(err, artifacts.ErrInvalidRunID) {
			api.writeError(w, http.StatusBadRequest, "bad_request", "Invalid runId.")
			return
		}
		api.logger.Error("sign urls failed", "request_id", r.Header.Get("X-Request-Id"), "run_id", runID, "error", err)
		api.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to sign URLs.")
		return
	}
	if !out.OK {
		out.Error = "storage_error"
		api.logger.Error("sign urls failed", "request_id", r.Header.Get("X-Request-Id"), "run_id", runID, "error", out.Message)
		api.writeJSON(w, http.StatusInternalServerError, out)
		return
	}
	api.writeJSON(w, http.StatusOK, out)
}

func (api *dashboardAPI) handleDownload(kind artifacts.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := strings.TrimSpace(r.PathValue("id"))
		if runID == "" {
			api.writeError(w, http.StatusBadRequest, "bad_request", "Missing run id.")
			return
		}

		d, err := api.issuer.Open(r.Context(), runID, kind)
		if err != nil {
			switch {
			case errors.Is(err, artifacts.ErrInvalidRunID):
				api.writeError(w, http.StatusBadRequest, "bad_request", "Invalid run id.")
			case errors.Is(err, artifacts.ErrNotFound):
				api.writeError(w, http.StatusNotFound, "not_found", "Artifact not found.")
			default:
				api.logger.Error("open artifact failed",
					"request_id", r.Header.Get("X-Request-Id"),
					"run_id", runID,
					"kind", string(kind),
					"error", err,
				)
				api.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to read artifact.")
			}
			return
		}
		defer d.Body.Close()

		w.Header().Set("Content-Type", d.ContentType)
		w.Header().Set("Content-Disposition", d.Disposition)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Artifact-Source", d.Source.String())
		if d.Size >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, d.Body); err != nil {
			api.logger.Warn("artifact stream interrupted",
				"request_id", r.Header.Get("X-Request-Id"),
				"run_id", runID,
				"kind", string(kind),
				"error", err,
			)
		}
	}
}

func runFilterFromQuery(r *http.Request, defaultLimit int) repo.RunFilter {
	q := r.URL.Query()
	limit := defaultLimit
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	return repo.RunFilter{
		Mode:   strings.TrimSpace(q.Get("mode")),
		Status: strings.TrimSpace(q.Get("status")),
		Limit:  limit,
	}
}

func (api *dashboardAPI) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if api.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, api.queryTimeout)
}

func (api *dashboardAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *dashboardAPI) writeError(w http.ResponseWriter, status int, kind, message string) {
	api.writeJSON(w, status, map[string]any{
		"ok":      false,
		"error":   kind,
		"message": message,
	})
}
