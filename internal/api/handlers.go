package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/slok/codesbx/internal/app/compile"
	"github.com/slok/codesbx/internal/app/execute"
	"github.com/slok/codesbx/internal/app/runlist"
	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/submission"
)

type runJSON struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	CodeHash     string `json:"codeHash"`
	CodeSize     int    `json:"codeSize"`
	Success      bool   `json:"success"`
	DurationMs   int64  `json:"durationMs"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

func mapRunToJSON(r model.Run) runJSON {
	return runJSON{
		ID:           r.ID,
		Kind:         string(r.Kind),
		CodeHash:     r.CodeHash,
		CodeSize:     r.CodeSize,
		Success:      r.Success,
		DurationMs:   r.Duration.Milliseconds(),
		ErrorMessage: r.ErrorMessage,
		RequestID:    r.RequestID,
		CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (h *apiHandler) compile(w http.ResponseWriter, r *http.Request) {
	sub, err := submission.Decode(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.compileSvc.Run(r.Context(), compile.Request{Code: sub.Code, RequestID: requestIDFromCtx(r.Context())})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeData(w, res)
}

func (h *apiHandler) execute(w http.ResponseWriter, r *http.Request) {
	sub, err := submission.Decode(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.executeSvc.Run(r.Context(), execute.Request{Code: sub.Code, RequestID: requestIDFromCtx(r.Context())})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeData(w, res)
}

func (h *apiHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := runlist.Request{Kind: model.RunKind(q.Get("kind"))}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			h.handleError(w, r, &submission.ValidationError{Field: "limit", Message: `"limit" must be a number`})
			return
		}
		req.Limit = limit
	}

	runs, err := h.runListSvc.Run(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	data := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		data = append(data, mapRunToJSON(run))
	}
	writeData(w, data)
}

func (h *apiHandler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runListSvc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeData(w, mapRunToJSON(*run))
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeData(w, map[string]any{
		"status":      "healthy",
		"timestamp":   now.UTC().Format(time.RFC3339Nano),
		"uptime":      now.Sub(h.startedAt).Seconds(),
		"environment": h.environment,
	})
}

func (h *apiHandler) root(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]any{
		"message": "Code sandbox editor API",
		"version": h.version,
		"status":  "running",
	})
}

func (h *apiHandler) notFound(w http.ResponseWriter, r *http.Request) {
	writeAPIError(w, &apiError{status: http.StatusNotFound, body: errorBody{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("Route %s %s not found", r.Method, r.URL.RequestURI()),
	}})
}

func (h *apiHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	aerr := toAPIError(err, requestIDFromCtx(r.Context()), h.environment == EnvironmentProduction)
	if aerr.status >= http.StatusInternalServerError {
		h.logger.WithCtxValues(r.Context()).Errorf("Request failed: %s", err)
	}
	writeAPIError(w, aerr)
}
