package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

const maxBodyBytes = 32 << 20

func syncErrorResponse(msg string) syncproto.ErrorResponse {
	return syncproto.ErrorResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp syncproto.ErrorResponse) {
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.Ping(r.Context()); err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePullQuery serves GET /api/sync/pull?last_pulled_at=&schema_version=.
func (s *Server) handlePullQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &syncproto.PullRequest{}

	if v := strings.TrimSpace(q.Get("last_pulled_at")); v != "" && v != "null" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, syncErrorResponse("last_pulled_at must be an integer"))
			return
		}
		req.LastPulledAt = &ms
	}
	if v := strings.TrimSpace(q.Get("schema_version")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, syncErrorResponse("schema_version must be an integer"))
			return
		}
		req.SchemaVersion = n
	}

	s.pull(w, r, req)
}

// handlePullBody serves POST /api/sync/pull with a JSON body.
func (s *Server) handlePullBody(w http.ResponseWriter, r *http.Request) {
	req := &syncproto.PullRequest{}
	if err := decodeBody(w, r, req); err != nil {
		writeError(w, http.StatusBadRequest, syncErrorResponse(err.Error()))
		return
	}
	s.pull(w, r, req)
}

func (s *Server) pull(w http.ResponseWriter, r *http.Request, req *syncproto.PullRequest) {
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, syncErrorResponse(err.Error()))
		return
	}

	resp, err := s.sync.Pull(r.Context(), timex.SinceFromMillis(req.LastPulledAt), req.SchemaVersion)
	if err != nil {
		s.logger.Error(r.Context(), "pull failed", "error", err)
		writeError(w, http.StatusInternalServerError, syncErrorResponse("pull failed"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	req := &syncproto.PushRequest{}
	if err := decodeBody(w, r, req); err != nil {
		writeError(w, http.StatusBadRequest, syncErrorResponse(err.Error()))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, syncErrorResponse(err.Error()))
		return
	}

	_, err := s.sync.Push(r.Context(), req, UserIDFromContext(r.Context()))
	if err != nil {
		var conflict *common.ConflictError
		switch {
		case errors.As(err, &conflict):
			writeError(w, http.StatusConflict, syncproto.ErrorResponse{
				Error: conflict.Error(),
				Table: conflict.Table,
				ID:    conflict.StableID,
			})
		case errors.Is(err, common.ErrorValidation):
			writeError(w, http.StatusBadRequest, syncErrorResponse(err.Error()))
		default:
			writeError(w, http.StatusInternalServerError, syncErrorResponse(err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
