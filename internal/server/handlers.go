package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jward/slicer"
)

// SliceResponse is the /slice?format=json body.
type SliceResponse struct {
	Seeds    []int64        `json:"seeds"`
	Summary  slicer.Summary `json:"summary"`
	Internal []int64        `json:"internal"`
	External []int64        `json:"external"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: GetRequestID(r.Context())})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSlice(w http.ResponseWriter, r *http.Request) {
	seeds, err := parseSeeds(r.URL.Query()["id"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(seeds) == 0 {
		writeError(w, r, http.StatusBadRequest, "at least one id is required")
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sl, err := s.slicer.Slice(ctx, seeds)
	if err != nil {
		s.logger.Error("slice request failed", "seeds", seeds, "err", err, "request_id", GetRequestID(r.Context()))
		writeError(w, r, http.StatusInternalServerError, "slice failed")
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, SliceResponse{
			Seeds:    seeds,
			Summary:  sl.Summary(),
			Internal: entityIDs(sl.InternalEntities()),
			External: entityIDs(sl.ExternalEntities()),
		})
		return
	}

	var buf bytes.Buffer
	n, err := s.recon.WriteArchive(ctx, sl, &buf)
	if err != nil {
		s.logger.Error("archive failed", "seeds", seeds, "err", err, "request_id", GetRequestID(r.Context()))
		writeError(w, r, http.StatusInternalServerError, "archive failed")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="slice.zip"`)
	w.Header().Set("X-Slice-Files", strconv.Itoa(n))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func parseSeeds(values []string) ([]int64, error) {
	seeds := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &badIDError{value: v}
		}
		seeds = append(seeds, id)
	}
	return seeds, nil
}

type badIDError struct{ value string }

func (e *badIDError) Error() string {
	return "invalid id " + strconv.Quote(e.value)
}

func entityIDs(es []*slicer.Entity) []int64 {
	ids := make([]int64, len(es))
	for i, e := range es {
		ids[i] = e.ID
	}
	return ids
}
