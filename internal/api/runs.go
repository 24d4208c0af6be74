package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	errs "github.com/jdholdren/sweep/internal/errors"
)

// Runs a sweep to completion and returns its report. The sweep keeps going
// if the caller hangs up, only the request's log attrs carry over.
func (s *Server) postProcess(w http.ResponseWriter, r *http.Request) error {
	report, err := s.runs.Trigger(context.WithoutCancel(r.Context()))
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, report)
}

func (s *Server) getRuns(w http.ResponseWriter, r *http.Request) error {
	recent := s.runs.Recent()

	// Newest first
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return writeJSON(w, http.StatusOK, map[string]any{
		"runs": recent,
	})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["runID"]
	report, ok := s.runs.Report(id)
	if !ok {
		return errs.E(http.StatusNotFound, "run not found")
	}

	return writeJSON(w, http.StatusOK, report)
}
