package web

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/conorfennell/lexicard/internal/study"
)

func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.svc.Export()
		if err != nil {
			writeError(w, r, err)
			return
		}
		name := fmt.Sprintf("lexicard-backup-%s.json", time.Now().Format("20060102-150405"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Write(body)
	}
}

// handleRestore replaces the whole document with the uploaded backup.
func (s *Server) handleRestore() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if err := s.svc.Restore(r.Context(), raw); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.svc.Settings())
	}
}

func (s *Server) handleUpdateSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch study.SettingsPatch
		if err := decode(w, r, &patch); err != nil {
			writeError(w, r, err)
			return
		}
		settings, err := s.svc.UpdateSettings(r.Context(), patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}
