package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/veil-labs/veil/internal/anonymizer"
	"github.com/veil-labs/veil/internal/entity"
	"github.com/veil-labs/veil/internal/llm"
	"github.com/veil-labs/veil/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		components := map[string]string{"detector": "ok"}
		if s.source == nil {
			components["external_source"] = "disabled"
		} else {
			components["external_source"] = "ok"
		}
		if s.kv == nil {
			components["storage"] = "disabled"
		} else {
			components["storage"] = "ok"
		}
		resp["components"] = components
	}
	writeJSON(w, http.StatusOK, resp)
}

type textRequest struct {
	Text string `json:"text"`
}

// handleDetect is the stateless scan: detect with the server's default
// settings and return the entities without rewriting anything.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "empty_input", "text is required")
		return
	}

	entities := s.detector.Detect(r.Context(), req.Text, s.settings.EnabledCategories)
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

// handleAnonymize is the stateless one-shot: detect with default
// settings, then tokenize, returning both the tokenized text and the
// entity map needed to reverse it.
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	sess := s.newSession()
	if _, err := sess.Detect(r.Context(), req.Text); err != nil && !errors.Is(err, llm.ErrUnconfigured) {
		if errors.Is(err, session.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, "empty_input", "text is required")
			return
		}
		// External failure: regex entities are already merged, continue.
		log.Warn().Err(err).Msg("anonymize_external_source_failed")
	}

	tokenized, m, err := sess.Anonymize(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, "empty_input", "text is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID(),
		"tokenized":  tokenized,
		"entity_map": m,
		"entities":   sess.Entities(),
	})
}

// handleDeanonymize is the stateless inverse: tokenized text plus an
// entity map in, restored text out.
func (s *Server) handleDeanonymize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string          `json:"text"`
		EntityMap json.RawMessage `json:"entity_map"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	m, err := anonymizer.ParseEntityMap(req.EntityMap)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_mapping", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"restored": anonymizer.Deanonymize(r.Context(), req.Text, m),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.newSession()
	sess.LoadPersisted(r.Context())
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID()})
}

// sessionFrom resolves the session from the URL, writing a 404 when it
// does not exist.
func (s *Server) sessionFrom(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "id")
	sess := s.lookupSession(id)
	if sess == nil {
		writeError(w, http.StatusNotFound, "unknown_session", "no session with id "+id)
	}
	return sess
}

func (s *Server) handleSessionDetect(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	entities, err := sess.Detect(r.Context(), req.Text)
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "empty_input", "text is required")
		return
	case errors.Is(err, llm.ErrUnconfigured):
		writeError(w, http.StatusPreconditionFailed, "external_source_unconfigured",
			"external source requested but no provider/key configured")
		return
	case err != nil:
		// Regex entities are already merged; report the external failure
		// together with the partial result.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"entities":              entities,
			"external_source_error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

func (s *Server) handleSessionAnonymize(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	tokenized, m, err := sess.Anonymize(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusBadRequest, "empty_input", "text is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tokenized":  tokenized,
		"entity_map": m,
	})
}

func (s *Server) handleSessionDeanonymize(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"restored": sess.Deanonymize(r.Context(), req.Text),
	})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": sess.Entities()})
}

func (s *Server) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	var e entity.Entity
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	added := sess.AddManual(e)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"added":    added,
		"entities": sess.Entities(),
	})
}

func (s *Server) handleClearEntities(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	sess.ClearEntities()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveEntity(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "index must be an integer")
		return
	}
	sess.RemoveEntity(idx)
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": sess.Entities()})
}

func (s *Server) handleExportMapping(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	data, err := sess.ExportMap()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleImportMapping(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFrom(w, r)
	if sess == nil {
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := sess.ImportMap(r.Context(), data); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_mapping", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
