package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/loggov/internal/governance"
)

const defaultMaxBodyBytes = 1 << 20

type payloadRequest struct {
	Payload json.RawMessage `json:"payload"`
}

type detectResponse struct {
	ContainsPII bool                 `json:"containsPII"`
	Findings    []governance.Finding `json:"findings"`
}

type ruleResponse struct {
	Name        string   `json:"name"`
	Pattern     string   `json:"pattern"`
	Replacement string   `json:"replacement"`
	Options     []string `json:"options"`
}

type configResponse struct {
	Version        string         `json:"version"`
	Source         string         `json:"source"`
	OnContainsPII  string         `json:"onContainsPII"`
	RequiredFields []string       `json:"requiredFields"`
	Rules          []ruleResponse `json:"rules"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	cfg := s.deps.Store.Config()
	info := map[string]interface{}{
		"name":           "loggov",
		"version":        s.deps.Version,
		"uptime":         time.Since(s.started).Round(time.Second).String(),
		"config_version": cfg.Version(),
		"config_source":  cfg.Source(),
		"action":         cfg.OnContainsPII(),
		"rules_count":    len(cfg.Rules()),
	}
	if s.deps.Hub != nil {
		info["websocket_clients"] = s.deps.Hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, info)
}

// handleConfig describes the active governance config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, describeConfig(s.deps.Store.Config()))
}

// handleApply governs a payload under the active config
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	result, err := s.deps.Store.Apply(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDetect reports PII findings without governing the payload
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	rules := s.deps.Store.Config().Rules()
	findings := governance.Scan(payload, rules)
	writeJSON(w, http.StatusOK, detectResponse{
		ContainsPII: len(findings) > 0,
		Findings:    findings,
	})
}

// handleValidate checks a mapping against the required fields
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	payload, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	fields, isFields := payload.(governance.Fields)
	if !isFields {
		writeError(w, http.StatusBadRequest, "payload must be an object")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Store.Validate(fields))
}

// handleReload reloads the governance document
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reload == nil {
		writeError(w, http.StatusNotImplemented, "reload is not configured")
		return
	}

	cfg, err := s.deps.Store.Reload(s.deps.Reload)
	if s.deps.OnReload != nil {
		s.deps.OnReload(cfg, err)
	}

	log := s.logger.WithRequestID(getRequestID(r.Context()))
	if err != nil {
		log.Error("Governance reload failed, keeping previous config",
			zap.String("active_version", cfg.Version()),
			zap.Error(err),
		)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	log.Info("Governance config reloaded",
		zap.String("version", cfg.Version()),
		zap.String("source", cfg.Source()),
	)
	writeJSON(w, http.StatusOK, describeConfig(cfg))
}

// readPayload decodes {"payload": ...}; it writes the error response itself.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (governance.Payload, bool) {
	limit := s.config.Server.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	var req payloadRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return nil, false
	}
	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "missing payload")
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(req.Payload))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
		return nil, false
	}

	payload, err := governance.FromAny(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return payload, true
}

func describeConfig(cfg *governance.Config) configResponse {
	resp := configResponse{
		Version:        cfg.Version(),
		Source:         cfg.Source(),
		OnContainsPII:  string(cfg.OnContainsPII()),
		RequiredFields: cfg.RequiredFields(),
		Rules:          make([]ruleResponse, 0, len(cfg.Rules())),
	}
	if resp.RequiredFields == nil {
		resp.RequiredFields = []string{}
	}
	for _, r := range cfg.Rules() {
		rule := r.Rule()
		opts := make([]string, len(rule.Options))
		for i, o := range rule.Options {
			opts[i] = string(o)
		}
		resp.Rules = append(resp.Rules, ruleResponse{
			Name:        rule.Name,
			Pattern:     rule.Pattern,
			Replacement: rule.Replacement,
			Options:     opts,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
