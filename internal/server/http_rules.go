package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hypertrace/config-service-go/internal/rules"
)

// handlePutRule handles PUT .../label-application-rules/{id}: upsert.
func (s *Server) handlePutRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.LabelApplicationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rule.ID = r.PathValue("id")

	userID, userEmail := userIdentity(r)
	store := rules.NewStore(s.store, s.sink, r.PathValue("tenant"))
	if err := store.Upsert(r.Context(), userID, userEmail, rule); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleGetRule handles GET .../label-application-rules/{id}: get.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	store := rules.NewStore(s.store, s.sink, r.PathValue("tenant"))
	rule, ok := store.Get(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "label application rule not found")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleDeleteRule handles DELETE .../label-application-rules/{id}: delete.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	store := rules.NewStore(s.store, s.sink, r.PathValue("tenant"))
	if err := store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListRules handles GET .../label-application-rules?ids=a,b: getAll.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	var filterIDs []string
	if raw := r.URL.Query().Get("ids"); raw != "" {
		filterIDs = strings.Split(raw, ",")
	}

	store := rules.NewStore(s.store, s.sink, r.PathValue("tenant"))
	list, err := store.GetAll(r.Context(), rules.GetLabelApplicationRuleFilter{Ids: filterIDs})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []rules.LabelApplicationRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": list})
}

// handlePutRules handles POST .../label-application-rules/batch: upsertAll.
func (s *Server) handlePutRules(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rules []rules.LabelApplicationRule `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	userID, userEmail := userIdentity(r)
	store := rules.NewStore(s.store, s.sink, r.PathValue("tenant"))
	if err := store.UpsertAll(r.Context(), userID, userEmail, body.Rules); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": body.Rules})
}
