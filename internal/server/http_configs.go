package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hypertrace/config-service-go/internal/configdoc"
	"github.com/hypertrace/config-service-go/internal/configstore"
)

func pathResource(r *http.Request) configdoc.ConfigResource {
	return configdoc.ConfigResource{
		TenantID:          r.PathValue("tenant"),
		ResourceNamespace: r.PathValue("namespace"),
		ResourceName:      r.PathValue("resource"),
	}
}

func pathResourceContext(r *http.Request) configdoc.ConfigResourceContext {
	return configdoc.ConfigResourceContext{
		ConfigResource: pathResource(r),
		Context:        r.PathValue("context"),
	}
}

// writeConfigRequestBody is the JSON body for PUT .../contexts/{context}.
type writeConfigRequestBody struct {
	Config          any             `json:"config"`
	UpsertCondition json.RawMessage `json:"upsertCondition,omitempty"`
}

// handleWriteConfig handles PUT .../contexts/{context}: writeConfig.
func (s *Server) handleWriteConfig(w http.ResponseWriter, r *http.Request) {
	var body writeConfigRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cond, err := decodeFilterExpr(body.UpsertCondition)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, userEmail := userIdentity(r)
	result, err := s.store.WriteConfig(r.Context(), pathResourceContext(r), userID, userEmail, configstore.WriteRequest{
		Config:          body.Config,
		UpsertCondition: cond,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetConfig handles GET .../contexts/{context}: getConfig.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok, err := s.store.GetConfig(r.Context(), pathResourceContext(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "config not found")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleDeleteConfig handles DELETE .../contexts/{context}: a one-element
// deleteConfigs call.
func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	rc := pathResourceContext(r)
	if err := s.store.DeleteConfigs(r.Context(), []configdoc.ConfigResourceContext{rc}); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetAllConfigs handles GET .../resources/{resource}: getAllConfigs.
func (s *Server) handleGetAllConfigs(w http.ResponseWriter, r *http.Request) {
	cfgs, err := s.store.GetAllConfigs(r.Context(), pathResource(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if cfgs == nil {
		cfgs = []configdoc.ContextSpecificConfig{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": cfgs})
}

// writeAllConfigsRequestBody is the JSON body for POST .../batch-write.
type writeAllConfigsRequestBody struct {
	Configs []struct {
		Context string `json:"context"`
		Config  any    `json:"config"`
	} `json:"configs"`
}

// handleWriteAllConfigs handles POST .../batch-write: writeAllConfigs.
func (s *Server) handleWriteAllConfigs(w http.ResponseWriter, r *http.Request) {
	var body writeAllConfigsRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resource := pathResource(r)
	inputs := make([]configstore.WriteAllInput, len(body.Configs))
	for i, c := range body.Configs {
		inputs[i] = configstore.WriteAllInput{
			ResourceContext: configdoc.ConfigResourceContext{ConfigResource: resource, Context: c.Context},
			Config:          c.Config,
		}
	}

	userID, userEmail := userIdentity(r)
	results, err := s.store.WriteAllConfigs(r.Context(), inputs, userID, userEmail)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": results})
}

// contextsRequestBody is the JSON body shared by batch-get and batch-delete.
type contextsRequestBody struct {
	Contexts []string `json:"contexts"`
}

// handleGetContextConfigs handles POST .../batch-get: getContextConfigs.
func (s *Server) handleGetContextConfigs(w http.ResponseWriter, r *http.Request) {
	var body contextsRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resource := pathResource(r)
	rcs := make([]configdoc.ConfigResourceContext, len(body.Contexts))
	for i, ctx := range body.Contexts {
		rcs[i] = configdoc.ConfigResourceContext{ConfigResource: resource, Context: ctx}
	}

	result, err := s.store.GetContextConfigs(r.Context(), rcs)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make(map[string]configdoc.ContextSpecificConfig, len(result))
	for rc, cfg := range result {
		out[rc.Context] = cfg
	}
	writeJSON(w, http.StatusOK, map[string]any{"configs": out})
}

// handleDeleteConfigs handles POST .../batch-delete: deleteConfigs.
func (s *Server) handleDeleteConfigs(w http.ResponseWriter, r *http.Request) {
	var body contextsRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resource := pathResource(r)
	rcs := make([]configdoc.ConfigResourceContext, len(body.Contexts))
	for i, ctx := range body.Contexts {
		rcs[i] = configdoc.ConfigResourceContext{ConfigResource: resource, Context: ctx}
	}

	if err := s.store.DeleteConfigs(r.Context(), rcs); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps a configstore.Error's Kind to an HTTP status.
func writeStoreError(w http.ResponseWriter, err error) {
	var se *configstore.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case configstore.InvalidArgument:
			writeError(w, http.StatusBadRequest, se.Error())
		case configstore.FailedPrecondition:
			writeError(w, http.StatusConflict, se.Error())
		case configstore.Unavailable:
			writeError(w, http.StatusServiceUnavailable, se.Error())
		default:
			writeError(w, http.StatusInternalServerError, se.Error())
		}
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
