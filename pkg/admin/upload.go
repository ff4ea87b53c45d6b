package admin

import (
	"encoding/json"
	"net/http"

	"github.com/wishmock/wishmock/pkg/world"
)

// UploadRequest is the body both upload endpoints accept.
type UploadRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// UploadResponse reports the reload outcome.
type UploadResponse struct {
	Path       string `json:"path"`
	Generation uint64 `json:"generation"`
}

func (a *API) worldConfig() world.Config {
	return world.Config{
		ProtoDir:          a.Config.ProtoDir,
		RulesDir:          a.Config.RulesDir,
		ValidationEnabled: a.Config.ValidationEnabled,
		ValidationSource:  a.Config.ValidationSource,
		ValidationMode:    a.Config.ValidationMode,
		CELMessageMode:    a.Config.ValidationCELMsg,
	}
}

func (a *API) decodeUpload(w http.ResponseWriter, r *http.Request) (UploadRequest, bool) {
	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return req, false
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "filename is required")
		return req, false
	}
	return req, true
}

// handleUploadProto persists a .proto file under Config.ProtoDir and
// triggers a reload. A reload that fails leaves the previous World in
// place, per the all-or-nothing republish guarantee.
func (a *API) handleUploadProto(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeUpload(w, r)
	if !ok {
		return
	}
	path, err := persistUpload(a.Config.ProtoDir, req.Filename, req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_path", err.Error())
		return
	}
	next, err := a.Registry.Reload(a.worldConfig(), a.Log)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "reload_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{Path: path, Generation: next.Generation})
}

// handleUploadRule persists a rule file under Config.RulesDir and
// triggers a reload.
func (a *API) handleUploadRule(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeUpload(w, r)
	if !ok {
		return
	}
	path, err := persistUpload(a.Config.RulesDir, req.Filename, req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_path", err.Error())
		return
	}
	next, err := a.Registry.Reload(a.worldConfig(), a.Log)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "reload_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{Path: path, Generation: next.Generation})
}
