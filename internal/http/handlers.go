package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bioarchive/workpkgsvc/internal/http/httperr"
	"github.com/bioarchive/workpkgsvc/internal/http/middleware"
	"github.com/bioarchive/workpkgsvc/pkg/dataset"
	"github.com/bioarchive/workpkgsvc/pkg/manager"
)

// service holds the Manager every handler delegates to.
type service struct {
	manager *manager.Manager
}

func (s *service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// creationRequest is the request body of POST /work-packages.
type creationRequest struct {
	DatasetID             string   `json:"dataset_id"`
	Type                  string   `json:"type"`
	FileIDs               []string `json:"file_ids"`
	UserPublicCrypt4GHKey string   `json:"user_public_crypt4gh_key"`
}

func (s *service) handleCreateWorkPackage(w http.ResponseWriter, r *http.Request) {
	var req creationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, httperr.Body{Error: "malformed request body"})
		return
	}

	t := dataset.WorkType(req.Type)
	if !t.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, httperr.Body{Error: "invalid work type"})
		return
	}

	assertion := middleware.BearerToken(r)
	result, err := s.manager.CreateWorkPackage(r.Context(), manager.CreationData{
		DatasetID:             req.DatasetID,
		Type:                  t,
		FileIDs:               req.FileIDs,
		UserPublicCrypt4GHKey: req.UserPublicCrypt4GHKey,
	}, assertion)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    result.ID,
		"token": result.EncryptedAccessToken,
	})
}

func (s *service) handleGetWorkPackageDetails(w http.ResponseWriter, r *http.Request) {
	wpID := chi.URLParam(r, "wp_id")
	token := middleware.BearerToken(r)

	details, err := s.manager.GetWorkPackageDetails(r.Context(), wpID, token)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":    details.Type,
		"created": details.Created,
		"expires": details.Expires,
		"files":   details.Files,
	})
}

func (s *service) handleCreateWorkOrderToken(w http.ResponseWriter, r *http.Request) {
	wpID := chi.URLParam(r, "wp_id")
	fileID := chi.URLParam(r, "file_id")
	token := middleware.BearerToken(r)

	encrypted, err := s.manager.CreateWorkOrderToken(r.Context(), wpID, fileID, token)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"token": encrypted})
}

func (s *service) handleListUserDatasets(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	assertion := middleware.BearerToken(r)

	datasets, err := s.manager.ListUserDatasets(r.Context(), userID, assertion)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, datasets)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
