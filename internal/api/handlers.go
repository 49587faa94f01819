package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/takak2166/promptsync/internal/catalog"
	"github.com/takak2166/promptsync/internal/imagehost"
	"github.com/takak2166/promptsync/internal/logger"
	"github.com/takak2166/promptsync/internal/models"
	"github.com/takak2166/promptsync/internal/store"
	"github.com/takak2166/promptsync/internal/syncer"
	"github.com/takak2166/promptsync/internal/validation"
	"github.com/takak2166/promptsync/internal/workspace"
)

type commandRequest struct {
	Action string `json:"action"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type importRequest struct {
	Libraries        []models.Library `json:"libraries"`
	CurrentLibraryID string           `json:"currentLibraryId"`
}

type librariesResponse struct {
	Libraries        []models.Library `json:"libraries"`
	CurrentLibraryID string           `json:"currentLibraryId"`
}

type deletePromptsRequest struct {
	IDs []string `json:"ids"`
}

type imageRequest struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type imageResponse struct {
	URL string `json:"url"`
}

type toggleRequest struct {
	PromptID string `json:"promptId"`
}

type toggleResponse struct {
	Selected bool `json:"selected"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

type selectionResponse struct {
	PromptIDs     []string `json:"selectedPrompts"`
	TemporaryTags []string `json:"temporaryTags"`
	Text          string   `json:"text"`
}

type statusResponse struct {
	LastSyncTime   int64            `json:"lastSyncTime"`
	LastSyncStatus models.SyncState `json:"lastSyncStatus,omitempty"`
	LastSyncError  string           `json:"lastSyncError,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", err)
	}
}

// errorStatus maps an operation error to an HTTP status
func errorStatus(err error) int {
	var (
		noData    *syncer.NoDataError
		invalid   *validation.Error
		hostErr   *imagehost.APIError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, syncer.ErrSyncInProgress),
		errors.Is(err, catalog.ErrLastLibrary),
		errors.Is(err, catalog.ErrCategoryInUse):
		return http.StatusConflict
	case errors.As(err, &noData):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalid), errors.As(err, &syntaxErr), errors.Is(err, catalog.ErrNoImageHost):
		return http.StatusBadRequest
	case errors.As(err, &hostErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), errorResponse{Error: err.Error()})
}

// decode reads a JSON body into v and answers 400 when it cannot
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Get(r.Context(), store.KeyCurrentLibraryID); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// syncStatusCode maps a cycle error to an HTTP status. Remote failures are a bad gateway.
func syncStatusCode(err error) int {
	if status := errorStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusBadGateway
}

func (s *Server) handleSync(run func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := run(r.Context())
		if err != nil {
			writeJSON(w, syncStatusCode(err), syncer.Result{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, syncer.Result{Success: true})
	}
}

// handleCommand mirrors the extension message protocol: the reply is always 200 and carries
// success or error in the body
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.ws.Handle(r.Context(), req.Action))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ws.SyncStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := statusResponse{LastSyncStatus: st.LastSyncStatus, LastSyncError: st.LastSyncError}
	if !st.LastSyncTime.IsZero() {
		resp.LastSyncTime = st.LastSyncTime.UnixMilli()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	libs, current, err := s.ws.Libraries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if libs == nil {
		libs = []models.Library{}
	}
	writeJSON(w, http.StatusOK, librariesResponse{Libraries: libs, CurrentLibraryID: current})
}

func (s *Server) handleCurrentLibrary(w http.ResponseWriter, r *http.Request) {
	lib, err := s.ws.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lib)
}

func (s *Server) handleAddLibrary(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decode(w, r, &req) {
		return
	}
	lib, err := s.ws.AddLibrary(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lib)
}

func (s *Server) handleImportLibraries(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.ws.ImportLibraries(r.Context(), req.Libraries, req.CurrentLibraryID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenameLibrary(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.ws.RenameLibrary(r.Context(), chi.URLParam(r, "id"), req.Name))
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.ws.DeleteLibrary(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleSwitchLibrary(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.ws.SwitchLibrary(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.ws.AddCategory(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.ws.RenameCategory(r.Context(), chi.URLParam(r, "id"), req.Name))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.ws.DeleteCategory(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleAddPrompt(w http.ResponseWriter, r *http.Request) {
	var in catalog.PromptInput
	if !decode(w, r, &in) {
		return
	}
	p, err := s.ws.AddPrompt(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var in catalog.PromptInput
	if !decode(w, r, &in) {
		return
	}
	p, err := s.ws.UpdatePrompt(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePrompts(w http.ResponseWriter, r *http.Request) {
	var req deletePromptsRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.ws.DeletePrompts(r.Context(), req.IDs...))
}

func (s *Server) handleAttachImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.ws.AttachImage(r.Context(), chi.URLParam(r, "id"), req.Filename, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{URL: u})
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := s.ws.Selection(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := s.ws.SelectionText(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := selectionResponse{PromptIDs: sel.PromptIDs, TemporaryTags: sel.TemporaryTags, Text: text}
	if resp.PromptIDs == nil {
		resp.PromptIDs = []string{}
	}
	if resp.TemporaryTags == nil {
		resp.TemporaryTags = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.ws.ClearSelection(r.Context()))
}

func (s *Server) handleToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decode(w, r, &req) {
		return
	}
	selected, err := s.ws.ToggleSelection(r.Context(), req.PromptID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Selected: selected})
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.ws.AddTag(r.Context(), req.Tag))
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.ws.RemoveTag(r.Context(), req.Tag))
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.ws.ListImages(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if images == nil {
		images = []imagehost.Image{}
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleTestImageHost(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.ws.TestImageHost(r.Context()))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ws.Settings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]string
	if !decode(w, r, &patch) {
		return
	}
	section := workspace.Section(chi.URLParam(r, "section"))
	test := r.URL.Query().Get("test") == "true"
	s.respond(w, s.ws.SaveSettings(r.Context(), section, patch, test))
}

// respond answers 204 on success and the mapped status otherwise
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
