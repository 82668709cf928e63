package httpapi

import (
	"net/http"
	"time"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/services"
)

// parseDate accepts a "YYYY-MM-DD" value; an empty string parses to the
// zero time so required-field validation stays in the services.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, common.ErrorValidation
	}
	return t, nil
}

type vaultRequest struct {
	ChildID        string `json:"child_id,omitempty"`
	Title          string `json:"title"`
	LetterContent  string `json:"letter_content"`
	UnlockDate     string `json:"unlock_date"`
	UnlockOccasion string `json:"unlock_occasion"`
}

type vaultResponse struct {
	ID             string     `json:"id"`
	ChildID        string     `json:"child_id"`
	Title          string     `json:"title"`
	LetterContent  string     `json:"letter_content"`
	UnlockDate     string     `json:"unlock_date"`
	UnlockOccasion string     `json:"unlock_occasion"`
	State          string     `json:"state"`
	SealedAt       *time.Time `json:"sealed_at,omitempty"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toVaultResponse(v *models.Vault) vaultResponse {
	return vaultResponse{
		ID:             v.ID,
		ChildID:        v.ChildID,
		Title:          v.Title,
		LetterContent:  v.LetterContent,
		UnlockDate:     v.UnlockDate.Format(time.DateOnly),
		UnlockOccasion: v.UnlockOccasion,
		State:          string(v.State()),
		SealedAt:       v.SealedAt,
		OpenedAt:       v.OpenedAt,
		CreatedAt:      v.CreatedAt,
	}
}

func toVaultResponses(vs []*models.Vault) []vaultResponse {
	out := make([]vaultResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, toVaultResponse(v))
	}
	return out
}

func (s *Server) vaultInputFromRequest(w http.ResponseWriter, r *http.Request) (*vaultRequest, *services.VaultInput, bool) {
	var req vaultRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return nil, nil, false
	}
	unlockDate, err := parseDate(req.UnlockDate)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return nil, nil, false
	}
	return &req, &services.VaultInput{
		Title:          req.Title,
		LetterContent:  req.LetterContent,
		UnlockDate:     unlockDate,
		UnlockOccasion: req.UnlockOccasion,
	}, true
}

func (s *Server) handleVaultCreate(w http.ResponseWriter, r *http.Request) {
	req, in, ok := s.vaultInputFromRequest(w, r)
	if !ok {
		return
	}

	v, err := s.vaults.Create(r.Context(), principalID(r), req.ChildID, *in)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVaultResponse(v))
}

func (s *Server) handleVaultUpdate(w http.ResponseWriter, r *http.Request) {
	_, in, ok := s.vaultInputFromRequest(w, r)
	if !ok {
		return
	}

	v, err := s.vaults.Update(r.Context(), principalID(r), r.PathValue("id"), *in)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toVaultResponse(v))
}

func (s *Server) handleVaultGet(w http.ResponseWriter, r *http.Request) {
	detail, err := s.vaults.Get(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	type mediaItem struct {
		ID        string    `json:"id"`
		Kind      string    `json:"kind"`
		Caption   string    `json:"caption"`
		CreatedAt time.Time `json:"created_at"`
	}
	items := make([]mediaItem, 0, len(detail.Media))
	for _, m := range detail.Media {
		items = append(items, mediaItem{ID: m.ID, Kind: string(m.Kind), Caption: m.Caption, CreatedAt: m.CreatedAt})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vault":    toVaultResponse(detail.Vault),
		"media":    items,
		"can_open": detail.CanOpen,
	})
}

func (s *Server) handleVaultList(w http.ResponseWriter, r *http.Request) {
	digest, err := s.vaults.List(r.Context(), principalID(r))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opened":        toVaultResponses(digest.Opened),
		"ready_to_open": toVaultResponses(digest.ReadyToOpen),
		"sealed":        toVaultResponses(digest.Sealed),
		"draft":         toVaultResponses(digest.Draft),
	})
}

func (s *Server) handleVaultSeal(w http.ResponseWriter, r *http.Request) {
	v, err := s.vaults.Seal(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toVaultResponse(v))
}

func (s *Server) handleVaultOpen(w http.ResponseWriter, r *http.Request) {
	v, err := s.vaults.Open(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toVaultResponse(v))
}

func (s *Server) handleVaultDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.vaults.Delete(r.Context(), principalID(r), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMediaPresign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	upload, err := s.vaults.PresignMediaUpload(r.Context(), principalID(r), r.PathValue("id"), req.Filename)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"storage_key": upload.StorageKey,
		"upload_url":  upload.UploadURL,
	})
}

func (s *Server) handleMediaAttach(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename   string `json:"filename"`
		StorageKey string `json:"storage_key"`
		Caption    string `json:"caption"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	m, err := s.vaults.AttachMedia(r.Context(), principalID(r), r.PathValue("id"), req.Filename, req.StorageKey, req.Caption)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":   m.ID,
		"kind": string(m.Kind),
	})
}

func (s *Server) handleMediaURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.vaults.MediaDownloadURL(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
