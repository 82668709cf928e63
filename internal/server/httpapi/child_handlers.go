package httpapi

import (
	"net/http"
	"time"

	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/services"
)

type childRequest struct {
	Name      string `json:"name"`
	DOB       string `json:"dob"`
	Gender    string `json:"gender"`
	BloodType string `json:"blood_type"`
	Notes     string `json:"notes"`
	PhotoURL  string `json:"photo_url"`
}

type childResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DOB       string    `json:"dob"`
	Gender    string    `json:"gender"`
	BloodType string    `json:"blood_type"`
	Notes     string    `json:"notes"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
}

func toChildResponse(c *models.Child) childResponse {
	return childResponse{
		ID:        c.ID,
		Name:      c.Name,
		DOB:       c.DOB.Format(time.DateOnly),
		Gender:    c.Gender,
		BloodType: c.BloodType,
		Notes:     c.Notes,
		PhotoURL:  c.PhotoURL,
		CreatedAt: c.CreatedAt,
	}
}

func (s *Server) childInputFromRequest(w http.ResponseWriter, r *http.Request) (*services.ChildInput, bool) {
	var req childRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return nil, false
	}
	dob, err := parseDate(req.DOB)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return nil, false
	}
	return &services.ChildInput{
		Name:      req.Name,
		DOB:       dob,
		Gender:    req.Gender,
		BloodType: req.BloodType,
		Notes:     req.Notes,
		PhotoURL:  req.PhotoURL,
	}, true
}

func (s *Server) handleChildCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.childInputFromRequest(w, r)
	if !ok {
		return
	}

	c, err := s.children.Create(r.Context(), principalID(r), *in)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChildResponse(c))
}

func (s *Server) handleChildList(w http.ResponseWriter, r *http.Request) {
	list, err := s.children.List(r.Context(), principalID(r))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	out := make([]childResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toChildResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChildGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.children.Get(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toChildResponse(c))
}

func (s *Server) handleChildUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.childInputFromRequest(w, r)
	if !ok {
		return
	}

	c, err := s.children.Update(r.Context(), principalID(r), r.PathValue("id"), *in)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toChildResponse(c))
}

func (s *Server) handleChildDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.children.Delete(r.Context(), principalID(r), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
