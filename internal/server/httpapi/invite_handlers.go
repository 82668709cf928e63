package httpapi

import (
	"net/http"
	"time"

	"github.com/dwianugrah/keepsake/internal/server/models"
)

type grantResponse struct {
	ID          string     `json:"id"`
	ChildID     string     `json:"child_id"`
	InviteEmail string     `json:"invite_email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// toGrantResponse deliberately omits the invite code: it travels by mail to
// the invitee, never back to an API caller.
func toGrantResponse(g *models.Grant) grantResponse {
	return grantResponse{
		ID:          g.ID,
		ChildID:     g.ChildID,
		InviteEmail: g.InviteEmail,
		Role:        string(g.Role),
		Status:      string(g.Status),
		AcceptedAt:  g.AcceptedAt,
		CreatedAt:   g.CreatedAt,
	}
}

func (s *Server) handleInviteCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildID string `json:"child_id"`
		Email   string `json:"email"`
		Role    string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	g, err := s.grants.Invite(r.Context(), principalID(r), req.ChildID, req.Email, req.Role)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGrantResponse(g))
}

func (s *Server) handleInviteList(w http.ResponseWriter, r *http.Request) {
	list, err := s.grants.ListForOwner(r.Context(), principalID(r))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	out := make([]grantResponse, 0, len(list))
	for _, g := range list {
		out = append(out, toGrantResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInviteRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	g, err := s.grants.Redeem(r.Context(), principalID(r), req.Code)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toGrantResponse(g))
}

func (s *Server) handleInviteRevoke(w http.ResponseWriter, r *http.Request) {
	if err := s.grants.Revoke(r.Context(), principalID(r), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
