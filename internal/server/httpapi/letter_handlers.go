package httpapi

import (
	"net/http"
	"time"

	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/services"
)

type letterResponse struct {
	ID             string    `json:"id"`
	ChildID        string    `json:"child_id"`
	Title          string    `json:"title"`
	Content        string    `json:"content,omitempty"`
	UnlockDate     string    `json:"unlock_date"`
	UnlockOccasion string    `json:"unlock_occasion"`
	Unlocked       bool      `json:"unlocked"`
	Sent           bool      `json:"sent"`
	CreatedAt      time.Time `json:"created_at"`
}

func toLetterResponse(l *models.ScheduledLetter, unlocked bool) letterResponse {
	return letterResponse{
		ID:             l.ID,
		ChildID:        l.ChildID,
		Title:          l.Title,
		Content:        l.Content,
		UnlockDate:     l.UnlockDate.Format(time.DateOnly),
		UnlockOccasion: l.UnlockOccasion,
		Unlocked:       unlocked,
		Sent:           l.Sent,
		CreatedAt:      l.CreatedAt,
	}
}

func (s *Server) handleLetterCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title          string `json:"title"`
		Content        string `json:"content"`
		UnlockDate     string `json:"unlock_date"`
		UnlockOccasion string `json:"unlock_occasion"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	unlockDate, err := parseDate(req.UnlockDate)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	l, err := s.letters.Create(r.Context(), principalID(r), r.PathValue("id"), services.LetterInput{
		Title:          req.Title,
		Content:        req.Content,
		UnlockDate:     unlockDate,
		UnlockOccasion: req.UnlockOccasion,
	})
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLetterResponse(l, false))
}

func (s *Server) handleLetterList(w http.ResponseWriter, r *http.Request) {
	views, err := s.letters.List(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	out := make([]letterResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toLetterResponse(v.Letter, v.Unlocked))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLetterRead(w http.ResponseWriter, r *http.Request) {
	l, err := s.letters.Read(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toLetterResponse(l, true))
}

func (s *Server) handleLetterSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}

	if err := s.letters.Send(r.Context(), principalID(r), r.PathValue("id"), req.Email); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleLetterDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.letters.Delete(r.Context(), principalID(r), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
