package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/logging"
	"github.com/dwianugrah/keepsake/internal/server/mailer"
	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/repositories/repomanager"
)

// LetterService handles scheduled letters: text gated purely by an unlock
// date, with no sealing step and no media.
type LetterService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	mail   mailer.Mailer
	clock  Clock
	logger logging.Logger
}

func NewLetterService(db *sql.DB, repos repomanager.RepositoryManager, mail mailer.Mailer,
	clock Clock, logger logging.Logger) *LetterService {
	return &LetterService{db: db, repos: repos, mail: mail, clock: clock, logger: logger}
}

// LetterInput carries caller-provided letter fields.
type LetterInput struct {
	Title          string
	Content        string
	UnlockDate     time.Time
	UnlockOccasion string
}

// LetterView is a letter as shown to a reader. Content is withheld while
// the letter is still locked.
type LetterView struct {
	Letter   *models.ScheduledLetter
	Unlocked bool
}

// Create schedules a new letter for one of the principal's children.
func (s *LetterService) Create(ctx context.Context, principalID, childID string, in LetterInput) (*models.ScheduledLetter, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" || in.UnlockDate.IsZero() {
		return nil, common.ErrorValidation
	}
	if _, err := requireChildOwner(ctx, s.repos.Children(s.db), childID, principalID); err != nil {
		return nil, err
	}

	l := &models.ScheduledLetter{
		ID:             uuid.NewString(),
		ChildID:        childID,
		UserID:         principalID,
		Title:          strings.TrimSpace(in.Title),
		Content:        in.Content,
		UnlockDate:     models.DateOnly(in.UnlockDate),
		UnlockOccasion: in.UnlockOccasion,
	}
	if err := s.repos.Letters(s.db).Create(ctx, l); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "letter scheduled", "letter_id", l.ID, "unlock_date", l.UnlockDate.Format(time.DateOnly))
	return l, nil
}

// requireReader checks the principal may read the letter's child records.
// Lack of access is reported as ErrorNotFound so outsiders cannot tell a
// hidden letter from a missing one.
func (s *LetterService) requireReader(ctx context.Context, principalID string, l *models.ScheduledLetter) error {
	child, err := s.repos.Children(s.db).GetByID(ctx, l.ChildID)
	if err != nil {
		return err
	}
	if child.UserID == principalID {
		return nil
	}
	ok, err := s.repos.Grants(s.db).HasAccepted(ctx, l.ChildID, principalID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

// Read returns the letter content, but only on or after the unlock date.
// Before that the caller gets ErrorNotYetUnlockable, never the text.
func (s *LetterService) Read(ctx context.Context, principalID, letterID string) (*models.ScheduledLetter, error) {
	l, err := s.repos.Letters(s.db).GetByID(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if err := s.requireReader(ctx, principalID, l); err != nil {
		return nil, err
	}
	if !l.Unlocked(s.clock.Now()) {
		return nil, common.ErrorNotYetUnlockable
	}
	return l, nil
}

// List returns the child's letters for an authorized reader, blanking the
// content of still-locked ones.
func (s *LetterService) List(ctx context.Context, principalID, childID string) ([]*LetterView, error) {
	child, err := s.repos.Children(s.db).GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child.UserID != principalID {
		ok, err := s.repos.Grants(s.db).HasAccepted(ctx, childID, principalID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.ErrorNotFound
		}
	}

	all, err := s.repos.Letters(s.db).ListByChild(ctx, childID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	views := make([]*LetterView, 0, len(all))
	for _, l := range all {
		unlocked := l.Unlocked(now)
		if !unlocked {
			copied := *l
			copied.Content = ""
			l = &copied
		}
		views = append(views, &LetterView{Letter: l, Unlocked: unlocked})
	}
	return views, nil
}

// Send emails an unlocked letter to a recipient and marks it sent. Sending
// twice fails with ErrorIllegalState; sending a locked letter fails the
// same way reading it does.
func (s *LetterService) Send(ctx context.Context, principalID, letterID, toEmail string) error {
	toEmail = strings.ToLower(strings.TrimSpace(toEmail))
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return common.ErrorValidation
	}

	l, err := s.repos.Letters(s.db).GetByID(ctx, letterID)
	if err != nil {
		return err
	}
	if l.UserID != principalID {
		return common.ErrorNotFound
	}
	if !l.Unlocked(s.clock.Now()) {
		return common.ErrorNotYetUnlockable
	}

	if err := s.repos.Letters(s.db).MarkSent(ctx, letterID); err != nil {
		return err
	}
	if err := s.mail.SendLetter(ctx, toEmail, l.Title, l.Content); err != nil {
		s.logger.Warn(ctx, "letter mail failed", "letter_id", letterID, "error", err.Error())
	}

	s.logger.Info(ctx, "letter sent", "letter_id", letterID)
	return nil
}

// Delete removes a letter. Author only; anyone else sees ErrorNotFound.
func (s *LetterService) Delete(ctx context.Context, principalID, letterID string) error {
	return s.repos.Letters(s.db).Delete(ctx, letterID, principalID)
}
