package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/dbx"
	"github.com/dwianugrah/keepsake/internal/logging"
	"github.com/dwianugrah/keepsake/internal/server/models"
	"github.com/dwianugrah/keepsake/internal/server/repositories/children"
	"github.com/dwianugrah/keepsake/internal/server/repositories/grants"
	"github.com/dwianugrah/keepsake/internal/server/repositories/letters"
	"github.com/dwianugrah/keepsake/internal/server/repositories/media"
	"github.com/dwianugrah/keepsake/internal/server/repositories/repomanager"
	"github.com/dwianugrah/keepsake/internal/server/repositories/vaults"
)

// -------- in-memory fakes --------
//
// The fakes mirror the conditional-update semantics of the postgres
// repositories: state-guarded writes fail with the same domain errors the
// real WHERE clauses produce.

type fakeChildrenRepo struct {
	children.Repository
	byID map[string]*models.Child
	err  error
}

func (f *fakeChildrenRepo) Create(ctx context.Context, c *models.Child) error {
	if f.err != nil {
		return f.err
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeChildrenRepo) GetByID(ctx context.Context, childID string) (*models.Child, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[childID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeChildrenRepo) ListForGuardian(ctx context.Context, guardianID string) ([]*models.Child, error) {
	var out []*models.Child
	for _, c := range f.byID {
		if c.UserID == guardianID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChildrenRepo) Update(ctx context.Context, c *models.Child) error {
	f.byID[c.ID] = c
	return nil
}

func (f *fakeChildrenRepo) Delete(ctx context.Context, childID string) error {
	if _, ok := f.byID[childID]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, childID)
	return nil
}

type fakeVaultsRepo struct {
	vaults.Repository
	byID     map[string]*models.Vault
	children *fakeChildrenRepo
	err      error
}

func (f *fakeVaultsRepo) Create(ctx context.Context, v *models.Vault) error {
	if f.err != nil {
		return f.err
	}
	f.byID[v.ID] = v
	return nil
}

func (f *fakeVaultsRepo) GetForGuardian(ctx context.Context, vaultID, guardianID string) (*models.Vault, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.byID[vaultID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c, ok := f.children.byID[v.ChildID]
	if !ok || c.UserID != guardianID {
		return nil, common.ErrorNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVaultsRepo) ListForGuardian(ctx context.Context, guardianID string) ([]*models.Vault, error) {
	var out []*models.Vault
	for _, v := range f.byID {
		if c, ok := f.children.byID[v.ChildID]; ok && c.UserID == guardianID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVaultsRepo) UpdateDraft(ctx context.Context, v *models.Vault) error {
	stored, ok := f.byID[v.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if stored.SealedAt != nil {
		return common.ErrorIllegalState
	}
	f.byID[v.ID] = v
	return nil
}

func (f *fakeVaultsRepo) Seal(ctx context.Context, vaultID string, at time.Time) error {
	v, ok := f.byID[vaultID]
	if !ok {
		return common.ErrorNotFound
	}
	if v.SealedAt != nil {
		return common.ErrorIllegalState
	}
	v.SealedAt = &at
	return nil
}

func (f *fakeVaultsRepo) Open(ctx context.Context, vaultID string, at time.Time) error {
	v, ok := f.byID[vaultID]
	if !ok {
		return common.ErrorNotFound
	}
	if v.SealedAt == nil || v.OpenedAt != nil {
		return common.ErrorIllegalState
	}
	v.OpenedAt = &at
	return nil
}

func (f *fakeVaultsRepo) DeleteDraft(ctx context.Context, vaultID string) error {
	v, ok := f.byID[vaultID]
	if !ok {
		return common.ErrorNotFound
	}
	if v.SealedAt != nil {
		return common.ErrorIllegalState
	}
	delete(f.byID, vaultID)
	return nil
}

func (f *fakeVaultsRepo) WithTx(tx dbx.DBTX) vaults.Repository { return f }

type fakeMediaRepo struct {
	media.Repository
	byVault  map[string][]*models.Media
	vaults   *fakeVaultsRepo
	children *fakeChildrenRepo
}

func (f *fakeMediaRepo) AttachDraft(ctx context.Context, m *models.Media) error {
	v, ok := f.vaults.byID[m.VaultID]
	if !ok {
		return common.ErrorNotFound
	}
	if v.SealedAt != nil {
		return common.ErrorIllegalState
	}
	f.byVault[m.VaultID] = append(f.byVault[m.VaultID], m)
	return nil
}

func (f *fakeMediaRepo) ListByVault(ctx context.Context, vaultID string) ([]*models.Media, error) {
	return f.byVault[vaultID], nil
}

func (f *fakeMediaRepo) GetForGuardian(ctx context.Context, mediaID, guardianID string) (*models.Media, error) {
	for vaultID, items := range f.byVault {
		for _, m := range items {
			if m.ID != mediaID {
				continue
			}
			if _, err := f.vaults.GetForGuardian(ctx, vaultID, guardianID); err != nil {
				return nil, common.ErrorNotFound
			}
			return m, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeMediaRepo) StorageKeysByVault(ctx context.Context, vaultID string) ([]string, error) {
	var keys []string
	for _, m := range f.byVault[vaultID] {
		keys = append(keys, m.StorageKey)
	}
	return keys, nil
}

func (f *fakeMediaRepo) DeleteByVault(ctx context.Context, vaultID string) error {
	delete(f.byVault, vaultID)
	return nil
}

func (f *fakeMediaRepo) WithTx(tx dbx.DBTX) media.Repository { return f }

type fakeGrantsRepo struct {
	grants.Repository
	byID     map[string]*models.Grant
	children *fakeChildrenRepo
}

func (f *fakeGrantsRepo) Create(ctx context.Context, g *models.Grant) error {
	for _, other := range f.byID {
		if other.ChildID == g.ChildID && other.InviteEmail == g.InviteEmail && other.Status == models.GrantPending {
			return common.ErrorDuplicateInvite
		}
	}
	f.byID[g.ID] = g
	return nil
}

func (f *fakeGrantsRepo) GetByID(ctx context.Context, grantID string) (*models.Grant, error) {
	g, ok := f.byID[grantID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return g, nil
}

func (f *fakeGrantsRepo) ListForGuardian(ctx context.Context, guardianID string) ([]*models.Grant, error) {
	var out []*models.Grant
	for _, g := range f.byID {
		if c, ok := f.children.byID[g.ChildID]; ok && c.UserID == guardianID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantsRepo) HasPending(ctx context.Context, childID, email string) (bool, error) {
	for _, g := range f.byID {
		if g.ChildID == childID && g.InviteEmail == email && g.Status == models.GrantPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGrantsRepo) Redeem(ctx context.Context, code, userID string, at time.Time) (*models.Grant, error) {
	for _, g := range f.byID {
		if g.InviteCode == code && g.Status == models.GrantPending {
			g.Status = models.GrantAccepted
			g.UserID = &userID
			g.AcceptedAt = &at
			return g, nil
		}
	}
	return nil, common.ErrorInvalidInvite
}

func (f *fakeGrantsRepo) Delete(ctx context.Context, grantID string) error {
	if _, ok := f.byID[grantID]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, grantID)
	return nil
}

func (f *fakeGrantsRepo) HasAccepted(ctx context.Context, childID, userID string) (bool, error) {
	for _, g := range f.byID {
		if g.ChildID == childID && g.Status == models.GrantAccepted && g.UserID != nil && *g.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGrantsRepo) WithTx(tx dbx.DBTX) grants.Repository { return f }

type fakeLettersRepo struct {
	letters.Repository
	byID map[string]*models.ScheduledLetter
}

func (f *fakeLettersRepo) Create(ctx context.Context, l *models.ScheduledLetter) error {
	f.byID[l.ID] = l
	return nil
}

func (f *fakeLettersRepo) GetByID(ctx context.Context, letterID string) (*models.ScheduledLetter, error) {
	l, ok := f.byID[letterID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return l, nil
}

func (f *fakeLettersRepo) ListByChild(ctx context.Context, childID string) ([]*models.ScheduledLetter, error) {
	var out []*models.ScheduledLetter
	for _, l := range f.byID {
		if l.ChildID == childID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLettersRepo) MarkSent(ctx context.Context, letterID string) error {
	l, ok := f.byID[letterID]
	if !ok {
		return common.ErrorNotFound
	}
	if l.Sent {
		return common.ErrorIllegalState
	}
	l.Sent = true
	return nil
}

func (f *fakeLettersRepo) Delete(ctx context.Context, letterID, authorID string) error {
	l, ok := f.byID[letterID]
	if !ok || l.UserID != authorID {
		return common.ErrorNotFound
	}
	delete(f.byID, letterID)
	return nil
}

func (f *fakeLettersRepo) WithTx(tx dbx.DBTX) letters.Repository { return f }

type fakeRepoManager struct {
	repomanager.RepositoryManager
	c *fakeChildrenRepo
	v *fakeVaultsRepo
	m *fakeMediaRepo
	g *fakeGrantsRepo
	l *fakeLettersRepo
}

func newFakeRepoManager() *fakeRepoManager {
	c := &fakeChildrenRepo{byID: map[string]*models.Child{}}
	v := &fakeVaultsRepo{byID: map[string]*models.Vault{}, children: c}
	m := &fakeMediaRepo{byVault: map[string][]*models.Media{}, vaults: v, children: c}
	g := &fakeGrantsRepo{byID: map[string]*models.Grant{}, children: c}
	l := &fakeLettersRepo{byID: map[string]*models.ScheduledLetter{}}
	return &fakeRepoManager{c: c, v: v, m: m, g: g, l: l}
}

func (m *fakeRepoManager) Children(db dbx.DBTX) children.Repository { return m.c }
func (m *fakeRepoManager) Vaults(db dbx.DBTX) vaults.Repository     { return m.v }
func (m *fakeRepoManager) Media(db dbx.DBTX) media.Repository       { return m.m }
func (m *fakeRepoManager) Grants(db dbx.DBTX) grants.Repository     { return m.g }
func (m *fakeRepoManager) Letters(db dbx.DBTX) letters.Repository   { return m.l }

type fakeBlobStore struct {
	deleted []string
	delErr  error
	putErr  error
}

func (f *fakeBlobStore) PresignPut(ctx context.Context, key string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	return "https://blobs.test/put/" + key, nil
}

func (f *fakeBlobStore) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://blobs.test/get/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeMailer struct {
	invites []string
	letters []string
	err     error
}

func (f *fakeMailer) SendInvite(ctx context.Context, toEmail, childName, code string) error {
	if f.err != nil {
		return f.err
	}
	f.invites = append(f.invites, toEmail)
	return nil
}

func (f *fakeMailer) SendLetter(ctx context.Context, toEmail, title, content string) error {
	if f.err != nil {
		return f.err
	}
	f.letters = append(f.letters, toEmail)
	return nil
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}
