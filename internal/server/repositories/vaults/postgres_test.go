package vaults

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func vaultRows(v *models.Vault) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "child_id", "title", "letter_content", "unlock_date", "unlock_occasion",
		"sealed_at", "opened_at", "created_at", "updated_at",
	}).AddRow(v.ID, v.ChildID, v.Title, v.LetterContent, v.UnlockDate, v.UnlockOccasion,
		v.SealedAt, v.OpenedAt, v.CreatedAt, v.UpdatedAt)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+vaults\s*\(id,\s*child_id,\s*title,\s*letter_content,\s*unlock_date,\s*unlock_occasion\)`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)
	mock.ExpectQuery(q).
		WithArgs("v-1", "c-1", "First steps", "dear you", sqlmock.AnyArg(), "birthday").
		WillReturnRows(rows)

	v := &models.Vault{ID: "v-1", ChildID: "c-1", Title: "First steps", LetterContent: "dear you",
		UnlockDate: time.Date(2038, 5, 1, 0, 0, 0, 0, time.UTC), UnlockOccasion: "birthday"}
	if err := repo.Create(context.Background(), v); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if v.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not populated: %+v", v)
	}
}

func TestGetForGuardian_ScopedByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+.*FROM\s+vaults\s+v\s+JOIN\s+children\s+c\s+ON\s+v\.child_id\s*=\s*c\.id\s+WHERE\s+v\.id\s*=\s*\$1\s+AND\s+c\.user_id\s*=\s*\$2`

	stored := &models.Vault{ID: "v-1", ChildID: "c-1", Title: "t",
		UnlockDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	mock.ExpectQuery(q).WithArgs("v-1", "g-1").WillReturnRows(vaultRows(stored))

	got, err := repo.GetForGuardian(context.Background(), "v-1", "g-1")
	if err != nil {
		t.Fatalf("GetForGuardian error: %v", err)
	}
	if got.ID != "v-1" || got.State() != models.VaultDraft {
		t.Fatalf("unexpected vault: %+v", got)
	}
}

func TestGetForGuardian_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("v-ghost", "g-1").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForGuardian(context.Background(), "v-ghost", "g-1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSeal_RecheckInWhereClause(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)UPDATE\s+vaults\s+SET\s+sealed_at\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+sealed_at\s+IS\s+NULL`

	at := time.Now()
	mock.ExpectExec(q).WithArgs("v-1", at).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Seal(context.Background(), "v-1", at); err != nil {
		t.Fatalf("Seal error: %v", err)
	}
}

func TestSeal_AlreadySealed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(`UPDATE\s+vaults`).WithArgs("v-1", at).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Seal(context.Background(), "v-1", at)
	if !errors.Is(err, common.ErrorIllegalState) {
		t.Fatalf("want common.ErrorIllegalState, got %v", err)
	}
}

func TestOpen_RequiresSealedAndUnopened(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)UPDATE\s+vaults\s+SET\s+opened_at\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+sealed_at\s+IS\s+NOT\s+NULL\s+AND\s+opened_at\s+IS\s+NULL`

	at := time.Now()
	mock.ExpectExec(q).WithArgs("v-1", at).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Open(context.Background(), "v-1", at); err != nil {
		t.Fatalf("Open error: %v", err)
	}
}

func TestOpen_DraftOrOpened(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(`UPDATE\s+vaults`).WithArgs("v-1", at).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Open(context.Background(), "v-1", at)
	if !errors.Is(err, common.ErrorIllegalState) {
		t.Fatalf("want common.ErrorIllegalState, got %v", err)
	}
}

func TestUpdateDraft_SealedRefused(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+vaults\s+SET\s+title`).
		WithArgs("v-1", "t", "c", sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	v := &models.Vault{ID: "v-1", Title: "t", LetterContent: "c",
		UnlockDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	err := repo.UpdateDraft(context.Background(), v)
	if !errors.Is(err, common.ErrorIllegalState) {
		t.Fatalf("want common.ErrorIllegalState, got %v", err)
	}
}

func TestDeleteDraft(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `DELETE\s+FROM\s+vaults\s+WHERE\s+id\s*=\s*\$1\s+AND\s+sealed_at\s+IS\s+NULL`

	mock.ExpectExec(q).WithArgs("v-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.DeleteDraft(context.Background(), "v-1"); err != nil {
		t.Fatalf("DeleteDraft error: %v", err)
	}

	mock.ExpectExec(q).WithArgs("v-2").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.DeleteDraft(context.Background(), "v-2"); !errors.Is(err, common.ErrorIllegalState) {
		t.Fatalf("want common.ErrorIllegalState, got %v", err)
	}
}

func TestListForGuardian(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	sealedAt := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "child_id", "title", "letter_content", "unlock_date", "unlock_occasion",
		"sealed_at", "opened_at", "created_at", "updated_at",
	}).
		AddRow("v-1", "c-1", "draft", "", time.Now(), "", nil, nil, time.Now(), time.Now()).
		AddRow("v-2", "c-1", "sealed", "", time.Now(), "", sealedAt, nil, time.Now(), time.Now())

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+vaults\s+v\s+JOIN\s+children`).
		WithArgs("g-1").WillReturnRows(rows)

	got, err := repo.ListForGuardian(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("ListForGuardian error: %v", err)
	}
	if len(got) != 2 || got[0].State() != models.VaultDraft || got[1].State() != models.VaultSealed {
		t.Fatalf("unexpected vaults: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+vaults`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Vault{ID: "v-1"})
	if err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
