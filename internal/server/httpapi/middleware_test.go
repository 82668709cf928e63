package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwianugrah/keepsake/internal/common"
	"github.com/dwianugrah/keepsake/internal/logging"
	"github.com/dwianugrah/keepsake/internal/server/auth"
)

const testSecret = "test-secret"

func testServer() *Server {
	return &Server{
		secretKey: testSecret,
		logger:    logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	s := testServer()

	tok, err := auth.GenerateToken("user-1", []byte(testSecret), time.Hour)
	require.NoError(t, err)

	var got string
	handler := s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		got = principalID(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/vaults", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", got)
}

func TestRequireAuth_Rejections(t *testing.T) {
	s := testServer()

	expired, err := auth.GenerateToken("user-1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := s.requireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/api/vaults", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	s := testServer()

	cases := []struct {
		err    error
		status int
	}{
		{common.ErrorValidation, http.StatusBadRequest},
		{common.ErrorNotOwner, http.StatusForbidden},
		{common.ErrorNotYetUnlockable, http.StatusForbidden},
		{common.ErrorIllegalState, http.StatusConflict},
		{common.ErrorDuplicateInvite, http.StatusConflict},
		{common.ErrorInvalidInvite, http.StatusNotFound},
		{common.ErrorNotFound, http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(context.Background(), rec, s.logger, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestWriteError_InternalHidesDetail(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()

	writeError(context.Background(), rec, s.logger, errors.New("dsn=postgres://secret@host"))

	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), "internal error")
}
