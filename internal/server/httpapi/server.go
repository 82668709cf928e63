package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dwianugrah/keepsake/internal/logging"
	"github.com/dwianugrah/keepsake/internal/server/services"
)

// Server wires the service layer to an http.Server.
type Server struct {
	vaults    *services.VaultService
	grants    *services.GrantService
	letters   *services.LetterService
	children  *services.ChildService
	secretKey string
	logger    logging.Logger

	httpServer *http.Server
}

func NewServer(addr string, vaults *services.VaultService, grants *services.GrantService,
	letters *services.LetterService, children *services.ChildService,
	secretKey string, logger logging.Logger) *Server {

	s := &Server{
		vaults:    vaults,
		grants:    grants,
		letters:   letters,
		children:  children,
		secretKey: secretKey,
		logger:    logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/children", s.requireAuth(s.handleChildCreate))
	mux.HandleFunc("GET /api/children", s.requireAuth(s.handleChildList))
	mux.HandleFunc("GET /api/children/{id}", s.requireAuth(s.handleChildGet))
	mux.HandleFunc("PUT /api/children/{id}", s.requireAuth(s.handleChildUpdate))
	mux.HandleFunc("DELETE /api/children/{id}", s.requireAuth(s.handleChildDelete))

	mux.HandleFunc("GET /api/vaults", s.requireAuth(s.handleVaultList))
	mux.HandleFunc("POST /api/vaults", s.requireAuth(s.handleVaultCreate))
	mux.HandleFunc("GET /api/vaults/{id}", s.requireAuth(s.handleVaultGet))
	mux.HandleFunc("PUT /api/vaults/{id}", s.requireAuth(s.handleVaultUpdate))
	mux.HandleFunc("DELETE /api/vaults/{id}", s.requireAuth(s.handleVaultDelete))
	mux.HandleFunc("POST /api/vaults/{id}/seal", s.requireAuth(s.handleVaultSeal))
	mux.HandleFunc("POST /api/vaults/{id}/open", s.requireAuth(s.handleVaultOpen))
	mux.HandleFunc("POST /api/vaults/{id}/media/presign", s.requireAuth(s.handleMediaPresign))
	mux.HandleFunc("POST /api/vaults/{id}/media", s.requireAuth(s.handleMediaAttach))
	mux.HandleFunc("GET /api/media/{id}/url", s.requireAuth(s.handleMediaURL))

	mux.HandleFunc("POST /api/invites", s.requireAuth(s.handleInviteCreate))
	mux.HandleFunc("GET /api/invites", s.requireAuth(s.handleInviteList))
	mux.HandleFunc("POST /api/invites/redeem", s.requireAuth(s.handleInviteRedeem))
	mux.HandleFunc("DELETE /api/invites/{id}", s.requireAuth(s.handleInviteRevoke))

	mux.HandleFunc("POST /api/children/{id}/letters", s.requireAuth(s.handleLetterCreate))
	mux.HandleFunc("GET /api/children/{id}/letters", s.requireAuth(s.handleLetterList))
	mux.HandleFunc("GET /api/letters/{id}", s.requireAuth(s.handleLetterRead))
	mux.HandleFunc("POST /api/letters/{id}/send", s.requireAuth(s.handleLetterSend))
	mux.HandleFunc("DELETE /api/letters/{id}", s.requireAuth(s.handleLetterDelete))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
