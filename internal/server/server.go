package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/adri6412/usb-vault/internal/auth"
	"github.com/adri6412/usb-vault/internal/config"
	"github.com/adri6412/usb-vault/internal/files"
	"github.com/adri6412/usb-vault/internal/store"
	"github.com/adri6412/usb-vault/internal/vault"
)

type Server struct {
	cfg    config.Config
	mux    *http.ServeMux
	store  store.Store
	auth   *auth.Authenticator
	vault  *vault.Vault
	files  *files.Service
	logger *log.Logger

	rlLoginIP  *multiLimiter
	rlLoginID  *multiLimiter
	rlTotpUser *multiLimiter
}

func New(cfg config.Config, st store.Store, authn *auth.Authenticator, v *vault.Vault, fsvc *files.Service, logger *log.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		store:  st,
		auth:   authn,
		vault:  v,
		files:  fsvc,
		logger: logger,
	}

	perWindow := func(n int, window time.Duration) rate.Limit {
		return rate.Limit(float64(n) / window.Seconds())
	}
	s.rlLoginIP = newMultiLimiter(perWindow(10, time.Minute), 10, time.Hour)
	s.rlLoginID = newMultiLimiter(perWindow(5, time.Minute), 5, time.Hour)
	s.rlTotpUser = newMultiLimiter(perWindow(5, time.Minute), 5, 10*time.Minute)

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Printf("panic: %v", rec)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") && !s.isPublic(path) {
		auth.SessionRequired(s.auth)(s.mux).ServeHTTP(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler { return s }

func (s *Server) isPublic(path string) bool {
	switch path {
	case "/api/health", "/api/login":
		return true
	default:
		return false
	}
}
