package server

import "net/http"

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/logout", s.handleLogout)
	s.mux.HandleFunc("/api/password", s.handleChangePassword)

	s.mux.HandleFunc("/api/totp/setup", s.handleTotpSetup)
	s.mux.HandleFunc("/api/totp/enable", s.handleTotpEnable)
	s.mux.HandleFunc("/api/totp/disable", s.handleTotpDisable)

	s.mux.HandleFunc("/api/vault/unlock", s.handleUnlock)
	s.mux.HandleFunc("/api/vault/lock", s.handleLock)
	s.mux.HandleFunc("/api/vault/status", s.handleVaultStatus)

	s.mux.HandleFunc("/api/files", s.handleFiles)
	s.mux.HandleFunc("/api/files/", s.handleFileByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
