package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/adri6412/usb-vault/internal/auth"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TotpCode string `json:"totp_code,omitempty"`
}

type loginResp struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	ip := clientIP(r)
	if !s.rlLoginIP.allow(ip) || !s.rlLoginID.allow(req.Username) {
		tooMany(w, 60)
		return
	}

	user, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if user.TOTPEnabled {
		if !s.rlTotpUser.allow(req.Username) {
			tooMany(w, 60)
			return
		}
		if err := s.auth.VerifyTOTP(user, req.TotpCode); err != nil {
			http.Error(w, "invalid code", http.StatusUnauthorized)
			return
		}
	}

	token, err := s.auth.CreateSession(r.Context(), user, ip, r.UserAgent())
	if err != nil {
		s.logger.Printf("create session: %v", err)
		http.Error(w, "session creation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, loginResp{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := s.auth.InvalidateSession(r.Context(), token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordReq struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no auth context", http.StatusUnauthorized)
		return
	}
	var req changePasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := validatePassword(req.Next); err != nil {
		http.Error(w, "weak password: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.auth.ChangePassword(r.Context(), user, req.Current, req.Next); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		s.logger.Printf("change password: %v", err)
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}

	// The sealed master key is wrapped under the login password; reseal it
	// so the vault still opens after the change. Requires the vault to be
	// unlocked, which it is on any authenticated flow that got this far
	// with files in use; if locked, the old seal stays valid until the
	// next unlock with the old password.
	if s.vault.IsUnlocked() {
		if err := s.vault.Reseal(req.Next); err != nil {
			s.logger.Printf("reseal after password change: %v", err)
			http.Error(w, "reseal failed", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, map[string]any{"ok": true})
}

type totpSetupReq struct {
	Password string `json:"password"`
}

func (s *Server) handleTotpSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no auth context", http.StatusUnauthorized)
		return
	}
	var req totpSetupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	uri, err := s.auth.SetupTOTP(r.Context(), user, req.Password, s.cfg.App.Name)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"provisioning_uri": uri})
}

type totpCodeReq struct {
	Code string `json:"code"`
}

func (s *Server) handleTotpEnable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no auth context", http.StatusUnauthorized)
		return
	}
	var req totpCodeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !s.rlTotpUser.allow(user.Username) {
		tooMany(w, 60)
		return
	}
	if err := s.auth.EnableTOTP(r.Context(), user, req.Code); err != nil {
		http.Error(w, "invalid code", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"enabled": true})
}

type totpDisableReq struct {
	Password string `json:"password"`
}

func (s *Server) handleTotpDisable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no auth context", http.StatusUnauthorized)
		return
	}
	var req totpDisableReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.auth.DisableTOTP(r.Context(), user, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"enabled": false})
}
