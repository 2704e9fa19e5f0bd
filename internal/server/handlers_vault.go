package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adri6412/usb-vault/internal/vault"
)

type unlockReq struct {
	Password string `json:"password"`
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req unlockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !s.rlLoginIP.allow(clientIP(r)) {
		tooMany(w, 60)
		return
	}
	if err := s.vault.Unlock(req.Password); err != nil {
		if errors.Is(err, vault.ErrUnseal) {
			http.Error(w, "unlock failed", http.StatusUnauthorized)
			return
		}
		s.logger.Printf("unlock: %v", err)
		http.Error(w, "unlock failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"unlocked": true})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.vault.Lock()
	writeJSON(w, map[string]any{"unlocked": false})
}

func (s *Server) handleVaultStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"unlocked": s.vault.IsUnlocked()})
}
