package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/adri6412/usb-vault/internal/auth"
	"github.com/adri6412/usb-vault/internal/store"
	"github.com/adri6412/usb-vault/internal/vault"
)

type fileMeta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	CreatedAt int64  `json:"created_at"`
}

func toFileMeta(f *store.File) fileMeta {
	return fileMeta{
		ID:        f.ID,
		Name:      f.OriginalName,
		Size:      f.Size,
		MimeType:  f.MimeType,
		CreatedAt: f.CreatedAt.Unix(),
	}
}

type uploadReq struct {
	Name string `json:"name"`
	Data string `json:"data"` // base64
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no auth context", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := s.files.List(r.Context(), user)
		if err != nil {
			s.logger.Printf("list files: %v", err)
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		metas := make([]fileMeta, 0, len(list))
		for i := range list {
			metas = append(metas, toFileMeta(&list[i]))
		}
		writeJSON(w, map[string]any{"files": metas})

	case http.MethodPost:
		var req uploadReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			http.Error(w, "bad data encoding", http.StatusBadRequest)
			return
		}
		rec, err := s.files.Save(r.Context(), user, req.Name, data)
		if err != nil {
			s.fileError(w, "save", err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, toFileMeta(rec))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFileByID(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no auth context", http.StatusUnauthorized)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/files/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "bad file id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, rec, err := s.files.Open(r.Context(), user, id)
		if err != nil {
			s.fileError(w, "open", err)
			return
		}
		writeJSON(w, map[string]any{
			"id":   rec.ID,
			"name": rec.OriginalName,
			"data": base64.StdEncoding.EncodeToString(data),
		})

	case http.MethodDelete:
		if err := s.files.Delete(r.Context(), user, id); err != nil {
			s.fileError(w, "delete", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// fileError maps storage failures to responses without leaking whether a
// failure was a missing row or a bad ciphertext beyond what the status
// conveys.
func (s *Server) fileError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, vault.ErrLocked):
		http.Error(w, "vault is locked", http.StatusConflict)
	default:
		s.logger.Printf("files %s: %v", op, err)
		http.Error(w, "operation failed", http.StatusInternalServerError)
	}
}
