package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adri6412/usb-vault/internal/auth"
	"github.com/adri6412/usb-vault/internal/config"
	"github.com/adri6412/usb-vault/internal/crypto"
	"github.com/adri6412/usb-vault/internal/files"
	"github.com/adri6412/usb-vault/internal/store"
	"github.com/adri6412/usb-vault/internal/vault"
)

type memKeys struct{ blob []byte }

func (m *memKeys) LoadSealedKey() ([]byte, error) {
	if m.blob == nil {
		return nil, store.ErrNotFound
	}
	return m.blob, nil
}

func (m *memKeys) StoreSealedKey(b []byte) error {
	m.blob = append([]byte(nil), b...)
	return nil
}

type env struct {
	srv   *Server
	vault *vault.Vault
}

// newTestServer wires the whole stack over the in-memory store: one user
// ("owner" / "correct-password"), a sealed vault locked at start.
func newTestServer(t *testing.T) *env {
	t.Helper()
	cfg := config.Default()
	logger := log.New(io.Discard, "", 0)
	hasher := crypto.NewPasswordHasher(crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Parallelism: 1})

	st := store.NewMemory()
	hash, err := hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := st.CreateUser(context.Background(), &store.User{
		Username: "owner", PasswordHash: hash, IsActive: true,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	v := vault.New(hasher, &memKeys{})
	if err := v.Init("vault-password"); err != nil {
		t.Fatalf("vault init: %v", err)
	}
	v.Lock()

	authn := auth.NewAuthenticator(st, hasher, []byte(cfg.App.SecretKey), cfg.IdleTimeout())
	fsvc, err := files.NewService(st, v, t.TempDir(), logger)
	if err != nil {
		t.Fatalf("files service: %v", err)
	}
	return &env{srv: New(cfg, st, authn, v, fsvc, logger), vault: v}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "10.0.0.2:55000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *env) login(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "owner", "password": "correct-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	return resp.Token
}

func TestHealthIsPublic(t *testing.T) {
	e := newTestServer(t)
	rec := e.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	e := newTestServer(t)

	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "owner", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}

	token := e.login(t)

	rec = e.do(t, http.MethodGet, "/api/vault/status", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/vault/status", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d", rec.Code)
	}
}

func TestProtectedWithoutToken(t *testing.T) {
	e := newTestServer(t)
	for _, path := range []string{"/api/vault/status", "/api/files", "/api/logout"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: status = %d", path, rec.Code)
		}
	}
}

func TestVaultUnlockLockStatus(t *testing.T) {
	e := newTestServer(t)
	token := e.login(t)

	rec := e.do(t, http.MethodGet, "/api/vault/status", token, nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"unlocked":false`)) {
		t.Fatalf("initial status = %d: %s", rec.Code, rec.Body)
	}

	rec = e.do(t, http.MethodPost, "/api/vault/unlock", token, map[string]string{"password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong vault password status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/vault/unlock", token, map[string]string{"password": "vault-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock status = %d: %s", rec.Code, rec.Body)
	}
	if !e.vault.IsUnlocked() {
		t.Fatal("vault still locked")
	}

	rec = e.do(t, http.MethodPost, "/api/vault/lock", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lock status = %d", rec.Code)
	}
	if e.vault.IsUnlocked() {
		t.Fatal("vault still unlocked")
	}
}

func TestFilesEndToEnd(t *testing.T) {
	e := newTestServer(t)
	token := e.login(t)

	// Uploads fail while the vault is locked.
	rec := e.do(t, http.MethodPost, "/api/files", token, map[string]string{
		"name": "a.txt", "data": base64.StdEncoding.EncodeToString([]byte("hello")),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("upload while locked: status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/vault/unlock", token, map[string]string{"password": "vault-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock: %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/files", token, map[string]string{
		"name": "a.txt", "data": base64.StdEncoding.EncodeToString([]byte("hello")),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}
	var created fileMeta
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Name != "a.txt" || created.Size != 5 {
		t.Fatalf("unexpected meta: %+v", created)
	}

	rec = e.do(t, http.MethodGet, "/api/files", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Files []fileMeta `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Files) != 1 {
		t.Fatalf("listed %d files, want 1", len(list.Files))
	}

	rec = e.do(t, http.MethodGet, "/api/files/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", rec.Code, rec.Body)
	}
	var download struct {
		Name string `json:"name"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &download); err != nil {
		t.Fatalf("decode download: %v", err)
	}
	got, err := base64.StdEncoding.DecodeString(download.Data)
	if err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("content = %q", got)
	}

	rec = e.do(t, http.MethodDelete, "/api/files/"+created.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/files/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("download after delete: status = %d", rec.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestServer(t)
	body := map[string]string{"username": "owner", "password": "wrong"}

	var limited bool
	for i := 0; i < 6; i++ {
		rec := e.do(t, http.MethodPost, "/api/login", "", body)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
	}
	if !limited {
		t.Fatal("six failed logins never hit the rate limit")
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	e := newTestServer(t)
	token := e.login(t)

	rec := e.do(t, http.MethodPost, "/api/vault/unlock", token, map[string]string{"password": "vault-password"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unlock: %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/password", token, map[string]string{
		"current": "correct-password", "next": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password status = %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/password", token, map[string]string{
		"current": "correct-password", "next": "xk38#plume!Harbor",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("change status = %d: %s", rec.Code, rec.Body)
	}

	// The vault reseals under the new password.
	e.vault.Lock()
	if err := e.vault.Unlock("xk38#plume!Harbor"); err != nil {
		t.Fatalf("unlock with new password: %v", err)
	}

	rec = e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "owner", "password": "correct-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still logs in: %d", rec.Code)
	}
}
