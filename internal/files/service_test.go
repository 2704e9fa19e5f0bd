package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/adri6412/usb-vault/internal/crypto"
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

func newTestService(t *testing.T) (*Service, *vault.Vault, *store.User, string) {
	t.Helper()
	hasher := crypto.NewPasswordHasher(crypto.Argon2Params{Time: 1, Memory: 8 * 1024, Parallelism: 1})
	v := vault.New(hasher, &memKeys{})
	if err := v.Init("pw"); err != nil {
		t.Fatalf("vault init: %v", err)
	}

	st := store.NewMemory()
	user := &store.User{Username: "owner", IsActive: true}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dir := t.TempDir()
	svc, err := NewService(st, v, dir, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, v, user, dir
}

func TestSaveOpenRoundTrip(t *testing.T) {
	svc, _, user, dir := newTestService(t)
	ctx := context.Background()
	data := []byte("quarterly numbers, do not leak")

	rec, err := svc.Save(ctx, user, "report.pdf", data)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.OriginalName != "report.pdf" || rec.Size != int64(len(data)) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.MimeType != "application/pdf" {
		t.Fatalf("mime = %s", rec.MimeType)
	}

	// Only ciphertext touches the disk, under a name unrelated to the
	// original.
	onDisk, err := os.ReadFile(filepath.Join(dir, rec.EncryptedName))
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	if bytes.Contains(onDisk, data) {
		t.Fatal("plaintext present in stored blob")
	}
	if rec.EncryptedName == "report.pdf" {
		t.Fatal("original name used on disk")
	}

	got, meta, err := svc.Open(ctx, user, rec.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(data, got) {
		t.Fatal("plaintext mismatch")
	}
	if meta.ID != rec.ID {
		t.Fatalf("meta id = %s, want %s", meta.ID, rec.ID)
	}
}

func TestOpenOtherUsersFile(t *testing.T) {
	svc, _, user, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Save(ctx, user, "mine.txt", []byte("private"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	intruder := &store.User{ID: user.ID + 1, Username: "intruder"}
	if _, _, err := svc.Open(ctx, intruder, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListAndDelete(t *testing.T) {
	svc, _, user, dir := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Save(ctx, user, "a.txt", []byte("aaa"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Save(ctx, user, "b.txt", []byte("bbb")); err != nil {
		t.Fatalf("save: %v", err)
	}

	list, err := svc.List(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d files, want 2", len(list))
	}

	if err := svc.Delete(ctx, user, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, rec.EncryptedName)); !os.IsNotExist(err) {
		t.Fatal("ciphertext still on disk after delete")
	}
	if _, _, err := svc.Open(ctx, user, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("open after delete: err = %v, want ErrNotFound", err)
	}
	list, err = svc.List(ctx, user)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("listed %d files after delete, want 1", len(list))
	}
}

func TestSaveWhileLocked(t *testing.T) {
	svc, v, user, _ := newTestService(t)
	v.Lock()
	if _, err := svc.Save(context.Background(), user, "x.txt", []byte("x")); !errors.Is(err, vault.ErrLocked) {
		t.Fatalf("err = %v, want ErrLocked", err)
	}
}
