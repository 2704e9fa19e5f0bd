package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adri6412/usb-vault/internal/auth"
	"github.com/adri6412/usb-vault/internal/config"
	"github.com/adri6412/usb-vault/internal/crypto"
	"github.com/adri6412/usb-vault/internal/files"
	"github.com/adri6412/usb-vault/internal/platform"
	"github.com/adri6412/usb-vault/internal/server"
	"github.com/adri6412/usb-vault/internal/store"
	"github.com/adri6412/usb-vault/internal/store/sqlite"
	"github.com/adri6412/usb-vault/internal/vault"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (built-in dev defaults when empty)")
	flag.Parse()

	logger := log.New(os.Stdout, "vaultusbd ", log.LstdFlags)

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		logger.Println("no config file given, using dev defaults")
	}

	if err := platform.DisableCoreDumps(); err != nil {
		logger.Printf("disable core dumps: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := sqlite.New(ctx, cfg.Security.DBFile)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer st.Close()

	hasher := crypto.NewPasswordHasher(crypto.Argon2Params{
		Time:        cfg.Security.Argon2TimeCost,
		Memory:      cfg.Security.Argon2MemoryCost,
		Parallelism: cfg.Security.Argon2Parallelism,
	})
	v := vault.New(hasher, store.NewFileKeyStore(cfg.Security.MasterKeyFile))
	authn := auth.NewAuthenticator(st, hasher, []byte(cfg.App.SecretKey), cfg.IdleTimeout())

	fsvc, err := files.NewService(st, v, cfg.Security.VaultDir, logger)
	if err != nil {
		logger.Fatalf("vault dir: %v", err)
	}

	if err := bootstrapAdmin(ctx, st, hasher, logger); err != nil {
		logger.Fatalf("bootstrap admin: %v", err)
	}

	// Sessions expire by token timestamp regardless; this sweep just keeps
	// the sessions table from accumulating dead rows.
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n, err := authn.CleanupExpiredSessions(ctx); err != nil {
					logger.Printf("session cleanup: %v", err)
				} else if n > 0 {
					logger.Printf("session cleanup: deactivated %d", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.App.ListenAddr,
		Handler:           server.New(cfg, st, authn, v, fsvc, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Println("shutting down")
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
		v.Lock()
	}()

	logger.Printf("listening on %s (tls=%v)", cfg.App.ListenAddr, cfg.TLS.Enabled)
	if cfg.TLS.Enabled {
		err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}

// bootstrapAdmin creates the owner account on first boot with a generated
// password printed once to the console. The appliance has exactly one owner;
// the password should be changed at first login.
func bootstrapAdmin(ctx context.Context, st store.Store, hasher *crypto.PasswordHasher, logger *log.Logger) error {
	_, err := st.GetUserByUsername(ctx, "admin")
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	raw := make([]byte, 18)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	password := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	u := &store.User{Username: "admin", PasswordHash: hash, IsActive: true}
	if err := st.CreateUser(ctx, u); err != nil {
		return err
	}
	_ = st.LogEvent(ctx, "WARN", "bootstrap", "admin account created", u.ID)
	logger.Printf("created admin account, initial password: %s (change it now)", password)
	return nil
}
