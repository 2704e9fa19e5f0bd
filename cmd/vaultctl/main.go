package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/adri6412/usb-vault/internal/crypto"
	"github.com/adri6412/usb-vault/internal/store"
	"github.com/adri6412/usb-vault/internal/store/sqlite"
	"github.com/adri6412/usb-vault/internal/vault"
)

func main() {
	// ---- init ----
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	initKeyPath := initCmd.String("key", "/opt/vaultusb/master.key", "path to sealed master key file")

	// ---- adduser ----
	addCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addDB := addCmd.String("db", "/opt/vaultusb/vault.db", "path to database file")
	addUser := addCmd.String("user", "", "username")

	// ---- checkpass ----
	checkCmd := flag.NewFlagSet("checkpass", flag.ExitOnError)
	checkDB := checkCmd.String("db", "/opt/vaultusb/vault.db", "path to database file")
	checkUser := checkCmd.String("user", "", "username")

	// ---- cleanup ----
	cleanCmd := flag.NewFlagSet("cleanup", flag.ExitOnError)
	cleanDB := cleanCmd.String("db", "/opt/vaultusb/vault.db", "path to database file")
	cleanIdle := cleanCmd.Duration("idle", 10*time.Minute, "deactivate sessions idle longer than this")

	// ---- verifylog ----
	verifyCmd := flag.NewFlagSet("verifylog", flag.ExitOnError)
	verifyDB := verifyCmd.String("db", "/opt/vaultusb/vault.db", "path to database file")

	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "init":
		_ = initCmd.Parse(os.Args[2:])
		dieIf(cmdInit(*initKeyPath))

	case "adduser":
		_ = addCmd.Parse(os.Args[2:])
		dieIf(cmdAddUser(*addDB, *addUser))

	case "checkpass":
		_ = checkCmd.Parse(os.Args[2:])
		dieIf(cmdCheckPass(*checkDB, *checkUser))

	case "cleanup":
		_ = cleanCmd.Parse(os.Args[2:])
		dieIf(cmdCleanup(*cleanDB, *cleanIdle))

	case "verifylog":
		_ = verifyCmd.Parse(os.Args[2:])
		dieIf(cmdVerifyLog(*verifyDB))

	default:
		usage()
	}
}

func usage() {
	fmt.Print(`vaultctl commands:

  init      --key /opt/vaultusb/master.key
  adduser   --db /opt/vaultusb/vault.db --user alice
  checkpass --db /opt/vaultusb/vault.db --user alice
  cleanup   --db /opt/vaultusb/vault.db [--idle 10m]
  verifylog --db /opt/vaultusb/vault.db

Examples:
  vaultctl init --key ./master.key
  vaultctl adduser --db ./vault.db --user admin
`)
}

// cmdInit generates and seals a fresh master key. Refuses to overwrite an
// existing one; losing the old seal would orphan every encrypted file.
func cmdInit(keyPath string) error {
	keys := store.NewFileKeyStore(keyPath)
	if keys.Exists() {
		return fmt.Errorf("sealed key already exists at %s", keyPath)
	}

	password, err := promptSecret("Vault password: ")
	if err != nil {
		return err
	}
	defer crypto.Zero(password)
	confirm, err := promptSecret("Confirm: ")
	if err != nil {
		return err
	}
	defer crypto.Zero(confirm)
	if string(password) != string(confirm) {
		return errors.New("passwords do not match")
	}

	v := vault.New(crypto.NewPasswordHasher(crypto.DefaultArgon2), keys)
	if err := v.Init(string(password)); err != nil {
		return err
	}
	v.Lock()
	fmt.Println("Sealed master key written:", keyPath)
	return nil
}

func cmdAddUser(dbPath, username string) error {
	if username == "" {
		return errors.New("--user required")
	}
	ctx := context.Background()
	st, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}
	defer crypto.Zero(password)

	hasher := crypto.NewPasswordHasher(crypto.DefaultArgon2)
	hash, err := hasher.Hash(string(password))
	if err != nil {
		return err
	}
	u := &store.User{Username: username, PasswordHash: hash, IsActive: true}
	if err := st.CreateUser(ctx, u); err != nil {
		return err
	}
	fmt.Printf("Created user %s (id %d)\n", username, u.ID)
	return nil
}

func cmdCheckPass(dbPath, username string) error {
	if username == "" {
		return errors.New("--user required")
	}
	ctx := context.Background()
	st, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	u, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := crypto.ValidateRecord(u.PasswordHash); err != nil {
		return fmt.Errorf("stored record for %s: %w", username, err)
	}
	password, err := promptSecret("Password: ")
	if err != nil {
		return err
	}
	defer crypto.Zero(password)

	hasher := crypto.NewPasswordHasher(crypto.DefaultArgon2)
	if !hasher.Verify(string(password), u.PasswordHash) {
		return errors.New("password does not match")
	}
	fmt.Println("ok")
	return nil
}

func cmdCleanup(dbPath string, idle time.Duration) error {
	ctx := context.Background()
	st, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.DeactivateExpiredSessions(ctx, idle)
	if err != nil {
		return err
	}
	fmt.Printf("Deactivated %d sessions\n", n)
	return nil
}

func cmdVerifyLog(dbPath string) error {
	ctx := context.Background()
	st, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.VerifyEventChain(ctx); err != nil {
		return err
	}
	fmt.Println("system log chain intact")
	return nil
}

func promptSecret(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return b, err
}

func dieIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
