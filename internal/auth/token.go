package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// tokenNamespace tags every bearer token this appliance issues. Tokens
// keep the historical colon-separated layout
// (vaultusb:<user_id>:<session_id>:<issued_at>) with an HMAC-SHA256 tag
// appended as a fifth field, so a forged or edited token fails before any
// database lookup. The session row remains the source of truth.
const tokenNamespace = "vaultusb"

type Token struct {
	UserID    int64
	SessionID string
	IssuedAt  int64
}

func signToken(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// ComposeToken renders the signed bearer string.
func ComposeToken(secret []byte, t Token) string {
	payload := fmt.Sprintf("%s:%d:%s:%d", tokenNamespace, t.UserID, t.SessionID, t.IssuedAt)
	return payload + ":" + signToken(secret, payload)
}

// ParseToken validates the namespace, field count and signature, then
// returns the embedded fields. Any defect yields ErrSessionInvalid.
func ParseToken(secret []byte, s string) (Token, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 || parts[0] != tokenNamespace {
		return Token{}, ErrSessionInvalid
	}
	payload := strings.Join(parts[:4], ":")
	want := signToken(secret, payload)
	if !hmac.Equal([]byte(want), []byte(parts[4])) {
		return Token{}, ErrSessionInvalid
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, ErrSessionInvalid
	}
	issuedAt, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || parts[2] == "" {
		return Token{}, ErrSessionInvalid
	}
	return Token{UserID: userID, SessionID: parts[2], IssuedAt: issuedAt}, nil
}
