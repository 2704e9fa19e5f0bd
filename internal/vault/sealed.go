package vault

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hexBytes serializes a byte sequence as a lowercase hex JSON string,
// matching the container written by earlier appliance firmware.
type hexBytes []byte

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *hexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// SealedKey is the persisted, password-protected form of the master key.
// Field names and hex encoding are a compatibility contract with sealed
// blobs already on disk.
type SealedKey struct {
	Salt  hexBytes `json:"salt"`
	Nonce hexBytes `json:"nonce"`
	Data  hexBytes `json:"data"`
}

func (s SealedKey) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSealedKey(b []byte) (SealedKey, error) {
	var s SealedKey
	if err := json.Unmarshal(b, &s); err != nil {
		return SealedKey{}, fmt.Errorf("vault: decode sealed key: %w", err)
	}
	return s, nil
}
