// Package auth persists credential and signal key material for a session,
// keyed by session and serialized with binary-safe JSON.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow/util/keys"
)

// Blob is a byte slice that serializes as {"type":"Buffer","data":"<b64>"},
// the envelope the connector ecosystem uses for binary fields inside JSON.
type Blob []byte

type blobEnvelope struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func (b Blob) MarshalJSON() ([]byte, error) {
	return json.Marshal(blobEnvelope{
		Type: "Buffer",
		Data: base64.StdEncoding.EncodeToString(b),
	})
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	var env blobEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Type == "Buffer" {
		raw, err := base64.StdEncoding.DecodeString(env.Data)
		if err != nil {
			return fmt.Errorf("decoding buffer blob: %w", err)
		}
		*b = raw
		return nil
	}
	// Plain base64 strings appear in hand-exported credential files.
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unexpected blob encoding: %s", data)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decoding blob string: %w", err)
	}
	*b = raw
	return nil
}

// KeyPair is a curve25519 key pair.
type KeyPair struct {
	Private Blob `json:"private"`
	Public  Blob `json:"public"`
}

// SignedKeyPair is a key pair signed by the identity key.
type SignedKeyPair struct {
	KeyPair   KeyPair `json:"keyPair"`
	Signature Blob    `json:"signature"`
	KeyID     uint32  `json:"keyId"`
}

// Identity names the account the session belongs to, in both its phone
// number and linked-identity forms when known.
type Identity struct {
	ID   string `json:"id"`
	LID  string `json:"lid,omitempty"`
	Name string `json:"name,omitempty"`
}

// SignalIdentity is a trusted remote identity key.
type SignalIdentity struct {
	Identifier struct {
		Name     string `json:"name"`
		DeviceID int    `json:"deviceId"`
	} `json:"identifier"`
	IdentifierKey Blob `json:"identifierKey"`
}

// AccountSettings holds account-level toggles synced from the service.
type AccountSettings struct {
	UnarchiveChats bool `json:"unarchiveChats"`
}

// Creds is the full credential record of one session. Opaque service
// payloads are kept as raw JSON and round-tripped untouched.
type Creds struct {
	NoiseKey                 KeyPair          `json:"noiseKey"`
	PairingEphemeralKeyPair  KeyPair          `json:"pairingEphemeralKeyPair"`
	SignedIdentityKey        KeyPair          `json:"signedIdentityKey"`
	SignedPreKey             SignedKeyPair    `json:"signedPreKey"`
	RegistrationID           uint32           `json:"registrationId"`
	AdvSecretKey             string           `json:"advSecretKey"`
	ProcessedHistoryMessages []json.RawMessage `json:"processedHistoryMessages"`
	NextPreKeyID             uint32           `json:"nextPreKeyId"`
	FirstUnuploadedPreKeyID  uint32           `json:"firstUnuploadedPreKeyId"`
	AccountSyncCounter       int              `json:"accountSyncCounter"`
	AccountSettings          AccountSettings  `json:"accountSettings"`
	DeviceID                 string           `json:"deviceId,omitempty"`
	Registered               bool             `json:"registered"`
	PairingCode              string           `json:"pairingCode,omitempty"`
	LastPropHash             string           `json:"lastPropHash,omitempty"`
	RoutingInfo              Blob             `json:"routingInfo,omitempty"`
	Me                       *Identity        `json:"me,omitempty"`
	Account                  json.RawMessage  `json:"account,omitempty"`
	SignalIdentities         []SignalIdentity `json:"signalIdentities,omitempty"`
	MyAppStateKeyID          string           `json:"myAppStateKeyId,omitempty"`
	LastAccountSyncTimestamp int64            `json:"lastAccountSyncTimestamp,omitempty"`
	Platform                 string           `json:"platform,omitempty"`
}

func keyPairBlob(kp *keys.KeyPair) KeyPair {
	return KeyPair{
		Private: Blob(kp.Priv[:]),
		Public:  Blob(kp.Pub[:]),
	}
}

// InitCreds generates a fresh unregistered credential record.
func InitCreds() (*Creds, error) {
	identity := keys.NewKeyPair()
	signedPreKey := identity.CreateSignedPreKey(1)

	var regBytes [2]byte
	if _, err := rand.Read(regBytes[:]); err != nil {
		return nil, fmt.Errorf("generating registration id: %w", err)
	}
	advSecret := make([]byte, 32)
	if _, err := rand.Read(advSecret); err != nil {
		return nil, fmt.Errorf("generating adv secret: %w", err)
	}

	return &Creds{
		NoiseKey:                keyPairBlob(keys.NewKeyPair()),
		PairingEphemeralKeyPair: keyPairBlob(keys.NewKeyPair()),
		SignedIdentityKey:       keyPairBlob(identity),
		SignedPreKey: SignedKeyPair{
			KeyPair:   keyPairBlob(&signedPreKey.KeyPair),
			Signature: Blob(signedPreKey.Signature[:]),
			KeyID:     signedPreKey.KeyID,
		},
		RegistrationID:           uint32(binary.BigEndian.Uint16(regBytes[:])) & 16383,
		AdvSecretKey:             base64.StdEncoding.EncodeToString(advSecret),
		ProcessedHistoryMessages: []json.RawMessage{},
		NextPreKeyID:             1,
		FirstUnuploadedPreKeyID:  1,
		DeviceID:                 uuid.NewString(),
	}, nil
}
