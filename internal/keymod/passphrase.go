package keymod

import (
	"crypto/sha512"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passphraseIterations = 65536
	derivedKeyBytes      = 64
)

// PassphraseModule derives per-alias keys from a single daemon-wide secret
// and a per-alias salt. The same secret, alias, and salt always yield the
// same key, so nothing beyond the salt needs to be stored.
type PassphraseModule struct {
	secret []byte
}

func NewPassphraseModule(secret []byte) (*PassphraseModule, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	own := make([]byte, len(secret))
	copy(own, secret)
	return &PassphraseModule{secret: own}, nil
}

func (m *PassphraseModule) Name() string {
	return "passphrase"
}

func (m *PassphraseModule) DeriveKey(alias string, salt []byte) ([]byte, error) {
	// The alias is folded into the salt so two aliases that somehow share
	// a salt still derive distinct keys.
	mixed := make([]byte, 0, len(salt)+len(alias))
	mixed = append(mixed, salt...)
	mixed = append(mixed, alias...)
	return pbkdf2.Key(m.secret, mixed, passphraseIterations, derivedKeyBytes, sha512.New), nil
}
