// Package signing wraps the asymmetric primitives used to sign tokens:
// RSA-PSS with SHA-256 and a maximum-length salt, plus the base64 codec
// for opaque byte buffers. It knows nothing about tokens or users.
package signing

import (
	"crypto"
	"crypto/rsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSignatureInvalid is returned for any signature that does not verify:
// wrong key, tampered message, or a structurally broken signature.
var ErrSignatureInvalid = errors.New("signing: signature invalid")

// ErrKeyMissing is returned when Sign or Verify receives a nil key.
var ErrKeyMissing = errors.New("signing: key missing")

// method signs with the largest salt the key allows so two signatures over
// the same message never match byte for byte. Verification detects the salt.
var method = &jwt.SigningMethodRSAPSS{
	SigningMethodRSA: &jwt.SigningMethodRSA{Name: "PS256", Hash: crypto.SHA256},
	Options:          &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto},
	VerifyOptions:    &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto},
}

// Algorithm is the identifier written into token headers.
func Algorithm() string {
	return method.Alg()
}

// Sign returns an RSA-PSS SHA-256 signature over message.
func Sign(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	if key == nil {
		return nil, ErrKeyMissing
	}
	return method.Sign(string(message), key)
}

// Verify checks signature against message. Every failure collapses into
// ErrSignatureInvalid.
func Verify(key *rsa.PublicKey, signature, message []byte) error {
	if key == nil {
		return ErrKeyMissing
	}
	if len(signature) == 0 {
		return ErrSignatureInvalid
	}
	if err := method.Verify(string(message), signature, key); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}
