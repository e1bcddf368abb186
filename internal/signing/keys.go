package signing

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// ErrNotRSA is returned when a key file holds a key of another algorithm.
var ErrNotRSA = errors.New("signing: key is not an RSA key")

// LoadPrivateKey reads a PEM encoded RSA private key. PKCS#1, PKCS#8 and
// OpenSSH encodings are accepted; passphrase is used only when non-empty.
func LoadPrivateKey(path, passphrase string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signing: read private key: %w", err)
	}
	return ParsePrivateKey(data, passphrase)
}

// ParsePrivateKey parses PEM bytes as LoadPrivateKey does.
func ParsePrivateKey(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	var (
		raw any
		err error
	)
	if passphrase != "" {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, []byte(passphrase))
	} else {
		raw, err = ssh.ParseRawPrivateKey(data)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, errors.New("signing: private key is passphrase protected")
		}
		return nil, fmt.Errorf("signing: parse private key: %w", err)
	}
	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return key, nil
}

// LoadPublicKey reads an RSA public key stored as PEM (PKIX or PKCS#1) or
// as a single authorized_keys line.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signing: read public key: %w", err)
	}
	return ParsePublicKey(data)
}

// ParsePublicKey parses bytes as LoadPublicKey does.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return parseAuthorizedKey(data)
	}
	var (
		raw any
		err error
	)
	switch block.Type {
	case "RSA PUBLIC KEY":
		raw, err = x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		raw, err = x509.ParsePKIXPublicKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("signing: parse public key: %w", err)
	}
	key, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return key, nil
}

func parseAuthorizedKey(data []byte) (*rsa.PublicKey, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("signing: parse public key: %w", err)
	}
	cryptoPub, ok := pub.(ssh.CryptoPublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	key, ok := cryptoPub.CryptoPublicKey().(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return key, nil
}
