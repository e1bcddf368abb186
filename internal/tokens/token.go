// Package tokens implements the three-part signed token that proves a
// user's identity without a server-side session.
//
// The signature covers the payload merged with a binding secret, the user's
// current password hash, which never appears in the serialized token.
// Changing the password therefore invalidates every earlier token.
package tokens

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agora-forum/agora/internal/signing"
)

const separator = "."

// issuedAtLayout is the wire layout of Payload.IssuedAt, always in UTC.
const issuedAtLayout = time.RFC3339Nano

// Claims identifies the subject of a token. It carries no secrets.
type Claims struct {
	UserID int64 `json:"user_id"`
}

// Header names the signature algorithm.
type Header struct {
	Alg string `json:"alg"`
}

// Payload is the signed body of a token. IssuedAt is kept in its wire form
// so verification reproduces the signed bytes exactly.
type Payload struct {
	Claims   Claims `json:"claims"`
	IssuedAt string `json:"issued_at"`
}

// boundPayload is what actually gets signed.
type boundPayload struct {
	Claims   Claims `json:"claims"`
	IssuedAt string `json:"issued_at"`
	Passhash string `json:"passhash"`
}

// Token is a parsed or freshly generated token. Obtain one from
// Codec.Generate or Parse; a literal Token never verifies.
type Token struct {
	Header    Header
	Payload   Payload
	Signature []byte

	encodedHeader  string
	encodedPayload string
}

// Claims returns the token subject.
func (t *Token) Claims() Claims {
	return t.Payload.Claims
}

// IssuedAt parses the issue timestamp.
func (t *Token) IssuedAt() (time.Time, error) {
	return parseIssuedAt(t.Payload.IssuedAt)
}

// String renders the token as base64(header).base64(payload).base64(signature).
// Parse(t.String()) yields an equal token.
func (t *Token) String() string {
	return t.encodedHeader + separator + t.encodedPayload + separator + signing.EncodeBytes(t.Signature)
}

// Parse splits and decodes a token string. Every structural problem is
// collected into the returned *Error rather than stopping at the first.
func Parse(s string) (*Token, error) {
	parts := strings.Split(s, separator)
	if len(parts) != 3 {
		return nil, newError(fmt.Errorf("%w: expected 3 parts, got %d", ErrMalformed, len(parts)))
	}

	var (
		problems []error
		tok      = &Token{encodedHeader: parts[0], encodedPayload: parts[1]}
	)

	if header, err := decodeHeader(parts[0]); err != nil {
		problems = append(problems, fmt.Errorf("%w: header: %v", ErrMalformed, err))
	} else {
		tok.Header = header
	}

	if payload, err := decodePayload(parts[1]); err != nil {
		problems = append(problems, fmt.Errorf("%w: payload: %v", ErrMalformed, err))
	} else {
		tok.Payload = payload
	}

	if parts[2] == "" {
		problems = append(problems, fmt.Errorf("%w: signature: empty", ErrMalformed))
	} else if sig, err := signing.DecodeBytes(parts[2]); err != nil {
		problems = append(problems, fmt.Errorf("%w: signature: %v", ErrMalformed, err))
	} else {
		tok.Signature = sig
	}

	if len(problems) > 0 {
		return nil, newError(problems...)
	}
	return tok, nil
}

func decodeHeader(part string) (Header, error) {
	var raw struct {
		Alg *string `json:"alg"`
	}
	if err := decodeSegment(part, &raw); err != nil {
		return Header{}, err
	}
	if raw.Alg == nil || *raw.Alg == "" {
		return Header{}, fmt.Errorf("missing alg")
	}
	return Header{Alg: *raw.Alg}, nil
}

func decodePayload(part string) (Payload, error) {
	var raw struct {
		Claims *struct {
			UserID *int64 `json:"user_id"`
		} `json:"claims"`
		IssuedAt *string `json:"issued_at"`
	}
	if err := decodeSegment(part, &raw); err != nil {
		return Payload{}, err
	}

	var missing []string
	if raw.Claims == nil {
		missing = append(missing, "claims")
	} else if raw.Claims.UserID == nil {
		missing = append(missing, "claims.user_id")
	}
	if raw.IssuedAt == nil {
		missing = append(missing, "issued_at")
	}
	if len(missing) > 0 {
		return Payload{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	if _, err := parseIssuedAt(*raw.IssuedAt); err != nil {
		return Payload{}, err
	}
	return Payload{Claims: Claims{UserID: *raw.Claims.UserID}, IssuedAt: *raw.IssuedAt}, nil
}

func decodeSegment(part string, dst any) error {
	if part == "" {
		return fmt.Errorf("empty")
	}
	data, err := signing.DecodeBytes(part)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("not a JSON object: %v", err)
	}
	return nil
}

func encodeSegment(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return signing.EncodeBytes(data), nil
}

func parseIssuedAt(s string) (time.Time, error) {
	t, err := time.Parse(issuedAtLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("issued_at: %v", err)
	}
	return t, nil
}

func formatIssuedAt(t time.Time) string {
	return t.UTC().Format(issuedAtLayout)
}
