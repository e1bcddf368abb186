package signing

import "encoding/base64"

// encoding rejects non-canonical padding bits so that a changed character
// always changes the decoded bytes.
var encoding = base64.StdEncoding.Strict()

// EncodeBytes returns the standard base64 form of data.
func EncodeBytes(data []byte) string {
	return encoding.EncodeToString(data)
}

// DecodeBytes reverses EncodeBytes.
func DecodeBytes(data string) ([]byte, error) {
	return encoding.DecodeString(data)
}
