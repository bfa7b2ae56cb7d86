package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEncrypted is returned when an encrypted document cannot be opened with
// the configured credentials.
var ErrEncrypted = errors.New("document is encrypted")

var encryptToken = []byte("/Encrypt")

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty"  yaml:"user_password"  mapstructure:"user_password"`
	OwnerPassword string `json:"owner_password,omitempty" yaml:"owner_password" mapstructure:"owner_password"`
}

// Empty reports whether no password is set.
func (c PasswordCredentials) Empty() bool {
	return c.UserPassword == "" && c.OwnerPassword == ""
}

// IsEncrypted reports whether the trailer references an encryption
// dictionary. It only looks at the bytes and never fails.
func IsEncrypted(content []byte) bool {
	return bytes.Contains(content, encryptToken)
}

// Decrypt returns a decrypted copy of an encrypted PDF. Content without an
// encryption dictionary is returned as is. An empty user password is tried
// even when no credentials are configured, since many filings are only
// owner-locked.
func Decrypt(content []byte, creds PasswordCredentials) ([]byte, error) {
	if !IsEncrypted(content) {
		return content, nil
	}

	conf := model.NewDefaultConfiguration()
	conf.UserPW = creds.UserPassword
	conf.OwnerPW = creds.OwnerPassword

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(content), &out, conf); err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	return out.Bytes(), nil
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEncrypted) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{
		"password",
		"encrypted",
		"decrypt",
		"authentication",
		"invalid credentials",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}
