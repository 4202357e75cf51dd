package identity

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/services"
)

// refreshSecretBytes stays well under bcrypt's 72 byte input limit once encoded
const refreshSecretBytes = 32

// Refresh tokens travel as "<token id>.<secret>". The id locates the stored
// row and the secret is checked against its bcrypt hash.
func newRefreshSecret() (string, error) {
	b := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func formatRefreshToken(id uuid.UUID, secret string) string {
	return id.String() + "." + secret
}

func parseRefreshToken(raw string) (uuid.UUID, string, error) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || secret == "" {
		return uuid.Nil, "", services.ErrInvalidToken.WithMessage("malformed refresh token")
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", services.ErrInvalidToken.WithMessage("malformed refresh token").Wrap(err)
	}
	return id, secret, nil
}
