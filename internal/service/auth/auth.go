package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nkiryanov/greenpoints/internal/models"
)

var ErrNoToken = errors.New("no access token in request")

type tokenParser interface {
	ParseAccess(access string) (models.Principal, error)
}

// Auth service verifies access tokens minted by the session service
// Sessions, passwords and refresh tokens live there, not here
type AuthService struct {
	tokens tokenParser
}

func NewService(tokens tokenParser) *AuthService {
	return &AuthService{tokens: tokens}
}

// Get request and return principal if it authenticated or error
func (s *AuthService) Auth(r *http.Request) (models.Principal, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return models.Principal{}, ErrNoToken
	}

	p, err := s.tokens.ParseAccess(strings.TrimSpace(token))
	if err != nil {
		return models.Principal{}, fmt.Errorf("access token rejected: %w", err)
	}

	return p, nil
}
