package server

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/config"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
)

// TokenVerifier maps a bearer token to the directory user it belongs to.
// Token issuance and signing live outside this service; the HTTP layer only
// needs the identity behind the credential.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (snowflake.ID, error)
}

// staticTokenVerifier accepts tokens of the form "el_<user_id>" and checks
// the id against the directory. It backs local development and tests; a
// deployment fronted by a real gateway swaps in its own verifier.
type staticTokenVerifier struct {
	directory directorydomain.Service
}

func NewTokenVerifier(cfg config.Config, directory directorydomain.Service) TokenVerifier {
	if cfg.AuthStaticTokens {
		return &staticTokenVerifier{directory: directory}
	}
	return &rejectAllVerifier{}
}

const staticTokenPrefix = "el_"

func (v *staticTokenVerifier) Verify(ctx context.Context, token string) (snowflake.ID, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, staticTokenPrefix) {
		return 0, ErrUnauthorized
	}

	raw, err := strconv.ParseInt(strings.TrimPrefix(token, staticTokenPrefix), 10, 64)
	if err != nil || raw <= 0 {
		return 0, ErrUnauthorized
	}

	user, err := v.directory.GetUser(ctx, strconv.FormatInt(raw, 10))
	if err != nil {
		if isNotFoundError(err) {
			return 0, ErrUnauthorized
		}
		return 0, err
	}

	return user.ID, nil
}

// rejectAllVerifier denies every token. Used when static tokens are turned
// off and no external verifier has been wired in.
type rejectAllVerifier struct{}

func (rejectAllVerifier) Verify(context.Context, string) (snowflake.ID, error) {
	return 0, ErrUnauthorized
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}
