package usecase

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/phenrril/quickcart/internal/adapters/storage"
	"github.com/phenrril/quickcart/internal/domain"
)

const (
	KeyToken = "token"
	KeyRole  = "role"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthUC owns the signed-in identity of one visitor. Store is the
// visitor's durable scope.
type AuthUC struct {
	API   domain.AuthAPI
	Store domain.KVStore
}

type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// decodeToken reads the claims without verifying the signature; the
// backend verifies the token on every call.
func decodeToken(tok string) (*tokenClaims, error) {
	var c tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &c); err != nil {
		return nil, errors.Join(domain.ErrMalformedToken, err)
	}
	return &c, nil
}

func (uc *AuthUC) Login(ctx context.Context, email, password string) (domain.Role, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", domain.ValidationError("Please fill in all fields")
	}
	if !emailRe.MatchString(email) {
		return "", domain.ValidationError("Please enter a valid email address")
	}

	tok, err := uc.API.Login(ctx, domain.Credentials{Email: email, Password: password})
	if err != nil {
		return "", domain.NewUserMessage("Invalid credentials. Please try again.", domain.SeverityError,
			errors.Join(domain.ErrInvalidCredentials, err))
	}
	claims, err := decodeToken(tok)
	if err != nil {
		return "", err
	}
	if len(claims.Roles) == 0 || strings.TrimSpace(claims.Roles[0]) == "" {
		return "", domain.ErrMalformedToken
	}
	role := domain.Role(strings.TrimSpace(claims.Roles[0]))

	if err := uc.Store.Set(ctx, KeyToken, []byte(tok)); err != nil {
		return "", err
	}
	if err := uc.Store.Set(ctx, KeyRole, []byte(role)); err != nil {
		return "", err
	}
	return role, nil
}

func (uc *AuthUC) Logout(ctx context.Context) error {
	if err := uc.Store.Delete(ctx, KeyToken); err != nil {
		return err
	}
	return uc.Store.Delete(ctx, KeyRole)
}

func (uc *AuthUC) Current(ctx context.Context) (*domain.Session, error) {
	tok, err := storage.GetString(ctx, uc.Store, KeyToken)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, domain.ErrUnauthenticated
	}
	role, err := storage.GetString(ctx, uc.Store, KeyRole)
	if err != nil {
		return nil, err
	}
	s := &domain.Session{Role: domain.Role(role), Token: tok}
	if c, err := decodeToken(tok); err == nil {
		s.Email = c.Subject
	}
	return s, nil
}

// Authorize permits only a stored token whose stored role is in roles.
// Callers treat every failure the same way.
func (uc *AuthUC) Authorize(ctx context.Context, roles ...domain.Role) (*domain.Session, error) {
	s, err := uc.Current(ctx)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 && !slices.Contains(roles, s.Role) {
		return nil, domain.ErrForbidden
	}
	return s, nil
}

// TokenSource is the only read path for the bearer token.
func (uc *AuthUC) TokenSource() oauth2.TokenSource {
	return storeTokenSource{store: uc.Store}
}

type storeTokenSource struct{ store domain.KVStore }

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	tok, err := storage.GetString(context.Background(), s.store, KeyToken)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, domain.ErrUnauthenticated
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
