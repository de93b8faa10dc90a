// Package auth is the credential and session authority: it validates
// passwords, mints and revokes bearer tokens, and tracks per-user session
// validity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gira/internal/models"
	"gira/internal/storage/sqlite"
)

// TokenTTL bounds the validity of a minted bearer token.
const TokenTTL = 30 * time.Minute

var (
	// ErrEmailTaken is returned when the email collides with another active user.
	ErrEmailTaken = errors.New("email already taken")
	// ErrUsernameTaken is returned when the username collides with another active user.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUnknownEmail is returned when no active user matches the login email.
	ErrUnknownEmail = errors.New("email does not exist")
	// ErrBadCredential is returned when the password check fails.
	ErrBadCredential = errors.New("wrong credentials")

	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = errors.New("token missing")
	// ErrInvalidToken is returned when signature or format verification fails.
	ErrInvalidToken = errors.New("token invalid")
	// ErrUnknownTokenUser is returned when the token verifies but its user is gone.
	ErrUnknownTokenUser = errors.New("token user does not exist")
	// ErrTokenRevoked is returned when the exact token string is blocklisted.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrSessionInactive is returned when the user's session flag is unset.
	ErrSessionInactive = errors.New("session inactive")
)

// Claims carries the token payload: the user's email plus standard expiry.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authority issues, resolves and revokes credentials against the store.
type Authority struct {
	store  *sqlite.Store
	secret []byte
	now    func() time.Time
}

// New builds an Authority signing tokens with the given secret.
func New(store *sqlite.Store, secret string) *Authority {
	return &Authority{store: store, secret: []byte(secret), now: time.Now}
}

// Register creates a new user. Username and email must be unique among
// active users; the email collision is reported first. The checks and the
// insert share one transaction so two racing registrations cannot both pass
// the checks; the store's partial unique indexes back the same invariant.
func (a *Authority) Register(ctx context.Context, username, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	var user models.User
	err = a.store.WithTx(ctx, func(q *sqlite.Queries) error {
		if _, err := q.UserByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, sqlite.ErrNotFound) {
			return err
		}

		if _, err := q.UserByUsername(ctx, username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, sqlite.ErrNotFound) {
			return err
		}

		user, err = q.InsertUser(ctx, username, email, string(hash))
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Authenticate checks the password for an email and, on success, mints a
// time-limited bearer token and marks the user's session active. The
// session is single-slot: logging in again overwrites prior session state.
func (a *Authority) Authenticate(ctx context.Context, email, password string) (string, models.User, error) {
	user, err := a.store.UserByEmail(ctx, email)
	if errors.Is(err, sqlite.ErrNotFound) {
		return "", models.User{}, ErrUnknownEmail
	}
	if err != nil {
		return "", models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", models.User{}, ErrBadCredential
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", models.User{}, fmt.Errorf("sign token: %w", err)
	}

	if err := a.store.SetSessionActive(ctx, user.ID, true); err != nil {
		return "", models.User{}, err
	}
	user.SessionActive = true

	return signed, user, nil
}

// ResolveToken turns a bearer token into the user it identifies. The
// failure taxonomy is deliberately four-way (missing, invalid, revoked,
// inactive) even though transport collapses them to one status code.
// Checks run in a fixed order: decode, user lookup, revocation, session.
func (a *Authority) ResolveToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrMissingToken
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return models.User{}, ErrInvalidToken
	}

	user, err := a.store.UserByEmail(ctx, claims.Email)
	if errors.Is(err, sqlite.ErrNotFound) {
		return models.User{}, ErrUnknownTokenUser
	}
	if err != nil {
		return models.User{}, err
	}

	revoked, err := a.store.TokenRevoked(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	if revoked {
		return models.User{}, ErrTokenRevoked
	}

	if !user.SessionActive {
		return models.User{}, ErrSessionInactive
	}

	return user, nil
}

// Revoke blocklists the token permanently and clears the user's session
// flag. Revoking the same token twice is harmless.
func (a *Authority) Revoke(ctx context.Context, token string, user models.User) error {
	if err := a.store.InsertRevokedToken(ctx, token); err != nil {
		return err
	}
	return a.store.SetSessionActive(ctx, user.ID, false)
}

// CredentialUpdate lists the optional fields an editUser call may change.
// Empty strings mean "not supplied".
type CredentialUpdate struct {
	Username string
	Email    string
	Password string
}

// UpdateCredential applies the supplied fields in fixed order: username,
// email, password. Each field is checked for uniqueness against other
// active users and persisted in its own transaction; a conflict on a later
// field leaves earlier fields applied and aborts the rest of the call. That
// partial-apply ordering between fields is preserved observable behavior,
// not an accident to fix. The returned message names the fields that
// changed.
func (a *Authority) UpdateCredential(ctx context.Context, user models.User, update CredentialUpdate) (models.User, string, error) {
	var changed []string

	if update.Username != "" {
		err := a.store.WithTx(ctx, func(q *sqlite.Queries) error {
			other, err := q.UserByUsername(ctx, update.Username)
			if err == nil && other.ID != user.ID {
				return ErrUsernameTaken
			}
			if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
				return err
			}
			return q.UpdateUsername(ctx, user.ID, update.Username)
		})
		if err != nil {
			return user, "", err
		}
		user.Username = update.Username
		changed = append(changed, "username")
	}

	if update.Email != "" {
		err := a.store.WithTx(ctx, func(q *sqlite.Queries) error {
			other, err := q.UserByEmail(ctx, update.Email)
			if err == nil && other.ID != user.ID {
				return ErrEmailTaken
			}
			if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
				return err
			}
			return q.UpdateEmail(ctx, user.ID, update.Email)
		})
		if err != nil {
			return user, "", err
		}
		user.Email = update.Email
		changed = append(changed, "email")
	}

	if update.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(update.Password), bcrypt.DefaultCost)
		if err != nil {
			return user, "", fmt.Errorf("hash password: %w", err)
		}
		if err := a.store.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
			return user, "", err
		}
		user.Password = string(hash)
		changed = append(changed, "password")
	}

	if len(changed) == 0 {
		return user, "Nothing to update", nil
	}
	return user, "Successfully updated " + strings.Join(changed, " ") + " ", nil
}
