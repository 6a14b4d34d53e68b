package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthenticationError is returned for unknown users, wrong secrets and
// invalid tokens alike.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return "Credenciales inválidas"
	}
	return e.Reason
}

var errInvalidCredentials = &AuthenticationError{}

type Verifier interface {
	Verify(ctx context.Context, username, secret string) error
}

var DefaultUsers = map[string]string{
	"admin": "1234",
	"user":  "abcd",
}

// StaticVerifier checks against a fixed set of users. Only bcrypt hashes of
// the secrets are kept in memory.
type StaticVerifier struct {
	hashes map[string][]byte
	decoy  []byte
}

var _ Verifier = (*StaticVerifier)(nil)

// NewStaticVerifier hashes every secret with the given bcrypt cost; cost <= 0
// selects bcrypt.DefaultCost.
func NewStaticVerifier(users map[string]string, cost int) (*StaticVerifier, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}

	v := &StaticVerifier{hashes: make(map[string][]byte, len(users))}
	for name, secret := range users {
		h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
		if err != nil {
			return nil, fmt.Errorf("hash secret for %q: %w", name, err)
		}
		v.hashes[name] = h
	}

	decoy, err := bcrypt.GenerateFromPassword([]byte("decoy"), cost)
	if err != nil {
		return nil, err
	}
	v.decoy = decoy
	return v, nil
}

func (v *StaticVerifier) Verify(ctx context.Context, username, secret string) error {
	h, ok := v.hashes[username]
	if !ok {
		// same amount of work as a known user
		_ = bcrypt.CompareHashAndPassword(v.decoy, []byte(secret))
		return errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(h, []byte(secret)); err != nil {
		return errInvalidCredentials
	}
	return nil
}

func (v *StaticVerifier) Usernames() []string {
	out := make([]string, 0, len(v.hashes))
	for name := range v.hashes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func ParseUsers(entries []string) (map[string]string, error) {
	users := make(map[string]string, len(entries))
	for _, item := range entries {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, secret, ok := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || secret == "" {
			return nil, fmt.Errorf("bad user entry %q, want name:secret", item)
		}
		users[name] = secret
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no users configured")
	}
	return users, nil
}
