package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	keyringService = "duanju"
	keyringUser    = "api_token"

	tokenFileName   = "token"
	sessionFileName = "session.yaml"
)

var (
	ErrNoToken = errors.New("not authenticated, run: duanju auth --token <token>")
)

// Session carries the signed-in user's context between commands. The token
// is never written to the preferences file.
type Session struct {
	Token     string    `json:"-" yaml:"-"`
	GradeID   string    `json:"grade_id,omitempty" yaml:"grade_id,omitempty"`
	LastSkill string    `json:"last_skill,omitempty" yaml:"last_skill,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// RequireToken returns the token or ErrNoToken.
func (s *Session) RequireToken() (string, error) {
	if !s.Authenticated() {
		return "", ErrNoToken
	}
	return s.Token, nil
}

// Store persists sessions under a directory. The token goes to the OS
// keychain when one is available and to a 0600 file otherwise.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("session dir required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "error creating session dir: %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (st *Store) Dir() string {
	return st.dir
}

// Load reads the session. A missing session is not an error; the returned
// Session is simply unauthenticated.
func Load(st *Store) (*Session, error) {
	s := &Session{}

	b, err := os.ReadFile(st.sessionPath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, s); err != nil {
			return nil, errors.Wrapf(err, "error parsing session file: %s", st.sessionPath())
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "error reading session file: %s", st.sessionPath())
	}

	token, err := st.getToken()
	if err != nil {
		return nil, err
	}
	s.Token = token

	return s, nil
}

// Save writes the preferences and, when set, the token.
func (s *Session) Save(st *Store) error {
	if s.Token != "" {
		if err := st.saveToken(s.Token); err != nil {
			return err
		}
	}

	s.UpdatedAt = time.Now().UTC()
	b, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "error marshaling session")
	}
	if err := os.WriteFile(st.sessionPath(), b, 0600); err != nil {
		return errors.Wrapf(err, "error writing session file: %s", st.sessionPath())
	}
	return nil
}

// Clear removes the token and the preferences.
func Clear(st *Store) error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Debug("keychain delete failed", "error", err)
	}
	for _, p := range []string{st.tokenPath(), st.sessionPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "error removing: %s", p)
		}
	}
	return nil
}

func (st *Store) saveToken(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return st.saveTokenFile(token)
	}

	// remove file left by an earlier fallback
	os.Remove(st.tokenPath())

	return nil
}

func (st *Store) getToken() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	token, err = st.getTokenFile()
	if err != nil || token == "" {
		return "", err
	}

	if migrateErr := keyring.Set(keyringService, keyringUser, token); migrateErr == nil {
		slog.Info("migrated token from file to OS keychain")
		os.Remove(st.tokenPath())
	}

	return token, nil
}

func (st *Store) saveTokenFile(token string) error {
	if err := os.WriteFile(st.tokenPath(), []byte(token), 0600); err != nil {
		return errors.Wrapf(err, "error writing token file: %s", st.tokenPath())
	}
	return nil
}

func (st *Store) getTokenFile() (string, error) {
	b, err := os.ReadFile(st.tokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "reading token file %s", st.tokenPath())
	}
	return strings.TrimSpace(string(b)), nil
}

func (st *Store) tokenPath() string {
	return filepath.Join(st.dir, tokenFileName)
}

func (st *Store) sessionPath() string {
	return filepath.Join(st.dir, sessionFileName)
}
