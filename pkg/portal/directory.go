package portal

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// User is a portal account.
type User struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	FirmID       string `yaml:"firm_id"`
	PasswordHash string `yaml:"password_hash"`
	TOTPSecret   string `yaml:"totp_secret"`
	Disabled     bool   `yaml:"disabled"`
}

// MFAEnrolled reports whether the user has a TOTP secret.
func (u User) MFAEnrolled() bool {
	return u.TOTPSecret != ""
}

// Directory authenticates and looks up users.
type Directory interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
	User(ctx context.Context, id string) (User, error)
}

// YAMLDirectory is a read-only Directory loaded from a YAML file of the form
//
//	users:
//	  - id: u-1
//	    email: lp@example.com
//	    role: investor
//	    password_hash: $2a$10$...
type YAMLDirectory struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

// dummyHash keeps the cost of a failed lookup close to a failed password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("portalgate-dummy"), bcrypt.MinCost)

// NewYAMLDirectory loads a directory from path.
func NewYAMLDirectory(path string) (*YAMLDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidDirectory, err)
	}
	defer f.Close()
	return NewYAMLDirectoryFromReader(f)
}

// NewYAMLDirectoryFromReader loads a directory from r. Ids and emails must
// be unique; emails are matched case-insensitively.
func NewYAMLDirectoryFromReader(r io.Reader) (*YAMLDirectory, error) {
	var doc struct {
		Users []User `yaml:"users"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidDirectory, err)
	}

	d := &YAMLDirectory{
		byID:    make(map[string]User, len(doc.Users)),
		byEmail: make(map[string]string, len(doc.Users)),
	}
	for _, u := range doc.Users {
		u.ID = strings.TrimSpace(u.ID)
		email := normalizeEmail(u.Email)
		if u.ID == "" || email == "" {
			return nil, errors.Join(ErrInvalidDirectory, errors.New("user id and email are required"))
		}
		if _, dup := d.byID[u.ID]; dup {
			return nil, errors.Join(ErrInvalidDirectory, errors.New("duplicate user id "+u.ID))
		}
		if _, dup := d.byEmail[email]; dup {
			return nil, errors.Join(ErrInvalidDirectory, errors.New("duplicate email "+email))
		}
		d.byID[u.ID] = u
		d.byEmail[email] = u.ID
	}
	return d, nil
}

func (d *YAMLDirectory) Authenticate(_ context.Context, email, password string) (User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[normalizeEmail(email)]
	u := d.byID[id]
	d.mu.RUnlock()

	if !ok || u.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if u.Disabled {
		return User{}, ErrUserDisabled
	}
	return u, nil
}

func (d *YAMLDirectory) User(_ context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// HashPassword returns a bcrypt hash suitable for the directory file.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
