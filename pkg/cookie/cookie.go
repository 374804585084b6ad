package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

const minSecretLength = 32

// HKDF info strings keep signing and encryption keys independent even when
// they come from the same secret.
var (
	signInfo    = []byte("portalgate/cookie/sign")
	encryptInfo = []byte("portalgate/cookie/encrypt")
)

// Manager reads and writes plain, signed and encrypted cookies.
// The first secret is used for writing; all secrets are accepted for
// reading so keys can be rotated without logging everyone out.
type Manager struct {
	signKeys    [][]byte
	encryptKeys [][]byte
	defaults    Attributes
}

func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	m := &Manager{
		defaults: Attributes{
			Path:     "/",
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		}.with(opts),
	}

	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		signKey, err := deriveKey(s, signInfo)
		if err != nil {
			return nil, err
		}
		encKey, err := deriveKey(s, encryptInfo)
		if err != nil {
			return nil, err
		}
		m.signKeys = append(m.signKeys, signKey)
		m.encryptKeys = append(m.encryptKeys, encKey)
	}

	return m, nil
}

func deriveKey(secret string, info []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, info), key); err != nil {
		return nil, fmt.Errorf("derive cookie key: %w", err)
	}
	return key, nil
}

// Attributes returns the defaults with opts applied.
func (m *Manager) Attributes(opts ...Option) Attributes {
	return m.defaults.with(opts)
}

func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	http.SetCookie(w, m.defaults.with(opts).cookie(name, value))
	return nil
}

func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

func (m *Manager) Delete(w http.ResponseWriter, name string) {
	c := m.defaults.cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) error {
	return m.Set(w, name, m.sign(value), opts...)
}

func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	signed, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.verify(signed)
}

func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, opts ...Option) error {
	encrypted, err := m.encrypt(value)
	if err != nil {
		return err
	}
	return m.Set(w, name, encrypted, opts...)
}

func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	encrypted, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.decrypt(encrypted)
}

// SetSignedJSON stores v as signed JSON. The payload stays readable by the
// client but cannot be altered.
func (m *Manager) SetSignedJSON(w http.ResponseWriter, name string, v any, opts ...Option) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrInvalidFormat, fmt.Errorf("marshal cookie %q: %w", name, err))
	}
	return m.SetSigned(w, name, string(data), opts...)
}

// GetSignedJSON verifies the cookie and decodes its JSON payload into dest.
func (m *Manager) GetSignedJSON(r *http.Request, name string, dest any) error {
	data, err := m.GetSigned(r, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return errors.Join(ErrInvalidFormat, err)
	}
	return nil
}

// SetEncryptedJSON stores v as encrypted JSON.
func (m *Manager) SetEncryptedJSON(w http.ResponseWriter, name string, v any, opts ...Option) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrInvalidFormat, fmt.Errorf("marshal cookie %q: %w", name, err))
	}
	return m.SetEncrypted(w, name, string(data), opts...)
}

// GetEncryptedJSON decrypts the cookie and decodes its JSON payload into dest.
func (m *Manager) GetEncryptedJSON(r *http.Request, name string, dest any) error {
	data, err := m.GetEncrypted(r, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return errors.Join(ErrInvalidFormat, err)
	}
	return nil
}

// Sign returns value in the signed cookie encoding, for carriers other than
// a Set-Cookie header.
func (m *Manager) Sign(value string) string {
	return m.sign(value)
}

// Verify checks a value produced by Sign or SetSigned.
func (m *Manager) Verify(signed string) (string, error) {
	return m.verify(signed)
}

func (m *Manager) sign(value string) string {
	mac := hmac.New(sha256.New, m.signKeys[0])
	mac.Write([]byte(value))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return base64.RawURLEncoding.EncodeToString([]byte(value)) + "." + signature
}

func (m *Manager) verify(signed string) (string, error) {
	encodedValue, signature, ok := strings.Cut(signed, ".")
	if !ok {
		return "", ErrInvalidFormat
	}

	value, err := base64.RawURLEncoding.DecodeString(encodedValue)
	if err != nil {
		return "", ErrInvalidFormat
	}

	for _, key := range m.signKeys {
		mac := hmac.New(sha256.New, key)
		mac.Write(value)
		expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

		if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1 {
			return string(value), nil
		}
	}

	return "", ErrInvalidSignature
}

func (m *Manager) encrypt(value string) (string, error) {
	gcm, err := newGCM(m.encryptKeys[0])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// nonce || ciphertext
	ciphertext := gcm.Seal(nonce, nonce, []byte(value), nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

func (m *Manager) decrypt(encrypted string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrInvalidFormat
	}

	for _, key := range m.encryptKeys {
		gcm, err := newGCM(key)
		if err != nil {
			continue
		}
		if len(data) < gcm.NonceSize() {
			return "", ErrInvalidFormat
		}

		nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
		if plaintext, err := gcm.Open(nil, nonce, ciphertext, nil); err == nil {
			return string(plaintext), nil
		}
	}

	return "", ErrDecryptionFailed
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
