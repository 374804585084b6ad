// Package cookie reads and writes HTTP cookies with optional HMAC-SHA256
// signatures or AES-256-GCM encryption.
//
// Signing and encryption keys are derived from each configured secret with
// HKDF-SHA256, so one secret never serves both purposes. The first secret
// writes; every secret reads, which allows key rotation.
//
// The structured session cookie is written with SetSignedJSON and read with
// GetSignedJSON. Values that must stay private, such as the trusted-device
// marker, use SetEncryptedJSON and GetEncryptedJSON.
//
//	man, err := cookie.New([]string{os.Getenv("COOKIE_SECRETS")}, cookie.WithSecure(true))
//	if err != nil {
//		return err
//	}
//	_ = man.SetSignedJSON(w, "portal_session", payload)
//
//	var p Payload
//	if err := man.GetSignedJSON(r, "portal_session", &p); err != nil {
//		// ErrCookieNotFound, ErrInvalidSignature or ErrInvalidFormat
//	}
package cookie
