// Package totp implements RFC 6238 time-based one-time passwords
// (HMAC-SHA1, 6 digits, 30 second period) for the portal's MFA step.
//
//	v := totp.NewVerifier()
//	ok, err := v.Verify(userID, user.TOTPSecret, r.FormValue("code"))
//
// A Verifier remembers the last accepted period per account and refuses
// codes from that period or earlier.
package totp
