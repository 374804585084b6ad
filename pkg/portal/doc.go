// Package portal is the HTTP API of the access-control core.
//
// It authenticates users against a Directory (YAMLDirectory: bcrypt
// password hashes plus optional TOTP secrets), creates sessions and writes
// the signed session cookie the gate reads. MFA verification marks the
// session verified and can remember the device through an encrypted
// trusted-device cookie.
//
// Routes, mounted behind gate.Middleware:
//
//	POST   /auth/login                      rate limited per client IP
//	POST   /auth/logout
//	POST   /auth/mfa
//	GET    /api/me
//	GET    /api/permissions/check?action=&resource_type=&resource_id=
//	GET    /api/sessions
//	DELETE /api/sessions/{sessionID}
//	GET    /admin/api/roles
//	GET    /admin/api/audit
//	GET    /admin/api/users/{userID}/permissions
//	PUT    /admin/api/users/{userID}/roles/{role}             (DELETE removes)
//	PUT    /admin/api/users/{userID}/grants/{permission}      (DELETE revokes)
//	PUT    /admin/api/users/{userID}/denials/{permission}     (DELETE allows)
//	PUT    /admin/api/users/{userID}/resources/{type}/{id}/{permission}
//	GET    /admin/api/users/{userID}/sessions
//	DELETE /admin/api/users/{userID}/sessions
//
// Responses use a {"data": ...} or {"error": {"code": ...}} envelope.
package portal
