// Package gate is the request gate in front of the portal.
//
// For every request it produces a Decision: forward, redirect to the login
// page (with the original path in the "redirect" parameter), or redirect an
// authenticated non-admin away from admin routes. Checks run in order:
//
//  1. public routes are forwarded without a session
//  2. the session id comes from the signed session cookie, else from an
//     "Authorization: Bearer" header; none means a login redirect
//  3. a valid demo cookie is forwarded as demo without a session lookup
//     (only when DemoEnabled is set)
//  4. the session must pass session.Manager validation
//  5. admin prefixes require the system:admin permission
//  6. MFA routes require an MFA-verified session or a trusted device,
//     otherwise the login redirect carries mfa=required
//
// Forwarded requests carry x-session-id, x-user-id, x-user-role and, for
// demo identities, x-is-demo.
package gate
