// Package jwt issues and verifies the bearer tokens handed out after OTP
// verification.
//
// Two claim shapes share one [Claims] type: session tokens carry admin_id or
// user_id, reset-scoped tokens carry temp_id. [Manager.Verify] never returns an
// error; a nil result means the token is malformed, expired or badly signed.
package jwt
