// Package limiters holds the flow-specific throttles built on Redis fixed
// windows.
//
// # Limiters
//
//   - [OTPLimiter] failed OTP verifications per role and email.
//   - [ForgotPasswordLimiter] forgot-password requests per email and per IP.
//   - [RegistrationLimiter] sign-ups per email and per IP.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import eduAuth or any sibling internal package.
//   - Make policy decisions beyond counting; the engine decides consequences.
package limiters
