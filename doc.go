// Package eduAuth is the authentication core of an educational content
// platform. Two principal kinds, admins and users, share one OTP-gated state
// machine: credentials are checked, an OTP is acknowledged, and only a valid
// time-based code turns into a token.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Token tiers
//
// A login OTP yields a session token carrying admin_id or user_id. A
// forgot-password OTP yields a short-lived temp token carrying temp_id, which
// is accepted only by ResetPassword. Neither tier is ever accepted in place
// of the other.
//
// # Architecture boundaries
//
// eduAuth is the public surface: [Engine], [Builder], [Config], [Principal],
// [Directory] and the request/result types. Principal storage is supplied
// through [Directory] (see directory/), token and password primitives live in
// jwt/ and password/, and throttles and audit dispatch live under internal/.
//
// # What this package must NOT do
//
//   - Deliver OTP codes. Issuance is an acknowledgement only.
//   - Leak internal failures: anything that is not an [*AuthError] is logged
//     and reported as ErrInternal.
//   - Import any sub-package that re-imports eduAuth.
package eduAuth
