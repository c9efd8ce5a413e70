// Package rate provides Redis-backed fixed-window counters for login attempts.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al:  login per role and email
//   - ali: login per IP
//
// # What this package must NOT do
//
//   - Implement other flow policies (those live in internal/limiters).
//   - Be imported outside the eduAuth module.
package rate
