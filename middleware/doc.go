// Package middleware adapts eduAuth.Engine token checks to net/http.
//
// # Guards
//
//   - [RequireSession]: the token must be a session token for the role.
//   - [RequireTemp]: the token must be a reset-only temp token.
//   - [Guard]: the underlying form taking an explicit tier.
//
// Each guard reads the Authorization header, calls Engine.AuthenticateSession
// or Engine.AuthenticateTemp, and stores the resolved principal in the request
// context. Any failure is an immediate 401 with no envelope.
//
// This package never parses tokens or touches the directory itself.
package middleware
