// Package internal groups helpers that are private to eduAuth.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: OTP, forgot-password and registration throttles
//   - rate: login throttle on Redis fixed windows
//   - config: server configuration loading (.env, YAML, environment)
//   - logging: zap logger construction
//   - uploads: local disk FileStore for profile pictures
//   - httpapi: chi router and handlers for cmd/eduauth-server
//
// # What this package must NOT do
//
//   - Export types that appear in the public eduAuth API.
//   - Be imported by any package outside the eduAuth module.
package internal
