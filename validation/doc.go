// Package validation holds the stateless format checks shared by the auth flows:
// email shape, Indian mobile numbers, and required-field reporting for request
// structs.
//
// # What this package must NOT do
//
//   - Touch storage or decide business outcomes; callers map a FieldError to
//     their own error type.
package validation
