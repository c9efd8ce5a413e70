// Package password hashes and verifies principal credentials.
//
// bcrypt at cost 10 is the default; argon2id (PHC string format) is available
// as an alternate algorithm. [Manager] verifies either format by inspecting the
// stored hash prefix, so switching algorithms never locks existing accounts out.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other eduAuth package.
//   - Log plaintext passwords.
package password
