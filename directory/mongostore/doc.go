// Package mongostore is the MongoDB eduAuth.Directory. Admins and users live
// in separate collections ("admins", "users") with ObjectID ids.
//
// Call EnsureIndexes once at start-up. Email and mobile are unique among
// documents with is_deleted false, so a soft-deleted account does not block
// re-registration.
package mongostore
