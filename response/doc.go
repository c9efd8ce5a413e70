// Package response is the uniform result envelope for every auth operation.
//
// A [Result] is either a success [Payload] or a [Failure]. [Write] is the only
// place that turns a Result into an HTTP status: failures become
// {"error": "..."} with their status (400 when unset) and successes become
// the payload with 200 unless a status was given. Unexpected errors never leak;
// [FromError] logs them and answers "internal server error" with 500.
package response
