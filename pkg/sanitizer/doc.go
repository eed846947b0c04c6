// Package sanitizer normalizes booking input before validation and storage.
//
// All functions are idempotent. Invalid input is returned unchanged or as an
// empty string so the validator, not the sanitizer, reports the problem.
//
// Normalization includes:
//   - Phone numbers: E.164 (+[country][number])
//   - Emails: trimmed and lower-cased
//   - Names: whitespace collapsed and trimmed
//   - Seat numbers: trimmed and upper-cased ("12a " becomes "12A")
//   - Flight ids and currencies: trimmed and upper-cased
//   - Slices: duplicates and empty values removed after normalization
package sanitizer
