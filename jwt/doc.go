// Package jwt mints and verifies the signed access and refresh tokens of a
// session.
//
// Both token types share one key and one claim layout; the "typ" claim keeps
// them apart. [Manager.Parse] checks signature, type and expiry in that order
// and reports the first failure as one of [ErrMalformed], [ErrBadSignature],
// [ErrWrongType] or [ErrExpired]. Revocation is outside this package.
package jwt
