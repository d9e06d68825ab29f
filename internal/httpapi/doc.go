// Package httpapi exposes the engine over JSON/HTTP.
//
// Routes:
//
//	POST /register  {"username","password","profile"}      201 | 400 | 409 | 503
//	POST /login     {"username","password"}                 200 | 400 | 401 | 503
//	POST /refresh   {"refresh_token"} or refresh cookie     200 | 401 | 503
//	POST /logout    {"refresh_token"} or refresh cookie     200 always
//	GET  /me        Authorization: Bearer <access token>    200 | 401 | 503
//
// Responses use a {"message", "data"} envelope on success and
// {"message", "errors"} on failure. Login and token failures never say which
// check failed.
package httpapi
