// Package authtest is an in-memory, cookie-based auth service that speaks
// the same HTTP surface the client expects under /auth:
//
//	GET  /auth/me        200 identity JSON, or 401
//	POST /auth/login     {email, password}; sets session cookies
//	POST /auth/register  {email, password, verification_token?}; 201 {"user": ...}
//	POST /auth/refresh   rotates the session using the refresh cookie, or 401
//	POST /auth/logout    clears cookies, always 204
//
// Passwords are stored as bcrypt hashes and session tokens are random UUIDs
// delivered in HMAC-signed, httpOnly cookies. The access cookie is scoped to
// "/" and the refresh cookie to the refresh endpoint.
//
// Tests can override any endpoint call by call with Script. A queued Reply is
// consumed by exactly one request; a Reply with Status 0 only applies its
// Delay or Hang and then falls through to the real behavior.
//
//	srv := authtest.Start(t)
//	srv.AddUser("a@b.com", "secret-pass")
//	srv.Script(authtest.EndpointMe,
//	    authtest.Reply{Status: http.StatusUnauthorized},
//	    authtest.Reply{Status: http.StatusUnauthorized},
//	)
package authtest
