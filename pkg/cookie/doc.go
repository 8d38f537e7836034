// Package cookie writes and reads HMAC-signed HTTP cookies.
//
// It is the server half of the ambient credential: pkg/authtest issues its
// session and refresh tokens through a Manager so that tampered or foreign
// cookies are rejected with ErrInvalidSignature. Several secrets may be given;
// the first signs, all of them verify, which allows key rotation.
//
//	m, err := cookie.New([]string{secret}, cookie.WithPath("/"))
//	_ = m.SetSigned(w, "session", token, cookie.WithMaxAge(900))
//	token, err := m.GetSigned(r, "session")
package cookie
