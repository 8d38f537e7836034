// Package authclient manages the authentication lifecycle of a client whose
// credentials live in HTTP-only cookies it cannot read.
//
// The Manager resolves the current identity at startup (renewing the session
// once if needed, under a single timeout), exposes Login, Register and Logout
// flows, and renews the session periodically while somebody is signed in.
// State lives in an authstate.Store; every write is tagged with a generation
// so a slow request can never overwrite the result of a newer one.
//
//	client, err := cfg.NewTransport()
//	if err != nil {
//		return err
//	}
//	m := authclient.New(client, authclient.WithConfig(cfg), authclient.WithLogger(log))
//	defer m.Close()
//
//	if _, err := m.Initialize(ctx); err != nil {
//		return err
//	}
//	if !m.IsAuthenticated() {
//		err = m.Login(ctx, authclient.Credentials{Email: email, Password: pw})
//	}
//
// Subscribe delivers KindSignedIn and KindRegistrationComplete notifications.
package authclient
