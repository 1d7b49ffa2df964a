// Package garage is the web application of a small car repair workshop:
// staff authentication plus vehicle, technician and repair records.
//
// Every staff member is a single User identified by email. The email is
// both the local login key and the key used to reconcile external
// identities, so signing in with Google or GitHub using the address of an
// existing account links that provider to the account instead of creating
// a second one.
//
// # Architecture
//
// Authentication is split into small flows that share a UserStore and a
// session.Sessions service:
//
//   - Authenticate and LocalAuth: email/password login
//   - Register and LocalAuth.HandleSignup: account creation, which also
//     logs the new account in
//   - OAuthFlow and Reconcile: provider redirect, callback and the
//     find-or-link-or-create step keyed on email
//   - App.onLogout: session invalidation
//
// App mounts these together with the workshop handlers on a gorilla/mux
// router behind session loading, method override and CSRF checks.
//
// # Basic Usage
//
//	db, _ := gormstore.Open("sqlite", "garage.db?_pragma=foreign_keys(1)")
//	_ = gormstore.AutoMigrate(db)
//	renderer, _ := web.NewRenderer()
//
//	app := &garage.App{
//	    Users:    gormstore.NewUserStore(db),
//	    Workshop: gormstore.NewWorkshopStore(db),
//	    Sessions: session.New(session.Config{}),
//	    Renderer: renderer,
//	    Clients: map[oauth2.Provider]oauth2.Client{
//	        oauth2.GitHub: oauth2.NewGithubOAuth2(id, secret, baseURL+"/login/github/callback"),
//	    },
//	    State: oauth2.NewStateSigner(secret),
//	}
//	http.ListenAndServe(":8080", app.Handler())
//
// # Store Implementations
//
// The stores package keeps users as JSON files and suits development and
// tests. stores/gorm targets PostgreSQL and SQLite, stores/gae targets
// Cloud Datastore. All of them enforce email uniqueness atomically and
// report a conflict as ErrEmailTaken.
//
// # Security
//
// Passwords are hashed with bcrypt. Accounts created through a provider
// get an unusable random password until the user sets one at
// /account/password. Logging in renews the session token and logging out
// destroys the session. OAuth state is a short lived signed token bound
// to a nonce cookie, so no server state is written before the callback.
package garage
