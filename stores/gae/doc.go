// Package gae keeps garage accounts in Google Cloud Datastore. Select it
// with GARAGE_USER_STORE=datastore and GARAGE_DATASTORE_PROJECT; the
// workshop records stay in the SQL database either way.
//
// Two kinds are written. User holds the account keyed by its id.
// UserEmail is keyed by the normalized email and points at the owning
// user; it is created in the same transaction as the User, so a second
// account with that email fails with garage.ErrEmailTaken.
//
// GARAGE_DATASTORE_NAMESPACE isolates environments sharing a project:
//
//	users, err := gae.Open(ctx, "my-project", "staging")
//	defer users.Close()
package gae
