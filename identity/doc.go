// Package identity is the vault's identity collaborator.
//
// An Authority owns accounts: it hashes passwords with bcrypt, issues HS256
// access tokens and consults a Revoker on verification. A Client wraps an
// Authenticator for a single user, persists the active session through a
// SessionStorage and publishes session-change events, which makes it a
// cybervault.IdentityProvider.
//
// Errors returned by SignIn and SignUp have messages written for end users and
// are meant to be displayed unchanged.
package identity
