// Package accounts implements a user account service: signup, signin,
// logout, and token refresh over a JWT access/refresh pair, plus user
// lookup, update, and delete.
//
// The core is the token lifecycle. Every user holds at most one live
// refresh credential; refreshing rotates it, logging out revokes it, and
// access tokens are verified by signature and expiry alone.
package accounts
