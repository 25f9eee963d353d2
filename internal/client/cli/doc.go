// Package cli is the interactive desktop client of the contact directory's
// auth core. It runs the same services as the HTTP server against a local
// store and prints delivered codes to the console.
//
// Typical flow: register, verify with the emailed code, request a PIN with
// "pin", then "login" with it. Admin commands (users, stats, promote, demote,
// delete) need a logged-in admin session.
package cli
