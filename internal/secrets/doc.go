// Package secrets seals and opens the credentials file with
// passphrase-based age encryption.
package secrets
