// Package gitmirror transfers full histories between hosting platforms
// through git mirror clones and pushes executed with per-transfer SSH keys.
package gitmirror
