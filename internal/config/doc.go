// Package config defines the tool's typed configuration: source and
// destination host credentials, CI token and organization identifiers, and
// the SSH keys used for mirror transfers.
package config
