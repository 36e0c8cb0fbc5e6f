// Package credentials stages SSH key material into a private temporary
// directory for the duration of a mirror transfer and removes it afterwards.
package credentials
