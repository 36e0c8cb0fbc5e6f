// Package httpapi provides the JSON REST client foundation shared by the
// Bitbucket, GitHub, and CircleCI collaborators. It covers authentication
// headers, request encoding, response decoding, and typed status errors.
package httpapi
