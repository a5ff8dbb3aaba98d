// Package client provides a Go client for the authd HTTP API.
//
// The client authenticates with a bearer token and supports uploading a
// user's avatar and fetching stored avatar images. Connection settings can
// be stored as named profiles in a YAML config file (~/.authd/config.yaml
// by default) and selected via AUTHD_CLI_PROFILE.
package client
