package client

import "errors"

var (
	// ErrConfigRequired is returned when New is called without a config.
	ErrConfigRequired = errors.New("config is required")

	// ErrTokenRequired is returned when an operation needs a bearer token
	// and none is configured.
	ErrTokenRequired = errors.New("bearer token is required")

	// ErrEmptyPath is returned when a required path argument is empty.
	ErrEmptyPath = errors.New("path is empty")

	// ErrNoProfiles is returned when the config file has no profiles.
	ErrNoProfiles = errors.New("no profiles configured")

	// ErrProfileNotFound is returned when the named profile does not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists is returned when adding a profile whose name is taken.
	ErrProfileExists = errors.New("profile already exists")
)
