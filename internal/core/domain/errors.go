package domain

import "go.trai.ch/zerr"

var (
	// ErrCompileFailed is returned when the wrapped compilation pipeline fails.
	ErrCompileFailed = zerr.New("shader compilation failed")

	// ErrNoInputs is returned when a compile run is requested without any shader modules.
	ErrNoInputs = zerr.New("no input shaders specified")

	// ErrImageReadFailed is returned when a persisted cache image cannot be read.
	ErrImageReadFailed = zerr.New("failed to read cache image")

	// ErrImageWriteFailed is returned when a cache image cannot be written.
	ErrImageWriteFailed = zerr.New("failed to write cache image")

	// ErrImageDirCreateFailed is returned when the cache image directory cannot be created.
	ErrImageDirCreateFailed = zerr.New("failed to create cache image directory")

	// ErrImageCleanFailed is returned when persisted cache images cannot be removed.
	ErrImageCleanFailed = zerr.New("failed to clean cache images")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInputReadFailed is returned when a shader source file cannot be read.
	ErrInputReadFailed = zerr.New("failed to read shader source")

	// ErrOutputWriteFailed is returned when a compiled artifact cannot be written.
	ErrOutputWriteFailed = zerr.New("failed to write compiled artifact")
)
