package importer

import "errors"

// Sentinel kinds for import errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported season file")
	ErrNoFiles           = errors.New("no json files found")
)
