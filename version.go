package spellarvault

import (
	_ "embed"
)

// Version is the release of the service, read from the VERSION file.
//
//go:embed VERSION
var Version string
