// Package parsers imports all parser packages to trigger their init() registration.
// Import this package for side effects only.
package parsers

import (
	// Import all parser packages to register them with the registry.
	_ "bcbp_parser/internal/parsers/boardingpass"
	_ "bcbp_parser/internal/parsers/unrecognised"
)
