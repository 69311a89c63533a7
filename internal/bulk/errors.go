package bulk

import "errors"

// ErrImportInFlight is returned when an import phase is invoked while
// another preview or commit is still running.
var ErrImportInFlight = errors.New("an import is already in flight")
