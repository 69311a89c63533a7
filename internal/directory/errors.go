package directory

import "errors"

// ErrSuperseded reports a list result that resolved after the filter had
// already changed. The result was discarded, never cached or returned.
var ErrSuperseded = errors.New("query superseded by a newer filter")
