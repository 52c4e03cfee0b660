package sessiontest

import "errors"

var ErrStoreUnavailable = errors.New("store unavailable")
