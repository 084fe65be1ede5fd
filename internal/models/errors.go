package models

import "errors"

// ErrNotFound is the shared negative-lookup sentinel. Stores translate their
// driver's no-rows error into it so callers never import the driver to ask
// "was it missing or broken".
var ErrNotFound = errors.New("not found")
