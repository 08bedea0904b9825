package main

import "errors"

// ErrStartupValidation is returned by serve when the daemon cannot start
// because of invalid or incomplete configuration (§6: exit code 1).
var ErrStartupValidation = errors.New("startup validation failed")
