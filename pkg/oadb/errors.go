package oadb

import "errors"

var (
	ErrNoInputFile     = errors.New("no current input file")
	ErrBadGeometryHash = errors.New("invalid geometry hash")
	ErrNoRunContext    = errors.New("event has no run number")
)
