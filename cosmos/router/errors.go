package router

import "errors"

var (
	ErrAllHostsFailed = errors.New("all hosts failed")
	ErrNoHosts        = errors.New("no hosts configured")
	ErrInvalidJSON    = errors.New("response is not valid JSON")
)
