package usecase

import "errors"

var (
	errMissingRPC = errors.New("rpc url not set")
	errMissingKey = errors.New("private key not set")
)
