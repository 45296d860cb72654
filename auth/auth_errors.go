package auth

import "errors"

var (
	MissingCredentialsErr     = errors.New("username and password are required")
	IncompleteAuthResponseErr = errors.New("auth response is missing tokens or user")
	NotAuthenticatedErr       = errors.New("not authenticated")
)
