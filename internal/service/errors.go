package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInstanceLimit      = errors.New("instance limit reached")
	ErrFeatureNotLicensed = errors.New("feature not licensed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrMisconfigured      = errors.New("auth config invalid")
)
