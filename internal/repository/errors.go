package repository

import "errors"

var (
	// ErrInvalidLocation indicates a photo location rejected before fetching
	ErrInvalidLocation = errors.New("invalid photo location")

	// ErrResultNotFound indicates the classification result was not found
	ErrResultNotFound = errors.New("classification result not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
