package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("person not found")
	ErrAlreadyExists  = errors.New("person already exists")
	ErrRejected       = errors.New("write rejected by store")
	ErrUnknownDriver  = errors.New("unknown database driver")
	ErrStoreNotOpened = errors.New("store not opened")
)
