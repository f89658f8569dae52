package model

import "errors"

// ErrInvalidPerson is returned when a person fails field validation.
var ErrInvalidPerson = errors.New("invalid person")
