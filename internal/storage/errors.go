package storage

import "errors"

var (
	// ErrPricingModelNotFound is returned when no pricing model has the id
	ErrPricingModelNotFound = errors.New("pricing model not found")

	// ErrDuplicateModelKey is returned when (engine, version, modelKey) is
	// already taken
	ErrDuplicateModelKey = errors.New("a pricing model with this engine, version and model key already exists")
)
