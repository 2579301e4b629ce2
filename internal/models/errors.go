package models

import "errors"

// Lookup errors returned by repositories and listing sources
var (
	ErrAssetNotFound   = errors.New("asset not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrListingNotFound = errors.New("listing not found")
)

// Write errors returned by repositories
var (
	ErrAssetExists    = errors.New("asset already exists")
	ErrOrderExists    = errors.New("order already exists")
	ErrOrderFinalized = errors.New("order is done and cannot change")
)
