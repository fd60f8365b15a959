package model

import "time"

// AccessGrant is an entitlement to one or more frame packages. Grants are
// written exactly once by reconciliation and never mutated afterwards;
// expiry is handled by a separate sweep outside this tool.
type AccessGrant struct {
	ID            string // UUID
	UserID        string
	TransactionID *string // nil only for manually issued grants
	PackageIDs    []string
	StartDate     time.Time
	AccessEnd     time.Time // always strictly after StartDate
	IsActive      bool
	CreatedAt     time.Time
}

// Package is a purchasable frame bundle from the catalog.
type Package struct {
	ID       string
	Name     string
	IsActive bool
}
