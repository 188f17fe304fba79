// Package catalog provides read-only product and branch lookups.
// Catalog metadata is owned by an external collaborator; this service only
// needs identity, display name, and branch affiliation.
package catalog

import (
	"pharmapos/internal/core/id"
)

// Product is the catalog shape consumed by the inventory core.
type Product struct {
	ID       id.ID  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	BranchID id.ID  `db:"branch_id" json:"branchId"`
	Unit     string `db:"unit" json:"unit,omitempty"`
	Barcode  string `db:"barcode" json:"barcode,omitempty"`
}

// Branch scopes inventory and sales independently from other locations.
type Branch struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
