// Package memory implements the directory repositories on top of go-memdb. Every write
// runs in a single memdb write transaction, which serialises writers and makes
// check-then-write sequences atomic.
package memory

import (
	hcmemdb "github.com/hashicorp/go-memdb"
)

const (
	tablePerson     = "person"
	tableInvitation = "invitation"
	tableSession    = "session"

	indexID       = "id"
	indexIdentity = "identity"
	indexEmail    = "email"
	indexActive   = "active"
	indexInviter  = "inviter"
)

// Store owns the in-memory database shared by the repositories of this package.
type Store struct {
	db *hcmemdb.MemDB
}

// NewStore creates an empty database with the directory schema.
func NewStore() (*Store, error) {
	db, err := hcmemdb.NewMemDB(schema())
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func schema() *hcmemdb.DBSchema {
	return &hcmemdb.DBSchema{
		Tables: map[string]*hcmemdb.TableSchema{
			tablePerson: {
				Name: tablePerson,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &hcmemdb.StringFieldIndex{Field: "ID"},
					},
					indexIdentity: {
						Name:    indexIdentity,
						Unique:  true,
						Indexer: &hcmemdb.StringFieldIndex{Field: "Identity"},
					},
					indexEmail: {
						Name:         indexEmail,
						AllowMissing: true,
						Indexer:      &hcmemdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
					indexActive: {
						Name:    indexActive,
						Indexer: &hcmemdb.BoolFieldIndex{Field: "Active"},
					},
				},
			},
			tableInvitation: {
				Name: tableInvitation,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &hcmemdb.StringFieldIndex{Field: "ID"},
					},
					indexEmail: {
						Name:    indexEmail,
						Indexer: &hcmemdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
					indexInviter: {
						Name:         indexInviter,
						AllowMissing: true,
						Indexer:      &hcmemdb.StringFieldIndex{Field: "Inviter"},
					},
				},
			},
			tableSession: {
				Name: tableSession,
				Indexes: map[string]*hcmemdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &hcmemdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
}
