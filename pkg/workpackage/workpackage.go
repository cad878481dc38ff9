// Package workpackage holds the durable work-package record: a
// verifier-hashed authorization envelope binding a user, a dataset, a work
// type, and a file subset, for a validity window.
package workpackage

import (
	"context"
	"time"

	"github.com/bioarchive/workpkgsvc/pkg/dataset"
)

// WorkPackage is the persisted record created by Manager.CreateWorkPackage.
// The access token itself is never stored, only its hash (TokenHash).
type WorkPackage struct {
	ID        string           `bson:"_id" json:"id"`
	DatasetID string           `bson:"dataset_id" json:"dataset_id"`
	Type      dataset.WorkType `bson:"type" json:"type"`

	UserID                string `bson:"user_id" json:"user_id"`
	UserPublicCrypt4GHKey string `bson:"user_public_crypt4gh_key" json:"user_public_crypt4gh_key"`
	FullUserName          string `bson:"full_user_name" json:"full_user_name"`
	Email                 string `bson:"email" json:"email"`

	FileIDs []string `bson:"file_ids" json:"file_ids"`

	TokenHash string `bson:"token_hash" json:"-"`

	Created time.Time `bson:"created" json:"created"`
	Expires time.Time `bson:"expires" json:"expires"`

	// ServiceInstanceID identifies which running replica minted this
	// record, stamped from the service's own configuration at insert
	// time so records from distinct deployments are distinguishable in
	// audits.
	ServiceInstanceID string `bson:"service_instance_id" json:"service_instance_id"`
}

// Expired reports whether the work package is past its validity window at
// the given instant.
func (w WorkPackage) Expired(now time.Time) bool {
	return now.After(w.Expires)
}

// HasFile reports whether fileID is part of this work package's file set.
func (w WorkPackage) HasFile(fileID string) bool {
	for _, id := range w.FileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}

// Store persists work-package records. Records are immutable once
// inserted; the core never updates one.
type Store interface {
	Insert(ctx context.Context, wp *WorkPackage) error
	GetByID(ctx context.Context, id string) (*WorkPackage, error)
}
