// Package mongostore is the Mongo-backed implementation of
// workpackage.Store.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bioarchive/workpkgsvc/pkg/errors"
	"github.com/bioarchive/workpkgsvc/pkg/workpackage"
)

// Store is a workpackage.Store backed by a single Mongo collection.
type Store struct {
	coll *mongo.Collection
}

// New returns a Store backed by the work_packages_collection collection of db.
func New(db *mongo.Database) *Store {
	return &Store{coll: db.Collection("work_packages_collection")}
}

// Insert writes wp. Work packages are immutable once inserted; there is no
// corresponding Update.
func (s *Store) Insert(ctx context.Context, wp *workpackage.WorkPackage) error {
	if _, err := s.coll.InsertOne(ctx, wp); err != nil {
		return errors.Wrapf(err, "inserting work package %s", wp.ID)
	}
	return nil
}

// GetByID returns the work package for id, or nil if none exists.
func (s *Store) GetByID(ctx context.Context, id string) (*workpackage.WorkPackage, error) {
	var wp workpackage.WorkPackage
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&wp)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching work package %s", id)
	}
	return &wp, nil
}

// Sweep deletes every work package whose expires field is before now,
// returning the number of records removed. It is not part of the core
// state machine; callers that prefer relying on a Mongo TTL index instead
// never need to invoke it.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires": bson.M{"$lt": now}})
	if err != nil {
		return 0, errors.Wrapf(err, "sweeping expired work packages")
	}
	return res.DeletedCount, nil
}
