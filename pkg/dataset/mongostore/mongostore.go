// Package mongostore is the Mongo-backed implementation of
// dataset.Store: one document per dataset, replaced wholesale on upsert,
// keyed by the dataset's natural id.
package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bioarchive/workpkgsvc/pkg/dataset"
	"github.com/bioarchive/workpkgsvc/pkg/errors"
)

// Store is a dataset.Store backed by a single Mongo collection.
type Store struct {
	coll *mongo.Collection
}

// New returns a Store backed by the datasets_collection collection of db.
func New(db *mongo.Database) *Store {
	return &Store{coll: db.Collection("datasets_collection")}
}

// Upsert replaces the document for d.ID wholesale, creating it if absent.
func (s *Store) Upsert(ctx context.Context, d dataset.Dataset) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": d.ID}, d, opts); err != nil {
		return errors.Wrapf(err, "upserting dataset %s", d.ID)
	}
	return nil
}

// Delete removes the document for id. Deleting an id that does not exist
// is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrapf(err, "deleting dataset %s", id)
	}
	return nil
}

// Get returns the dataset for id, or nil if no such dataset is projected.
func (s *Store) Get(ctx context.Context, id string) (*dataset.Dataset, error) {
	var d dataset.Dataset
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching dataset %s", id)
	}
	return &d, nil
}
