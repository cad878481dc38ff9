// Package dataset holds the local read model of datasets maintained from
// the upstream event stream: the set of files a work package may reference
// and which files remain reachable for a user.
package dataset

import "context"

// WorkType enumerates the two kinds of work a work package authorizes.
type WorkType string

const (
	// Download authorizes reading files out of a dataset.
	Download WorkType = "download"
	// Upload authorizes writing files into a dataset.
	Upload WorkType = "upload"
)

// Valid reports whether t is one of the known work types.
func (t WorkType) Valid() bool {
	switch t {
	case Download, Upload:
		return true
	default:
		return false
	}
}

// File is a single file belonging to a Dataset.
type File struct {
	ID        string `bson:"id" json:"id"`
	Extension string `bson:"extension" json:"extension"`
}

// Dataset is the projection of one upstream dataset, kept in sync by
// pkg/datasetfeed applying upsert/delete events.
type Dataset struct {
	ID          string   `bson:"_id" json:"id"`
	Title       string   `bson:"title" json:"title"`
	Description string   `bson:"description" json:"description"`
	Stage       WorkType `bson:"stage" json:"stage"`
	Files       []File   `bson:"files" json:"files"`
}

// FileIDs returns the ordered set of file ids belonging to the dataset.
func (d Dataset) FileIDs() []string {
	ids := make([]string, len(d.Files))
	for i, f := range d.Files {
		ids[i] = f.ID
	}
	return ids
}

// Extension returns the extension of the file with the given id, and
// whether that file is currently part of the dataset.
func (d Dataset) Extension(fileID string) (string, bool) {
	for _, f := range d.Files {
		if f.ID == fileID {
			return f.Extension, true
		}
	}
	return "", false
}

// Store persists dataset projections keyed by dataset id. Upsert is an
// unconditional full-document replace; Delete is idempotent.
type Store interface {
	Upsert(ctx context.Context, d Dataset) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Dataset, error)
}
