// Package manager implements the work package state machine: the only
// component that writes a work package, and the one that sequences every
// other collaborator (identity, dataset projection, access oracle, token
// codec, work package store) to serve the service's four operations.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/bioarchive/workpkgsvc/pkg/accessoracle"
	"github.com/bioarchive/workpkgsvc/pkg/appctx"
	"github.com/bioarchive/workpkgsvc/pkg/dataset"
	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
	"github.com/bioarchive/workpkgsvc/pkg/identity"
	"github.com/bioarchive/workpkgsvc/pkg/tokencodec"
	"github.com/bioarchive/workpkgsvc/pkg/workpackage"
)

// AccessOracle is the subset of accessoracle.Client the manager calls.
// Narrowed to an interface so tests can fake it.
type AccessOracle interface {
	Check(ctx context.Context, userID, datasetID string, t dataset.WorkType) (bool, error)
	ListDatasets(ctx context.Context, userID string) ([]string, error)
	RegisterGrant(ctx context.Context, userID, fileID string, validUntil time.Time)
}

// IdentityVerifier is the subset of identity.Verifier the manager calls.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (identity.UserContext, error)
}

// Codec is the subset of tokencodec.Codec the manager calls.
type Codec interface {
	Sign(claims tokencodec.Claims) (string, error)
	EncryptForUser(payload []byte, recipientPubKeyB64 string) (string, error)
}

var _ AccessOracle = (*accessoracle.Client)(nil)

// Manager orchestrates A-E to serve the four work-package operations. It
// holds no mutable state of its own; every method is safe for concurrent
// use given collaborators that are themselves safe for concurrent use.
type Manager struct {
	identity IdentityVerifier
	datasets dataset.Store
	workpkgs workpackage.Store
	oracle   AccessOracle
	codec    Codec

	ServiceInstanceID string
	ValidFor          time.Duration
}

// New returns a Manager wiring the five collaborators together.
func New(identity IdentityVerifier, datasets dataset.Store, workpkgs workpackage.Store, oracle AccessOracle, codec Codec, serviceInstanceID string, validFor time.Duration) *Manager {
	return &Manager{
		identity:          identity,
		datasets:          datasets,
		workpkgs:          workpkgs,
		oracle:            oracle,
		codec:             codec,
		ServiceInstanceID: serviceInstanceID,
		ValidFor:          validFor,
	}
}

// CreationData is the caller-supplied input to CreateWorkPackage.
type CreationData struct {
	DatasetID             string
	Type                  dataset.WorkType
	FileIDs               []string // nil means "every file currently in the dataset"
	UserPublicCrypt4GHKey string
}

// CreateWorkPackageResult is returned by CreateWorkPackage.
type CreateWorkPackageResult struct {
	ID                   string
	EncryptedAccessToken string
}

// CreateWorkPackage implements spec.md §4.G.1.
func (m *Manager) CreateWorkPackage(ctx context.Context, data CreationData, internalAssertion string) (CreateWorkPackageResult, error) {
	user, err := m.identity.Verify(ctx, internalAssertion)
	if err != nil {
		return CreateWorkPackageResult{}, err
	}

	ds, err := m.datasets.Get(ctx, data.DatasetID)
	if err != nil {
		return CreateWorkPackageResult{}, errtypes.Internal(err.Error())
	}
	if ds == nil {
		// Treated as unauthorized, not not-found, to avoid leaking
		// dataset existence to a caller who may not be entitled to
		// know about it.
		return CreateWorkPackageResult{}, errtypes.AccessDenied("dataset not found")
	}

	if ds.Stage.Valid() && ds.Stage != data.Type {
		// Narrowing-only pre-check: a dataset staged for the other
		// work type would have come back negative from the oracle
		// anyway; this just saves the round trip.
		return CreateWorkPackageResult{}, errtypes.AccessDenied("dataset not staged for requested work type")
	}

	allowed, err := m.oracle.Check(ctx, user.ID, data.DatasetID, data.Type)
	if err != nil {
		return CreateWorkPackageResult{}, err
	}
	if !allowed {
		return CreateWorkPackageResult{}, errtypes.AccessDenied("access oracle refused")
	}

	chosen, err := resolveFileSet(*ds, data.FileIDs)
	if err != nil {
		return CreateWorkPackageResult{}, err
	}

	wpID, err := tokencodec.RandomTokenID()
	if err != nil {
		return CreateWorkPackageResult{}, errtypes.Internal(err.Error())
	}
	secret, err := tokencodec.RandomSecret()
	if err != nil {
		return CreateWorkPackageResult{}, errtypes.Internal(err.Error())
	}

	now := time.Now().UTC()
	wp := &workpackage.WorkPackage{
		ID:                    wpID,
		DatasetID:             data.DatasetID,
		Type:                  data.Type,
		UserID:                user.ID,
		UserPublicCrypt4GHKey: data.UserPublicCrypt4GHKey,
		FullUserName:          user.Name,
		Email:                 user.Email,
		FileIDs:               chosen,
		TokenHash:             tokencodec.Fingerprint(secret),
		Created:               now,
		Expires:               now.Add(m.ValidFor),
		ServiceInstanceID:     m.ServiceInstanceID,
	}

	if err := m.workpkgs.Insert(ctx, wp); err != nil {
		return CreateWorkPackageResult{}, errtypes.Internal(err.Error())
	}

	accessTokenPlain := fmt.Sprintf("%s:%s", wpID, secret)
	encrypted, err := m.codec.EncryptForUser([]byte(accessTokenPlain), wp.UserPublicCrypt4GHKey)
	if err != nil {
		return CreateWorkPackageResult{}, err
	}

	return CreateWorkPackageResult{ID: wpID, EncryptedAccessToken: encrypted}, nil
}

func resolveFileSet(ds dataset.Dataset, requested []string) ([]string, error) {
	if requested == nil {
		return ds.FileIDs(), nil
	}

	known := make(map[string]bool, len(ds.Files))
	for _, f := range ds.Files {
		known[f.ID] = true
	}

	seen := make(map[string]bool, len(requested))
	chosen := make([]string, 0, len(requested))
	for _, id := range requested {
		if known[id] && !seen[id] {
			chosen = append(chosen, id)
			seen[id] = true
		}
	}

	if len(chosen) == 0 {
		return nil, errtypes.NoFilesAccessible("requested file selection does not intersect the dataset")
	}
	return chosen, nil
}

// WorkPackageDetails is returned by GetWorkPackageDetails.
type WorkPackageDetails struct {
	Type    dataset.WorkType
	Created time.Time
	Expires time.Time
	// Files maps file id to extension, using "" when the dataset has
	// since been deleted (documented degradation, spec.md §4.G.2).
	Files map[string]string
}

// GetWorkPackageDetails implements spec.md §4.G.2.
func (m *Manager) GetWorkPackageDetails(ctx context.Context, wpID, presentedAccessToken string) (WorkPackageDetails, error) {
	wp, err := m.authenticateAccessToken(ctx, wpID, presentedAccessToken)
	if err != nil {
		return WorkPackageDetails{}, err
	}

	ds, err := m.datasets.Get(ctx, wp.DatasetID)
	if err != nil {
		return WorkPackageDetails{}, errtypes.Internal(err.Error())
	}

	files := make(map[string]string, len(wp.FileIDs))
	for _, fileID := range wp.FileIDs {
		ext := ""
		if ds != nil {
			if e, ok := ds.Extension(fileID); ok {
				ext = e
			}
		}
		files[fileID] = ext
	}

	return WorkPackageDetails{
		Type:    wp.Type,
		Created: wp.Created,
		Expires: wp.Expires,
		Files:   files,
	}, nil
}

// CreateWorkOrderToken implements spec.md §4.G.3.
func (m *Manager) CreateWorkOrderToken(ctx context.Context, wpID, fileID, presentedAccessToken string) (string, error) {
	wp, err := m.authenticateAccessToken(ctx, wpID, presentedAccessToken)
	if err != nil {
		return "", err
	}

	if !wp.HasFile(fileID) {
		return "", errtypes.AccessDenied("file not part of work package")
	}

	claims := tokencodec.Claims{
		Type:                  string(wp.Type),
		FileID:                fileID,
		UserID:                wp.UserID,
		UserPublicCrypt4GHKey: wp.UserPublicCrypt4GHKey,
		FullUserName:          wp.FullUserName,
		Email:                 wp.Email,
	}

	signed, err := m.codec.Sign(claims)
	if err != nil {
		return "", err
	}

	encrypted, err := m.codec.EncryptForUser([]byte(signed), wp.UserPublicCrypt4GHKey)
	if err != nil {
		return "", err
	}

	m.oracle.RegisterGrant(ctx, wp.UserID, fileID, wp.Expires)

	return encrypted, nil
}

// ListUserDatasets implements spec.md §4.G.4.
func (m *Manager) ListUserDatasets(ctx context.Context, userID, internalAssertion string) ([]dataset.Dataset, error) {
	user, err := m.identity.Verify(ctx, internalAssertion)
	if err != nil {
		return nil, err
	}
	if user.ID != userID {
		return nil, errtypes.AccessDenied("caller does not match requested user")
	}

	ids, err := m.oracle.ListDatasets(ctx, userID)
	if err != nil {
		return nil, err
	}

	datasets := make([]dataset.Dataset, 0, len(ids))
	for _, id := range ids {
		ds, err := m.datasets.Get(ctx, id)
		if err != nil {
			return nil, errtypes.Internal(err.Error())
		}
		if ds == nil {
			continue
		}
		datasets = append(datasets, *ds)
	}
	return datasets, nil
}

// authenticateAccessToken implements the shared token-parsing and lookup
// logic of spec.md §4.G.2 step 1-2, reused by GetWorkPackageDetails and
// CreateWorkOrderToken. Every token failure (malformed, mismatched,
// unknown, wrong secret, expired) collapses to AccessDenied; a store error
// is Internal.
func (m *Manager) authenticateAccessToken(ctx context.Context, wpID, presented string) (*workpackage.WorkPackage, error) {
	presentedWPID, secret, ok := splitAccessToken(presented)
	if !ok || presentedWPID != wpID {
		return nil, errtypes.AccessDenied("malformed or mismatched access token")
	}

	wp, err := m.workpkgs.GetByID(ctx, wpID)
	if err != nil {
		return nil, errtypes.Internal(err.Error())
	}
	if wp == nil {
		return nil, errtypes.AccessDenied("work package not found")
	}

	if tokencodec.Fingerprint(secret) != wp.TokenHash {
		return nil, errtypes.AccessDenied("access token does not match")
	}

	if wp.Expired(time.Now().UTC()) {
		return nil, errtypes.AccessDenied("access token expired")
	}

	appctx.GetLogger(ctx).Debug().Str("work_package_id", wpID).Msg("access token authenticated")

	return wp, nil
}

func splitAccessToken(token string) (wpID, secret string, ok bool) {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i], token[i+1:], true
		}
	}
	return "", "", false
}
