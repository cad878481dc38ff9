// Package accessoracle is a narrow HTTP client over the external
// access-decision service: whether a (user, dataset, work type) tuple is
// permitted, which datasets a user may reach, and best-effort notification
// that a work-order token was minted.
package accessoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bioarchive/workpkgsvc/pkg/appctx"
	"github.com/bioarchive/workpkgsvc/pkg/dataset"
	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
	"github.com/bioarchive/workpkgsvc/pkg/httpclient"
)

// defaultPathTemplates maps a work type to the path template used for
// the per-tuple check, with {user_id} and {dataset_id} placeholders; the
// datasets listing uses defaultListTemplates. Configurable per spec.md §9's
// open question about upload having a distinct oracle endpoint.
var defaultPathTemplates = map[dataset.WorkType]string{
	dataset.Download: "/download-access/users/{user_id}/datasets/{dataset_id}",
	dataset.Upload:   "/upload-access/users/{user_id}/datasets/{dataset_id}",
}

var defaultListTemplates = map[dataset.WorkType]string{
	dataset.Download: "/download-access/users/{user_id}/datasets",
	dataset.Upload:   "/upload-access/users/{user_id}/datasets",
}

// Client talks to the access oracle over HTTP.
type Client struct {
	baseURL    string
	http       *httpclient.Client
	checkPaths map[dataset.WorkType]string
	listPaths  map[dataset.WorkType]string
}

// Option configures a Client.
type Option func(*Client)

// WithCheckPath overrides the per-work-type path template used by Check.
func WithCheckPath(t dataset.WorkType, template string) Option {
	return func(c *Client) { c.checkPaths[t] = template }
}

// WithListPath overrides the per-work-type path template used by
// ListDatasets.
func WithListPath(t dataset.WorkType, template string) Option {
	return func(c *Client) { c.listPaths[t] = template }
}

// New returns a Client against baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpclient.New(httpclient.Timeout(10 * time.Second)),
		checkPaths: cloneTemplates(defaultPathTemplates),
		listPaths:  cloneTemplates(defaultListTemplates),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func cloneTemplates(m map[dataset.WorkType]string) map[dataset.WorkType]string {
	out := make(map[dataset.WorkType]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c *Client) path(template, userID, datasetID string) string {
	p := strings.ReplaceAll(template, "{user_id}", url.PathEscape(userID))
	p = strings.ReplaceAll(p, "{dataset_id}", url.PathEscape(datasetID))
	return c.baseURL + p
}

// Check asks whether userID may perform t against datasetID. A 200 response
// means true, 404 means false; any other status is AccessCheckFailed
// wrapped in errtypes.Internal.
func (c *Client) Check(ctx context.Context, userID, datasetID string, t dataset.WorkType) (bool, error) {
	template, ok := c.checkPaths[t]
	if !ok {
		return false, errtypes.Internal(fmt.Sprintf("no access oracle path configured for work type %q", t))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.path(template, userID, datasetID), nil)
	if err != nil {
		return false, errtypes.Internal(err.Error())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, errtypes.Internal(err.Error())
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, errtypes.Internal(errtypes.AccessCheckFailed(fmt.Sprintf("unexpected status %d", resp.StatusCode)).Error())
	}
}

// ListDatasets returns the dataset ids userID may reach for download,
// in the order returned by the oracle.
func (c *Client) ListDatasets(ctx context.Context, userID string) ([]string, error) {
	template, ok := c.listPaths[dataset.Download]
	if !ok {
		return nil, errtypes.Internal("no dataset listing path configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.path(template, userID, ""), nil)
	if err != nil {
		return nil, errtypes.Internal(err.Error())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errtypes.Internal(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errtypes.Internal(errtypes.AccessCheckFailed(fmt.Sprintf("unexpected status %d", resp.StatusCode)).Error())
	}

	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, errtypes.Internal(err.Error())
	}
	return ids, nil
}

// RegisterGrant notifies the access oracle that a work-order token for
// fileID was minted on userID's behalf, valid until validUntil. Failure is
// logged and swallowed: this is best-effort telemetry, never fatal to the
// caller per spec.md §4.G.3.
func (c *Client) RegisterGrant(ctx context.Context, userID, fileID string, validUntil time.Time) {
	body := strings.NewReader(fmt.Sprintf(
		`{"user_id":%q,"file_id":%q,"valid_until":%q}`, userID, fileID, validUntil.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/grants", body)
	if err != nil {
		appctx.GetLogger(ctx).Error().Err(err).Msg("accessoracle: building register_grant request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		appctx.GetLogger(ctx).Error().Err(err).Msg("accessoracle: register_grant request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		appctx.GetLogger(ctx).Error().Int("status", resp.StatusCode).Msg("accessoracle: register_grant rejected")
	}
}
