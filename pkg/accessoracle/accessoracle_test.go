package accessoracle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bioarchive/workpkgsvc/pkg/accessoracle"
	"github.com/bioarchive/workpkgsvc/pkg/dataset"
)

func TestCheckReturnsTrueOn200AndFalseOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/download-access/users/alice/datasets/dataset-1":
			w.WriteHeader(http.StatusOK)
		case "/download-access/users/bob/datasets/dataset-1":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := accessoracle.New(srv.URL)

	allowed, err := client.Check(context.Background(), "alice", "dataset-1", dataset.Download)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = client.Check(context.Background(), "bob", "dataset-1", dataset.Download)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckPropagatesUnexpectedStatusAsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := accessoracle.New(srv.URL)
	_, err := client.Check(context.Background(), "alice", "dataset-1", dataset.Download)
	require.Error(t, err)
}

func TestCheckUsesUploadPathForUploadWorkType(t *testing.T) {
	var seenPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := accessoracle.New(srv.URL)
	_, err := client.Check(context.Background(), "alice", "dataset-1", dataset.Upload)
	require.NoError(t, err)
	require.Equal(t, "/upload-access/users/alice/datasets/dataset-1", seenPath)
}

func TestListDatasetsDecodesJSONArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/download-access/users/alice/datasets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["dataset-1","dataset-2"]`))
	}))
	defer srv.Close()

	client := accessoracle.New(srv.URL)
	ids, err := client.ListDatasets(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"dataset-1", "dataset-2"}, ids)
}

func TestRegisterGrantNeverReturnsAnErrorEvenOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := accessoracle.New(srv.URL)
	// RegisterGrant has no error return; this call must simply not panic.
	client.RegisterGrant(context.Background(), "alice", "file-1", time.Now().Add(time.Hour))
}

func TestWithCheckPathOverridesTheDefaultTemplate(t *testing.T) {
	var seenPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := accessoracle.New(srv.URL, accessoracle.WithCheckPath(dataset.Download, "/custom/{user_id}/{dataset_id}"))
	_, err := client.Check(context.Background(), "alice", "dataset-1", dataset.Download)
	require.NoError(t, err)
	require.Equal(t, "/custom/alice/dataset-1", seenPath)
}
