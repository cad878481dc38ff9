package httperr_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bioarchive/workpkgsvc/internal/http/httperr"
	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
)

func TestWriteMapsEveryErrtypesKindToItsStatus(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		want        int
		wantMessage string
	}{
		{"not authenticated", errtypes.NotAuthenticated("x"), http.StatusForbidden, errtypes.NotAuthenticated("x").Error()},
		{"access denied", errtypes.AccessDenied("x"), http.StatusForbidden, "access denied"},
		{"no files accessible", errtypes.NoFilesAccessible("x"), http.StatusForbidden, "access denied"},
		{"invalid user key", errtypes.InvalidUserKey("x"), http.StatusUnprocessableEntity, errtypes.InvalidUserKey("x").Error()},
		{"not found", errtypes.NotFound("x"), http.StatusNotFound, errtypes.NotFound("x").Error()},
		{"access check failed", errtypes.AccessCheckFailed("x"), http.StatusBadGateway, errtypes.AccessCheckFailed("x").Error()},
		{"internal", errtypes.Internal("x"), http.StatusInternalServerError, errtypes.Internal("x").Error()},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			httperr.Write(rec, req, c.err)

			require.Equal(t, c.want, rec.Code)

			var body httperr.Body
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, c.wantMessage, body.Error)
		})
	}
}

// TestWriteNeverLeaksTheAccessDenialReason locks in that AccessDenied and
// NoFilesAccessible responses carry a uniform message regardless of the
// distinct reasons they were constructed with, so a caller can't tell a
// missing dataset from an oracle refusal from a wrong-work-type mismatch.
func TestWriteNeverLeaksTheAccessDenialReason(t *testing.T) {
	reasons := []error{
		errtypes.AccessDenied("dataset not found"),
		errtypes.AccessDenied("access oracle refused"),
		errtypes.AccessDenied("dataset not staged for requested work type"),
		errtypes.NoFilesAccessible("requested file selection does not intersect the dataset"),
	}

	for _, err := range reasons {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		httperr.Write(rec, req, err)

		var body httperr.Body
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "access denied", body.Error)
	}
}

func TestWriteDefaultsToInternalServerErrorForUnclassifiedErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	httperr.Write(rec, req, errors.New("unclassified failure"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
