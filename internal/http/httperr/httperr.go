// Copyright 2018-2020 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

// Package httperr is the single funnel all HTTP handlers write errors
// through. It is a JSON-only simplification of reva's pkg/errhandler: the
// same status-code-by-kind idea, without the OCS XML/JSON dual envelope
// and statuscode numbering this service has no client expecting.
package httperr

import (
	"encoding/json"
	"net/http"

	"github.com/bioarchive/workpkgsvc/pkg/appctx"
	"github.com/bioarchive/workpkgsvc/pkg/errtypes"
)

// Body is the JSON shape every error response shares.
type Body struct {
	Error string `json:"error"`
}

// Write inspects err against the errtypes marker interfaces and writes the
// matching HTTP status with a JSON error body, logging the underlying error
// at the appropriate level.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status, logAsError := statusFor(err)

	log := appctx.GetLogger(r.Context())
	if logAsError {
		log.Error().Err(err).Msg("request failed")
	} else {
		log.Info().Err(err).Msg("request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{Error: messageFor(err)})
}

// messageFor returns the text sent to the client. AccessDenied and
// NoFilesAccessible collapse to a single uniform message regardless of the
// underlying reason, so a caller can't distinguish "dataset not found" from
// "oracle refused" from "wrong work type" by probing the response body; the
// real reason is still logged server-side by Write above.
func messageFor(err error) string {
	if isAccessDenied(err) || isNoFilesAccessible(err) {
		return "access denied"
	}
	return err.Error()
}

func statusFor(err error) (status int, logAsError bool) {
	switch {
	case isNotAuthenticated(err):
		return http.StatusForbidden, false
	case isAccessDenied(err):
		return http.StatusForbidden, false
	case isNoFilesAccessible(err):
		return http.StatusForbidden, false
	case isInvalidUserKey(err):
		return http.StatusUnprocessableEntity, false
	case isNotFound(err):
		return http.StatusNotFound, false
	case isAccessCheckFailed(err):
		return http.StatusBadGateway, true
	case isInternal(err):
		return http.StatusInternalServerError, true
	default:
		return http.StatusInternalServerError, true
	}
}

func isNotAuthenticated(err error) bool {
	_, ok := err.(errtypes.IsNotAuthenticated)
	return ok
}

func isAccessDenied(err error) bool {
	_, ok := err.(errtypes.IsAccessDenied)
	return ok
}

func isNoFilesAccessible(err error) bool {
	_, ok := err.(errtypes.IsNoFilesAccessible)
	return ok
}

func isInvalidUserKey(err error) bool {
	_, ok := err.(errtypes.IsInvalidUserKey)
	return ok
}

func isNotFound(err error) bool {
	_, ok := err.(errtypes.IsNotFound)
	return ok
}

func isAccessCheckFailed(err error) bool {
	_, ok := err.(errtypes.IsAccessCheckFailed)
	return ok
}

func isInternal(err error) bool {
	_, ok := err.(errtypes.IsInternal)
	return ok
}
