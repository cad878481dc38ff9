// Copyright 2018-2023 CERN
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

// Package middleware holds the HTTP middleware chain the service wraps
// every route with, adapted from reva's internal/http/interceptors: trace
// propagation, request-scoped logging and a security-headers pass.
package middleware

import (
	"net/http"

	"github.com/bioarchive/workpkgsvc/pkg/appctx"
	"github.com/google/uuid"
)

// Trace returns middleware that attaches a trace id to the request context,
// reusing an inbound X-Trace-ID header when the caller already supplied one
// so a request can be followed across service boundaries.
func Trace() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get("X-Trace-ID")
			if traceID == "" {
				traceID = uuid.New().String()
			}
			w.Header().Set("X-Trace-ID", traceID)
			ctx := appctx.WithTrace(r.Context(), traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
