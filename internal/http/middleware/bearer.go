// Copyright 2018-2019 CERN
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

package middleware

import (
	"net/http"
	"strings"
)

// BearerToken extracts a bearer token from the request, checking the
// Authorization header first and falling back to the access_token query
// parameter, following RFC 6750 sections 2.1 and 2.3 the way reva's bearer
// auth strategy does.
func BearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if token := strings.TrimPrefix(hdr, "Bearer "); token != hdr && token != "" {
		return token
	}

	tokens, ok := r.URL.Query()["access_token"]
	if !ok || len(tokens) == 0 || tokens[0] == "" {
		return ""
	}
	return tokens[0]
}
