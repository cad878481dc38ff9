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

package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/bioarchive/workpkgsvc/pkg/appctx"
	"github.com/rs/zerolog"
)

// Log returns middleware that attaches a request-scoped logger (tagged with
// the trace id set by Trace) to the context and emits a structured summary
// line once the request completes.
func Log(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := base.With().Str("traceid", appctx.GetTrace(r.Context())).Logger()
			ctx := appctx.WithLogger(r.Context(), &sub)
			r = r.WithContext(ctx)

			start := time.Now()
			rl := &responseLogger{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rl, r)

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			event := sub.Info()
			if rl.status >= 500 {
				event = sub.Error()
			} else if rl.status >= 400 {
				event = sub.Warn()
			}
			event.Str("host", host).
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Int("status", rl.status).
				Int("size", rl.size).
				Dur("duration", time.Since(start)).
				Msg("processed http request")
		})
	}
}

// responseLogger wraps a http.ResponseWriter to capture the status code and
// body size written, the way reva's logging interceptor does.
type responseLogger struct {
	http.ResponseWriter
	status int
	size   int
}

func (l *responseLogger) WriteHeader(status int) {
	l.status = status
	l.ResponseWriter.WriteHeader(status)
}

func (l *responseLogger) Write(b []byte) (int, error) {
	n, err := l.ResponseWriter.Write(b)
	l.size += n
	return n, err
}
