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

// Package errtypes contains the error taxonomy of the work package service.
// It would have been nice to call this package errors, err or error
// but errors clashes with github.com/pkg/errors, err is used for any error variable
// and error is a reserved word :)
package errtypes

// NotFound is the error to use when a resource does not exist.
type NotFound string

func (e NotFound) Error() string { return "error: not found: " + string(e) }

// IsNotFound implements the IsNotFound interface.
func (e NotFound) IsNotFound() {}

// NotAuthenticated is the error to use when an internal bearer assertion is
// missing, malformed, or fails signature/claim verification.
type NotAuthenticated string

func (e NotAuthenticated) Error() string { return "error: not authenticated: " + string(e) }

// IsNotAuthenticated implements the IsNotAuthenticated interface.
func (e NotAuthenticated) IsNotAuthenticated() {}

// AccessDenied is the error to use when authorization is refused: the access
// oracle said no, a dataset/file is outside the allowed set, a presented
// work-package token is invalid or expired, or a caller does not match the
// resource they asked about. Its Error text names the reason; the HTTP
// layer (httperr) replies with a uniform message so the reason is not sent.
type AccessDenied string

func (e AccessDenied) Error() string { return "error: access denied: " + string(e) }

// IsAccessDenied implements the IsAccessDenied interface.
func (e AccessDenied) IsAccessDenied() {}

// NoFilesAccessible is the error to use when a caller's requested file
// selection intersects the dataset's file set to the empty set.
type NoFilesAccessible string

func (e NoFilesAccessible) Error() string { return "error: no files accessible: " + string(e) }

// IsNoFilesAccessible implements the IsNoFilesAccessible interface.
func (e NoFilesAccessible) IsNoFilesAccessible() {}

// InvalidUserKey is the error to use when a caller's public Crypt4GH key
// cannot be decoded.
type InvalidUserKey string

func (e InvalidUserKey) Error() string { return "error: invalid user key: " + string(e) }

// IsInvalidUserKey implements the IsInvalidUserKey interface.
func (e InvalidUserKey) IsInvalidUserKey() {}

// AccessCheckFailed is the error to use when the access oracle returns an
// unexpected status while checking or listing permissions.
type AccessCheckFailed string

func (e AccessCheckFailed) Error() string { return "error: access check failed: " + string(e) }

// IsAccessCheckFailed implements the IsAccessCheckFailed interface.
func (e AccessCheckFailed) IsAccessCheckFailed() {}

// Internal is the error to use when a store or outbound collaborator call
// fails for a reason that is not itself an access decision.
type Internal string

func (e Internal) Error() string { return "error: internal: " + string(e) }

// IsInternal implements the IsInternal interface.
func (e Internal) IsInternal() {}

// IsNotFound is the interface to implement
// to specify that a resource is not found.
type IsNotFound interface {
	IsNotFound()
}

// IsNotAuthenticated is the interface to implement
// to specify that the caller could not be authenticated.
type IsNotAuthenticated interface {
	IsNotAuthenticated()
}

// IsAccessDenied is the interface to implement
// to specify that access was refused.
type IsAccessDenied interface {
	IsAccessDenied()
}

// IsNoFilesAccessible is the interface to implement
// to specify that a file selection resolved to nothing.
type IsNoFilesAccessible interface {
	IsNoFilesAccessible()
}

// IsInvalidUserKey is the interface to implement
// to specify that a recipient key was malformed.
type IsInvalidUserKey interface {
	IsInvalidUserKey()
}

// IsAccessCheckFailed is the interface to implement
// to specify that the access oracle misbehaved.
type IsAccessCheckFailed interface {
	IsAccessCheckFailed()
}

// IsInternal is the interface to implement
// to specify a non-access-related failure of a collaborator.
type IsInternal interface {
	IsInternal()
}
