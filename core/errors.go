// Copyright 2025 Poiesic Systems
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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidProgram indicates a ProgramRecord failed validation.
	ErrInvalidProgram = errors.New("invalid program record")

	// ErrInvalidPredicate indicates a ConditionPredicate failed validation.
	ErrInvalidPredicate = errors.New("invalid predicate")

	// ErrInvalidProfile indicates a UserProfile failed validation.
	ErrInvalidProfile = errors.New("invalid user profile")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyExternalID indicates the ExternalId field is empty.
	ErrEmptyExternalID = errors.New("external id cannot be empty")

	// ErrInvalidSourceType indicates an unknown SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrIDMismatch indicates the Id does not match the record's source identity.
	ErrIDMismatch = errors.New("id does not match source identity")

	// ErrUnknownPredicateField indicates a predicate field outside the closed set.
	ErrUnknownPredicateField = errors.New("unknown predicate field")

	// ErrInvalidOperator indicates an operator that does not fit the predicate field.
	ErrInvalidOperator = errors.New("invalid operator for field")

	// ErrDuplicatePredicate indicates two predicates for the same field on one record.
	ErrDuplicatePredicate = errors.New("duplicate predicate field")

	// ErrEmptySessionID indicates a profile without a session id.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrInvalidID indicates a malformed textual ID.
	ErrInvalidID = errors.New("invalid id")
)
