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

import (
	"fmt"
	"time"
)

// ValidateProgramRecord validates a ProgramRecord according to domain rules.
//
// Validation rules:
//   - ExternalId and Title must not be empty
//   - SourceType must be one of the known source types
//   - Id must equal IDFromSource(SourceType, ExternalId)
//   - Predicates must be valid and hold at most one entry per field
//
// NOT validated (populated by processors):
//   - Vector (can be empty until the indexer runs or while queued for retry)
func ValidateProgramRecord(record *ProgramRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidProgram)
	}

	if record.ExternalId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProgram, ErrEmptyExternalID)
	}

	if record.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProgram, ErrEmptyTitle)
	}

	if err := ValidateSourceType(record.SourceType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProgram, err)
	}

	if record.Id != IDFromSource(record.SourceType, record.ExternalId) {
		return fmt.Errorf("%w: %w", ErrInvalidProgram, ErrIDMismatch)
	}

	seen := make(map[PredicateField]bool, len(record.Predicates))
	for _, p := range record.Predicates {
		if err := ValidatePredicate(p); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProgram, err)
		}
		if seen[p.Field] {
			return fmt.Errorf("%w: %w: %s", ErrInvalidProgram, ErrDuplicatePredicate, p.Field)
		}
		seen[p.Field] = true
	}

	return nil
}

// ValidatePredicate checks that the operator and value shape fit the field.
func ValidatePredicate(p ConditionPredicate) error {
	switch p.Field {
	case PredicateAgeMax, PredicateIncomeMax:
		if p.Operator != OpLte {
			return fmt.Errorf("%w: %w: %s %s", ErrInvalidPredicate, ErrInvalidOperator, p.Field, p.Operator)
		}
	case PredicateAgeMin:
		if p.Operator != OpGte {
			return fmt.Errorf("%w: %w: %s %s", ErrInvalidPredicate, ErrInvalidOperator, p.Field, p.Operator)
		}
	case PredicateRegion, PredicateBusinessType, PredicateEmploymentStatus:
		if p.Operator != OpIn {
			return fmt.Errorf("%w: %w: %s %s", ErrInvalidPredicate, ErrInvalidOperator, p.Field, p.Operator)
		}
		if len(p.Values) == 0 {
			return fmt.Errorf("%w: %s has no values", ErrInvalidPredicate, p.Field)
		}
	case PredicateSupportType:
		if p.Operator != OpEq || len(p.Values) != 1 {
			return fmt.Errorf("%w: %w: %s %s", ErrInvalidPredicate, ErrInvalidOperator, p.Field, p.Operator)
		}
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidPredicate, ErrUnknownPredicateField, p.Field)
	}
	return nil
}

// ValidateSourceType validates that a SourceType has a valid value.
func ValidateSourceType(source SourceType) error {
	switch source {
	case SourceTypeAPI, SourceTypeDocument, SourceTypeManual, SourceTypeDiscovered:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidSourceType, source)
}

// ValidateUserProfile validates a UserProfile before it is stored.
func ValidateUserProfile(profile *UserProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if profile.SessionId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrEmptySessionID)
	}
	if !IsValidTimestamp(profile.UpdatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrInvalidTimestamp)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
