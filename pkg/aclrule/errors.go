// Copyright 2025, 2026 Alexander Alten (novatechflow), NovaTechflow (novatechflow.com).
// This project is supported and financed by Scalytics, Inc. (www.scalytics.io).
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

package aclrule

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySelection   = errors.New("empty selection")
	ErrMissingPrincipal = errors.New("principal is required")
	ErrUnknownRuleKind  = errors.New("unknown rule kind")

	// ErrMissingRequiredFamily means the caller never supplied a family the
	// rule kind needs. It is a caller defect, not a user input error.
	ErrMissingRequiredFamily = errors.New("missing required resource family")
)

// SelectionError reports a family left with no values, no prefix and no
// override. It unwraps to ErrEmptySelection.
type SelectionError struct {
	Family Family
}

func (e *SelectionError) Error() string {
	switch e.Family {
	case FamilyTopic:
		return "Please select at least one topic"
	case FamilyConsumerGroup:
		return "Please select at least one consumer group"
	case FamilyTransactionalID:
		return "Please enter a transactional id or prefix"
	default:
		return fmt.Sprintf("Please select at least one %s", e.Family)
	}
}

func (e *SelectionError) Unwrap() error {
	return ErrEmptySelection
}

func missingFamily(kind RuleKind, family Family) error {
	return fmt.Errorf("%w: %s rule requires %s", ErrMissingRequiredFamily, kind, family)
}
