// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

import (
	"errors"
)

// Outcome classifies an operation result based on rtio's readiness semantics.
//
// OutcomeOK:            success, no more to come.
// OutcomeWouldBlock:    not ready; the same call must be retried after waiting.
// OutcomeMore:          progress happened and more completions are expected.
// OutcomeFailure:       any other error, including io.EOF and *JoinError.
type Outcome uint8

const (
	OutcomeFailure Outcome = iota
	OutcomeOK
	OutcomeWouldBlock
	OutcomeMore
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeWouldBlock:
		return "WouldBlock"
	case OutcomeMore:
		return "More"
	default:
		return "Failure"
	}
}

// IsWouldBlock reports whether err carries the not-ready semantic.
// It returns true for ErrWouldBlock and wrappers (via errors.Is).
func IsWouldBlock(err error) bool { return errors.Is(err, ErrWouldBlock) }

// IsMore reports whether err carries the multi-shot semantic.
func IsMore(err error) bool { return errors.Is(err, ErrMore) }

// IsSemantic reports whether err is ErrWouldBlock or ErrMore (including wrapped forms).
func IsSemantic(err error) bool { return IsWouldBlock(err) || IsMore(err) }

// IsNonFailure reports whether err should keep an operation alive:
// nil, ErrWouldBlock, or ErrMore.
func IsNonFailure(err error) bool { return err == nil || IsSemantic(err) }

// IsProgress reports whether the current call produced usable progress now:
// true for nil and ErrMore.
func IsProgress(err error) bool { return err == nil || IsMore(err) }

// Classify maps err to an Outcome.
//
// Classification depends solely on err; io.EOF and engine errors are failures
// here and are never reinterpreted.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if IsWouldBlock(err) {
		return OutcomeWouldBlock
	}
	if IsMore(err) {
		return OutcomeMore
	}
	return OutcomeFailure
}
