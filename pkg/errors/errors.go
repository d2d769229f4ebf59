// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package errors

import (
	stdliberrors "errors"
)

var (
	ErrUnsupported = stdliberrors.ErrUnsupported

	As     = stdliberrors.As
	Is     = stdliberrors.Is
	Join   = stdliberrors.Join
	New    = stdliberrors.New
	Unwrap = stdliberrors.Unwrap
)

// RetryableError marks failures that are worth repeating, e.g. a coordinator
// report that failed on a transient transport error.
type RetryableError interface {
	error
	Retryable()
}

func NewRetryable(text string) RetryableError {
	return &retryableError{text}
}

// WrapRetryable marks err as retryable while preserving the error chain for
// Is/As checks. Wrapping nil returns nil.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableWrap{err}
}

func Retryable(err error) bool {
	var rerr RetryableError
	return As(err, &rerr)
}

type retryableError struct {
	text string
}

func (r *retryableError) Error() string {
	return r.text
}

func (r *retryableError) Retryable() {}

type retryableWrap struct {
	err error
}

func (r *retryableWrap) Error() string {
	return r.err.Error()
}

func (r *retryableWrap) Unwrap() error {
	return r.err
}

func (r *retryableWrap) Retryable() {}
