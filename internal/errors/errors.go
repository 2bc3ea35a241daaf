// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package errors

import (
	stderrors "errors"
	"fmt"
)

// Code identifies a class of error for programmatic handling.
type Code string

const (
	CodeInvalidPath     Code = "invalid_path"
	CodePathDenied      Code = "path_denied"
	CodeNotFound        Code = "not_found"
	CodeIOError         Code = "io_error"
	CodeFileTooLarge    Code = "file_too_large"
	CodeInvalidArgument Code = "invalid_argument"
	CodeStringNotFound  Code = "string_not_found"
	CodeAmbiguousMatch  Code = "ambiguous_match"
)

// Error wraps an underlying error with a code and message.
// Path, Mode and Occurrences carry the context an agent needs to correct its call.
type Error struct {
	Code        Code
	Message     string
	Path        string
	Mode        string
	Occurrences int
	Err         error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithPath records the path the failure refers to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithMode records the access mode that was denied.
func (e *Error) WithMode(mode string) *Error {
	e.Mode = mode
	return e
}

// WithOccurrences records how many matches made an edit ambiguous.
func (e *Error) WithOccurrences(n int) *Error {
	e.Occurrences = n
	return e
}

// New creates a new coded error with a message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a new coded error that wraps an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As finds the first coded error in err's chain.
func As(err error) (*Error, bool) {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// CodeOf returns the code of the first coded error in err's chain, or "" if none.
func CodeOf(err error) Code {
	if coded, ok := As(err); ok {
		return coded.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
