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

package tools

import (
	"errors"
	"fmt"

	apperrors "fsguard/internal/errors"
)

// Common tool errors
var (
	// ErrToolNotFound indicates the requested tool doesn't exist in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidArguments indicates tool arguments are invalid or malformed.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrToolDeniedByUser indicates the host operator refused an approval prompt.
	ErrToolDeniedByUser = errors.New("tool execution denied by user")

	// ErrToolAlreadyRegistered indicates a name collision in the registry.
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// NewArgumentError reports malformed tool arguments with the shared error code.
func NewArgumentError(toolName string, err error) *apperrors.Error {
	return apperrors.Wrap(apperrors.CodeInvalidArgument,
		fmt.Sprintf("%s: %v", toolName, err),
		ErrInvalidArguments)
}

// NewToolNotFoundError reports a call to an unknown tool.
func NewToolNotFoundError(toolName string) *apperrors.Error {
	return apperrors.Wrap(apperrors.CodeInvalidArgument,
		fmt.Sprintf("tool %q not found", toolName),
		ErrToolNotFound)
}

func ioFailure(path, action string, err error) *apperrors.Error {
	return apperrors.Wrap(apperrors.CodeIOError, fmt.Sprintf("failed to %s %s", action, path), err).WithPath(path)
}
