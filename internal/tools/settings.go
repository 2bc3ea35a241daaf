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
	"fsguard/internal/paths"
	"github.com/rs/zerolog"
)

// Limits configures size bounds for tool operations.
type Limits struct {
	DefaultLineLimit int
	MaxLineLength    int
	ImageWarnBytes   int64
	ImageMaxBytes    int64
}

const (
	defaultLineLimit            = 2000
	defaultMaxLineLength        = 2000
	defaultImageWarnBytes int64 = 5 * 1024 * 1024
	defaultImageMaxBytes  int64 = 20 * 1024 * 1024
)

// DefaultLimits returns the default bounds for tool operations.
func DefaultLimits() Limits {
	return Limits{
		DefaultLineLimit: defaultLineLimit,
		MaxLineLength:    defaultMaxLineLength,
		ImageWarnBytes:   defaultImageWarnBytes,
		ImageMaxBytes:    defaultImageMaxBytes,
	}
}

func normalizeLimits(l Limits) Limits {
	if l.DefaultLineLimit <= 0 {
		l.DefaultLineLimit = defaultLineLimit
	}
	if l.MaxLineLength <= 0 {
		l.MaxLineLength = defaultMaxLineLength
	}
	if l.ImageMaxBytes <= 0 {
		l.ImageMaxBytes = defaultImageMaxBytes
	}
	if l.ImageWarnBytes <= 0 {
		l.ImageWarnBytes = defaultImageWarnBytes
	}
	if l.ImageWarnBytes > l.ImageMaxBytes {
		l.ImageWarnBytes = l.ImageMaxBytes
	}
	return l
}

// Settings is the immutable mount-time configuration shared by all file tools.
// It is passed by value; nothing in this package mutates it after Mount.
type Settings struct {
	Guard           *paths.Guard
	Limits          Limits
	RequireApproval bool
	Mentions        MentionResolver
	Events          EventSink
	Logger          zerolog.Logger
}

func normalizeSettings(s Settings) Settings {
	s.Limits = normalizeLimits(s.Limits)
	if s.Events == nil {
		s.Events = NewLogEventSink(s.Logger)
	}
	return s
}
