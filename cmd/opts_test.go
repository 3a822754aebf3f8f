// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptedTypes(t *testing.T) {
	t.Parallel()

	m, err := parseAcceptedTypes([]string{
		"image/*=png;jpg",
		"Application/PDF=.PDF",
		"text/plain",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"image/*":         {"png", "jpg"},
		"application/pdf": {"pdf"},
		"text/plain":      nil,
	}, m)
}

func TestParseAcceptedTypes_RejectsEmptyPattern(t *testing.T) {
	t.Parallel()

	_, err := parseAcceptedTypes([]string{"=png"})
	assert.ErrorContains(t, err, "MIME pattern")
}

func TestFormatAcceptedTypes_StableRoundTrip(t *testing.T) {
	t.Parallel()

	in := map[string][]string{
		"image/*":    {"png", "jpg"},
		"text/plain": nil,
	}

	entries := formatAcceptedTypes(in)
	assert.Equal(t, []string{"image/*=png;jpg", "text/plain"}, entries)

	back, err := parseAcceptedTypes(entries)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}
