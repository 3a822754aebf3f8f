// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "photo.jpg", "photo.jpg"},
		{"path stripped", "/tmp/secret/photo.jpg", "photo.jpg"},
		{"windows path stripped", `C:\Users\me\photo.jpg`, "photo.jpg"},
		{"control chars removed", "re\x00port\x1f.pdf", "report.pdf"},
		{"empty", "", "unnamed"},
		{"dot only", ".", "unnamed"},
		{"dotdot", "..", "unnamed"},
		{"whitespace", "   ", "unnamed"},
		{"unicode kept", "café.png", "café.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFilename(tt.in))
		})
	}
}

func TestNormalizeFilename_NFC(t *testing.T) {
	// "é" as 'e' + combining acute accent normalizes to the single rune form.
	decomposed := "caf\u0065\u0301.png"
	composed := "caf\u00e9.png"
	assert.Equal(t, composed, NormalizeFilename(decomposed))
}

func TestFileExt(t *testing.T) {
	assert.Equal(t, "jpg", FileExt("photo.JPG"))
	assert.Equal(t, "gz", FileExt("backup.tar.gz"))
	assert.Equal(t, "", FileExt("README"))
	assert.Equal(t, "", FileExt(""))
}
