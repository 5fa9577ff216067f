// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package pathcmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/media/", "/media"},
		{"/media//tv/./show", "/media/tv/show"},
		{`\media\tv`, "/media/tv"},
		{"C:", "C:"},
		{`C:\`, "C:/"},
		{`C:\media\..\tv`, "C:/tv"},
		{"/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in), tt.in)
	}
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		name   string
		p      string
		prefix string
		want   bool
	}{
		{"exact", "/media/tv", "/media/tv", true},
		{"child", "/media/tv/show/ep1.mkv", "/media/tv", true},
		{"trailing slash prefix", "/media/tv/show", "/media/tv/", true},
		{"sibling with shared prefix", "/media/tv2/show", "/media/tv", false},
		{"root prefix", "/media", "/", true},
		{"drive root", "C:/media", `C:\`, true},
		{"empty prefix", "/media", "", false},
		{"parent", "/media", "/media/tv", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPathPrefix(tt.p, tt.prefix))
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/media/show/ep1", Join("/media", "show/ep1"))
	assert.Equal(t, "/media/show/ep1", Join("/media/", "/show/ep1"))
	assert.Equal(t, "/media/show", Join("/media", `show\`))
	assert.Equal(t, "/media", Join("/media/", ""))
	assert.Equal(t, "/show", Join("/", "show"))
}
