// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"unset", Info{}, "dev"},
		{"commit only", Info{GitCommit: "abc1234"}, "dev (abc1234)"},
		{"unknown commit", Info{Version: "v1.2.0", GitCommit: "unknown"}, "v1.2.0"},
		{"release", Info{Version: "v1.2.0", GitCommit: "abc1234", BuildTime: "2026-03-01T09:00:00Z"}, "v1.2.0 (abc1234)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
