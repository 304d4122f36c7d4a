package version

import (
	"runtime/debug"
	"testing"
)

func TestString(t *testing.T) {
	savedVersion, savedCommit, savedRead := Version, Commit, readBuildInfo
	defer func() { Version, Commit, readBuildInfo = savedVersion, savedCommit, savedRead }()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildInfo string
		want      string
	}{
		{"dev with commit", "dev", "abc1234", "", "dev (abc1234)"},
		{"dev no commit", "dev", "", "", "dev"},
		{"dev devel build info", "dev", "", "(devel)", "dev"},
		{"dev module version", "dev", "", "v0.2.1", "v0.2.1"},
		{"release ignores commit", "v1.0.0", "abc1234", "v0.2.1", "v1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit = tt.version, tt.commit
			readBuildInfo = func() (*debug.BuildInfo, bool) {
				if tt.buildInfo == "" {
					return nil, false
				}
				return &debug.BuildInfo{Main: debug.Module{Version: tt.buildInfo}}, true
			}
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
