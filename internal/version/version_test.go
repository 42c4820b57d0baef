package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omarluq/bizcache/internal/version"
)

func TestDefaultsAreNonEmpty(t *testing.T) {
	t.Parallel()
	assert.NotEmpty(t, version.Version)
	assert.NotEmpty(t, version.Commit)
	assert.NotEmpty(t, version.BuildDate)
}

// Not parallel: these tests rewrite the package-level build metadata.
func TestShort(t *testing.T) {
	orig := version.Version
	t.Cleanup(func() { version.Version = orig })

	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "dirty describe", version: "v0.0.11-20-ga961617-dirty", want: "v0.0.11-a961617-20"},
		{name: "clean describe", version: "v1.2.0-3-g0abc123", want: "v1.2.0-0abc123-3"},
		{name: "hyphenated tag", version: "v1.0.0-rc1-7-gdeadbee", want: "v1.0.0-rc1-deadbee-7"},
		{name: "exact tag", version: "v1.2.0", want: "v1.2.0"},
		{name: "dev build", version: "dev", want: "dev"},
		{name: "non numeric distance", version: "v1-x-gabc", want: "v1-x-gabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version.Version = tt.version
			assert.Equal(t, tt.want, version.Short())
		})
	}
}

func TestString(t *testing.T) {
	origVersion, origCommit, origDate := version.Version, version.Commit, version.BuildDate
	t.Cleanup(func() {
		version.Version, version.Commit, version.BuildDate = origVersion, origCommit, origDate
	})

	version.Version = "v0.0.11-20-ga961617-dirty"
	version.Commit = "a961617"
	version.BuildDate = "2026-01-02"

	assert.Equal(t, "v0.0.11-a961617-20 (commit: a961617, built: 2026-01-02)", version.String())
}
