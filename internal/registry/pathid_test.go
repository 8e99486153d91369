package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/logan/internal/domain"
)

func TestOwnerID(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{
			name: "docker container log",
			path: "/var/lib/docker/containers/abc123/abc123-json.log",
			want: "abc123",
		},
		{
			name: "simple path",
			path: "/logs/abc123-json.log",
			want: "abc123",
		},
		{
			name: "stops at first suffix",
			path: "/logs/first-json.log/second-json.log",
			want: "first",
		},
		{
			name: "hyphen is not a word character",
			path: "/logs/my-app-json.log",
			want: "app",
		},
		{
			name: "underscore is a word character",
			path: "/logs/web_1-json.log",
			want: "web_1",
		},
		{
			name: "skips suffix without identifier",
			path: "/logs/-json.log/x/def456-json.log",
			want: "def456",
		},
		{
			name:    "no marker",
			path:    "/var/log/syslog.log",
			wantErr: true,
		},
		{
			name:    "marker only",
			path:    "/-json.log",
			wantErr: true,
		},
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OwnerID(tt.path, "-json.log")
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUnresolvableOwner)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOwnerID_CustomSuffix(t *testing.T) {
	got, err := OwnerID("/srv/logs/worker7.out.log", ".out.log")
	require.NoError(t, err)
	assert.Equal(t, "worker7", got)

	_, err = OwnerID("/srv/logs/worker7.log", "")
	assert.ErrorIs(t, err, domain.ErrUnresolvableOwner)
}
