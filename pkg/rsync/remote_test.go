package rsync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/rsyncer/pkg/errors"
)

func TestParseRemote(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		exp       Remote
		expReason string
	}{
		{
			name:   "Host and path",
			remote: "web1:/srv/app",
			exp:    Remote{Host: "web1", Path: "/srv/app"},
		},
		{
			name:   "User, host and path",
			remote: "deploy@web1.example.com:/srv/app",
			exp:    Remote{User: "deploy", Host: "web1.example.com", Path: "/srv/app"},
		},
		{
			name:   "Empty path",
			remote: "deploy@web1:",
			exp:    Remote{User: "deploy", Host: "web1"},
		},
		{
			name:   "At sign in the path",
			remote: "web1:/srv/app@v2",
			exp:    Remote{Host: "web1", Path: "/srv/app@v2"},
		},
		{
			name:   "IPv6 host",
			remote: "deploy@[fe80::1]:/srv",
			exp:    Remote{User: "deploy", Host: "fe80::1", Path: "/srv"},
		},
		{
			name:      "Local path",
			remote:    "/srv/app",
			expReason: "expected the form [user@]host:path",
		},
		{
			name:      "Empty host",
			remote:    ":/srv/app",
			expReason: "empty host",
		},
		{
			name:      "Empty user",
			remote:    "@web1:/srv/app",
			expReason: "empty user",
		},
		{
			name:      "Relative local path with a colon",
			remote:    "./dir:name",
			expReason: "host contains a path separator or whitespace",
		},
		{
			name:      "Unterminated IPv6 host",
			remote:    "[fe80::1:/srv",
			expReason: "unterminated IPv6 host",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			remote, err := ParseRemote(test.remote)
			if test.expReason != "" {
				assert.Equal(t, errors.InvalidRemoteError{
					Remote: test.remote,
					Reason: test.expReason,
				}, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, test.exp, remote)
			assert.Equal(t, test.remote, remote.String())
		})
	}
}
