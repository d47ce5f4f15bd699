package rsync

import (
	"strings"

	"github.com/sidkik/rsyncer/pkg/errors"
)

// Remote is a synchronization destination of the form `[user@]host:path`.
type Remote struct {
	User string
	Host string
	Path string
}

func (r Remote) String() string {
	host := r.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if r.User != "" {
		host = r.User + "@" + host
	}
	return host + ":" + r.Path
}

// ParseRemote parses a remote target. IPv6 hosts must be wrapped in brackets,
// e.g. `deploy@[::1]:/srv/app`. An empty path refers to the remote user's home
// directory.
func ParseRemote(remote string) (Remote, error) {
	invalid := func(reason string) (Remote, error) {
		return Remote{}, errors.InvalidRemoteError{Remote: remote, Reason: reason}
	}

	var r Remote
	rest := remote
	if at := strings.Index(rest, "@"); at >= 0 && at < strings.IndexAny(rest, ":[") {
		r.User = rest[:at]
		rest = rest[at+1:]
		if r.User == "" {
			return invalid("empty user")
		}
	}

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return invalid("unterminated IPv6 host")
		}
		r.Host = rest[1:end]
		rest = rest[end+1:]
		if !strings.HasPrefix(rest, ":") {
			return invalid("expected `:` after host")
		}
		r.Path = rest[1:]
	} else {
		colon := strings.Index(rest, ":")
		if colon < 0 {
			return invalid("expected the form [user@]host:path")
		}
		r.Host = rest[:colon]
		r.Path = rest[colon+1:]
	}

	if r.Host == "" {
		return invalid("empty host")
	}
	if strings.ContainsAny(r.Host, "/ ") {
		return invalid("host contains a path separator or whitespace")
	}
	return r, nil
}
