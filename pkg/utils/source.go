package utils

import (
	"net/url"
	"strings"
)

// IsRemote reports whether source is an http(s) URL rather than a local path.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// VideoID returns the YouTube video id referenced by ref. A bare id is
// returned as is; URLs are accepted in the watch, youtu.be, embed, shorts
// and /v/ forms.
func VideoID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if !strings.Contains(ref, "/") && !strings.Contains(ref, ".") {
		return ref, true
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	switch {
	case host == "youtu.be":
		id, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		return id, id != ""
	case strings.HasSuffix(host, "youtube.com"):
		if id := u.Query().Get("v"); id != "" {
			return id, true
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/v/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				id, _, _ := strings.Cut(rest, "/")
				return id, id != ""
			}
		}
	}
	return "", false
}
