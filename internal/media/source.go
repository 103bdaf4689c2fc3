package media

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// SourceID returns the stable identifier for a media reference. Remote URLs
// yield their 11 character video id when one is present, otherwise the first
// 11 hex characters of the URL's MD5. Local files yield the basename without
// its extension.
func SourceID(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if !IsRemote(ref) {
		base := filepath.Base(ref)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	if match := videoIDPattern.FindStringSubmatch(ref); len(match) == 2 {
		return match[1]
	}
	sum := md5.Sum([]byte(ref)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:11]
}
