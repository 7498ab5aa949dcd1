package venue

import (
	"net/url"
	"regexp"
	"strings"
)

// Storage-provider URL shapes that carry an extractable file identifier.
var driveURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`^https?://drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`^https?://drive\.google\.com/uc\?(?:export=(?:view|download)&)?id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`^https?://drive\.google\.com/thumbnail\?id=([a-zA-Z0-9_-]+)`),
}

// ImageResolver rewrites storage-provider image URLs to proxied URLs. URLs it
// does not recognize pass through unchanged; it never fails.
type ImageResolver struct {
	// ProxyBase is the image proxy endpoint, absolute or relative
	// (e.g. "/images/proxy"). When empty, Resolve falls back to a direct
	// provider thumbnail URL, acceptable for local development only.
	ProxyBase string
}

// Resolve maps an external image URL to a URL appropriate for serving.
func (ir ImageResolver) Resolve(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "data:") {
		return raw
	}

	id := ExtractDriveID(raw)
	if id == "" {
		return raw
	}

	if ir.ProxyBase != "" {
		return ir.ProxyBase + "?id=" + url.QueryEscape(id)
	}

	return "https://drive.google.com/thumbnail?id=" + url.QueryEscape(id) + "&sz=w640"
}

// ExtractDriveID extracts the file identifier from the known provider URL
// shapes. Returns an empty string when no identifier is found.
func ExtractDriveID(raw string) string {
	for _, re := range driveURLPatterns {
		if m := re.FindStringSubmatch(raw); len(m) >= 2 {
			return m[1]
		}
	}

	return ""
}
