// Package extract holds the field-level helpers shared by every source:
// logo URL normalization, description cleanup and goquery text utilities.
package extract

import (
	"net/url"
	"path"
	"strings"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".svg":  {},
	".avif": {},
	".bmp":  {},
	".ico":  {},
}

// LogoURL picks the best logo candidate from an <img>-like element.
// The last (largest) srcset entry wins over src unless it is not an image
// URL, in which case src is tried. Query strings and fragments are stripped;
// anything that does not end in an image extension yields "".
func LogoURL(src, srcset string) string {
	if candidate := NormalizeImageURL(LargestSrcsetURL(srcset)); candidate != "" {
		return candidate
	}
	return NormalizeImageURL(src)
}

// PageLogoURL is LogoURL resolved against the page the element came from, so
// relative and protocol-relative paths become fetchable URLs.
func PageLogoURL(pageURL, src, srcset string) string {
	logo := LogoURL(src, srcset)
	if logo == "" {
		return ""
	}
	return ResolveURL(pageURL, logo)
}

// LargestSrcsetURL returns the URL of the last "url size" pair in srcset.
func LargestSrcsetURL(srcset string) string {
	parts := strings.Split(srcset, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		fields := strings.Fields(parts[i])
		if len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// NormalizeImageURL strips query and fragment and keeps only image URLs.
func NormalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if !HasImageExtension(raw) {
		return ""
	}
	return raw
}

// HasImageExtension reports whether the path of raw ends in a known raster or
// vector image extension.
func HasImageExtension(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// ResolveURL makes ref absolute against base. Unparseable input yields "".
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

// CanonicalJobURL drops tracking query parameters and fragments so the same
// posting always produces the same dedup key.
func CanonicalJobURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() {
		return ""
	}
	u.Fragment = ""
	u.RawQuery = ""
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
