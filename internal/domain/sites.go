package domain

import "strings"

// BareHost reduces a site value to the bare hostname used in link math.
// Examples: "https://a.example/wp" -> "a.example", " b.example " -> "b.example".
// Case and port are preserved; site matching is exact-string.
func BareHost(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "//")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// RemoteOf returns whichever of site1/site2 is not the local site.
// When neither matches, site1 is returned.
func RemoteOf(site1, site2, localSite string) string {
	if site1 == localSite {
		return site2
	}
	return site1
}

// IsLocal reports whether either site is the local installation.
func IsLocal(site1, site2, localSite string) bool {
	return site1 == localSite || site2 == localSite
}

// OriginOf builds the only origin a remote site is trusted under.
func OriginOf(site string) string {
	return "https://" + site
}
