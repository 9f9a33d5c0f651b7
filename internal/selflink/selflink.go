// Package selflink extracts identifiers from Google Cloud self-link URLs.
//
// Self links encode identifiers as ".../<segment>/<value>[/...]", for example
// https://www.googleapis.com/compute/v1/projects/p/zones/us-east1-b/instances/vm1.
package selflink

import (
	"net/netip"
	"strings"
)

// Param returns the path component following the first component equal to
// segment. It returns "" when url is empty, the segment is absent, or the
// segment is the last component.
func Param(url, segment string) string {
	if url == "" || segment == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	for i, p := range parts {
		if p != segment {
			continue
		}
		if i+1 < len(parts) {
			return parts[i+1]
		}
		return ""
	}
	return ""
}

// Last returns the final path component of url.
func Last(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

// RegionFromZone strips the zone letter suffix: "us-east1-b" -> "us-east1".
// Malformed zone names yield "".
func RegionFromZone(zone string) string {
	i := strings.LastIndex(zone, "-")
	if i <= 0 || i == len(zone)-1 {
		return ""
	}
	for _, c := range zone[i+1:] {
		if c < 'a' || c > 'z' {
			return ""
		}
	}
	return zone[:i]
}

// IsIPAddress reports whether s is a literal IPv4 or IPv6 address.
func IsIPAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
