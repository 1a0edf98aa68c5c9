package session

import (
	"net/http"
	"strings"
)

// Jar is a parsed Cookie header. When a name repeats, the first value wins,
// matching how browsers order more specific cookies first.
type Jar map[string]string

// ParseCookies splits a Cookie header on ';' and parses each pair on its own.
// Malformed pairs are dropped instead of failing the whole header.
func ParseCookies(header string) Jar {
	jar := Jar{}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cookies, err := http.ParseCookie(part)
		if err != nil || len(cookies) != 1 {
			continue
		}
		ck := cookies[0]
		if _, exists := jar[ck.Name]; exists {
			continue
		}
		jar[ck.Name] = ck.Value
	}
	return jar
}

// CookieHeader joins every Cookie header line of r; an empty result means no
// cookies were sent.
func CookieHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Cookie"), "; ")
}

func (j Jar) Get(name string) (string, bool) {
	v, ok := j[name]
	return v, ok
}
