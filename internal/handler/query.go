package handler

import (
	"net/url"
	"strings"
)

// rawQueryValue returns the first value of key in rawQuery without rejecting
// pairs that url.ParseQuery drops, such as ones holding ';' or a malformed
// '%' escape. '+' decodes to a space; an undecodable part is kept as written.
func rawQueryValue(rawQuery, key string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if lenientUnescape(k) == key {
			return lenientUnescape(v)
		}
	}
	return ""
}

func lenientUnescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
