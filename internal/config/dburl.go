package config

import "strings"

// NormalizeDatabaseURL percent-encodes the username and password of a postgres
// connection URL so passwords containing reserved characters survive parsing.
// Components that already contain a '%' are assumed to be encoded and left alone.
// Non-postgres URLs and URLs without credentials are returned unchanged.
func NormalizeDatabaseURL(raw string) string {
	schemeEnd := strings.Index(raw, "://")
	if schemeEnd < 0 || !strings.HasPrefix(raw[:schemeEnd], "postgres") {
		return raw
	}

	rest := raw[schemeEnd+3:]
	netlocEnd := len(rest)
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		netlocEnd = i
	}
	netloc, tail := rest[:netlocEnd], rest[netlocEnd:]

	at := strings.LastIndex(netloc, "@")
	if at < 0 {
		return raw
	}
	userinfo, hostinfo := netloc[:at], netloc[at+1:]

	username, password, _ := strings.Cut(userinfo, ":")
	username = encodeUserinfoComponent(username)
	password = encodeUserinfoComponent(password)

	encoded := username
	if password != "" {
		encoded += ":" + password
	}

	netloc = hostinfo
	if encoded != "" {
		netloc = encoded + "@" + hostinfo
	}

	return raw[:schemeEnd+3] + netloc + tail
}

func encodeUserinfoComponent(value string) string {
	if value == "" || strings.Contains(value, "%") {
		return value
	}

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
