package remote

import "strings"

const upperhex = "0123456789ABCDEF"

// uriKeep lists the non-alphanumeric bytes left as-is
// when encoding a full URI: the reserved set plus the
// unreserved marks, and '#'.
const uriKeep = ";,/?:@&=+$-_.!~*'()#"

// EncodeURI percent-encodes s for use as a complete URI.
// Separators keep their meaning; spaces, '%', non-ASCII
// bytes and other unsafe characters are escaped.
func EncodeURI(s string) string {
	var sb strings.Builder

	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			sb.WriteByte(c)

			continue
		}

		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&0x0f])
	}

	return sb.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z',
		'A' <= c && c <= 'Z',
		'0' <= c && c <= '9':
		return true
	}

	return strings.IndexByte(uriKeep, c) >= 0
}
