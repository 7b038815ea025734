package export

import (
	"fmt"
	"strings"
)

const maxDimensionInName = 20

// Filenames returns the ASCII-only download name and its faithful UTF-8
// form for an export of fileHash, optionally narrowed to dimension.
func Filenames(fileHash, dimension string) (ascii, full string) {
	base := "annotations_" + prefix(fileHash, 8)
	if dimension == "" {
		name := base + ".csv"
		return name, name
	}

	safe := []rune(asciiSafe(dimension))
	if len(safe) > maxDimensionInName {
		safe = safe[:maxDimensionInName]
	}
	return fmt.Sprintf("%s_%s.csv", base, string(safe)), fmt.Sprintf("%s_%s.csv", base, dimension)
}

// ContentDisposition builds an attachment header carrying both the ASCII
// filename and the RFC 5987 filename* parameter.
func ContentDisposition(fileHash, dimension string) string {
	ascii, full := Filenames(fileHash, dimension)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii, encodeExtValue(full))
}

func asciiSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x80 && isNameChar(byte(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '.'
}

// attr-char from RFC 5987 section 3.2.1
func isAttrChar(c byte) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}

// encodeExtValue percent-encodes every byte outside attr-char. The
// mime.ParseMediaType round trip in TestContentDisposition checks it.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
