package importer

import (
	"fmt"
	"strings"
)

var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'z': "-0700",
	'Z': "MST",
	'f': "000000",
	'%': "%",
}

// strftimeLayout translates a strftime-style format ("%Y-%m-%d %H:%M") into a
// Go time layout. Go layouts cannot escape literal text, so literals holding
// digits, '_' or letters other than the ISO 8601 'T' and 'Z' are rejected.
func strftimeLayout(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			if !literalSafe(c) {
				return "", fmt.Errorf("format %q: literal %q cannot be expressed as a time layout", format, c)
			}
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("format %q ends with a lone %%", format)
		}
		i++
		layout, ok := strftimeDirectives[format[i]]
		if !ok {
			return "", fmt.Errorf("format %q: unsupported directive %%%c", format, format[i])
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}

func literalSafe(c byte) bool {
	switch {
	case c == 'T' || c == 'Z':
		return true
	case c >= '0' && c <= '9', c == '_':
		return false
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return false
	}
	return true
}
