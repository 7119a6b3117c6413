package utils

import (
	"strings"
	"time"
)

// ParseDuration safely parses duration string like "5m", falling back to def
func ParseDuration(d string, def time.Duration) time.Duration {
	if strings.TrimSpace(d) == "" {
		return def
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return def
	}
	return duration
}

var strftime = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'z': "-0700",
	'Z': "MST",
	'f': "000000",
	'%': "%",
}

// GoLayout converts a strftime style format ("%Y-%m-%d") into a Go time
// layout. Strings without '%' are returned unchanged, so Go layouts pass
// through. Unknown directives are kept literally.
func GoLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			b.WriteByte(c)
			continue
		}
		if layout, ok := strftime[format[i+1]]; ok {
			b.WriteString(layout)
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
