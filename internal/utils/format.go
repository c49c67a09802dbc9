package utils

import (
	"fmt"
	"strings"
	"time"
)

// MaxMessageLength is the platform's limit for message content.
const MaxMessageLength = 2000

func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour

	m := d / time.Minute
	d -= m * time.Minute

	s := d / time.Second

	parts := []string{}

	if h > 0 {
		if h == 1 {
			parts = append(parts, "1 hora")
		} else {
			parts = append(parts, fmt.Sprintf("%d horas", h))
		}
	}

	if m > 0 {
		if m == 1 {
			parts = append(parts, "1 minuto")
		} else {
			parts = append(parts, fmt.Sprintf("%d minutos", m))
		}
	}

	if s > 0 {
		if s == 1 {
			parts = append(parts, "1 segundo")
		} else {
			parts = append(parts, fmt.Sprintf("%d segundos", s))
		}
	}

	switch len(parts) {
	case 0:
		return "0 segundos"
	case 1:
		return parts[0]
	}

	return strings.Join(parts[:len(parts)-1], ", ") + " y " + parts[len(parts)-1]
}

func FormatChannelMention(id string) string {
	return fmt.Sprintf("<#%s>", id)
}

// ParseMention extracts the id from a user, role or channel mention, or
// returns s unchanged when it is not one.
func ParseMention(s string) string {
	for _, prefix := range []string{"<@&", "<@!", "<@", "<#"} {
		if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, ">") {
			return s[len(prefix) : len(s)-1]
		}
	}
	return s
}

// SplitMessage breaks content into chunks that fit in one message, cutting
// at line boundaries where possible.
func SplitMessage(content string, limit int) []string {
	if len(content) <= limit {
		return []string{content}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.SplitAfter(content, "\n") {
		for len(line) > limit {
			flush()
			cut := runeBoundary(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if current.Len()+len(line) > limit {
			flush()
		}
		current.WriteString(line)
	}
	flush()

	return chunks
}

// runeBoundary returns the largest index <= n that does not split a UTF-8
// sequence.
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return n
}
