package utils

import (
	"bytes"
	"os/exec"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/xid"
)

func GenerateID() string {
	return xid.New().String()
}

func GetCommit() string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}

	return strings.TrimSpace(out.String())
}

// Token is one argument of a command line. End is the byte offset just past
// the token in the original string, so callers can take the raw remainder.
type Token struct {
	Value string
	End   int
}

// Tokenize splits s on whitespace. A token starting with a double quote runs
// to the matching quote and may contain spaces; an unterminated quote runs
// to the end of the line.
func Tokenize(s string) []Token {
	var tokens []Token

	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}

		if s[i] == '"' {
			closing := strings.IndexByte(s[i+1:], '"')
			if closing < 0 {
				tokens = append(tokens, Token{Value: s[i+1:], End: len(s)})
				break
			}
			end := i + 1 + closing
			tokens = append(tokens, Token{Value: s[i+1 : end], End: end + 1})
			i = end + 1
			continue
		}

		start := i
		end := strings.IndexFunc(s[i:], unicode.IsSpace)
		if end < 0 {
			i = len(s)
		} else {
			i += end
		}
		tokens = append(tokens, Token{Value: s[start:i], End: i})
	}

	return tokens
}
