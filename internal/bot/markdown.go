package bot

import "strings"

// MaxChunk is the longest single reply the bot sends.
const MaxChunk = 4000

var markdownV2 = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// EscapeMarkdownV2 escapes every character Telegram reserves in MarkdownV2.
func EscapeMarkdownV2(s string) string {
	return markdownV2.Replace(s)
}

// Chunk splits s into pieces of at most limit runes. A cut never lands
// between a backslash and the character it escapes.
func Chunk(s string, limit int) []string {
	if s == "" {
		return nil
	}
	if limit <= 1 {
		limit = MaxChunk
	}
	runes := []rune(s)
	var out []string
	for len(runes) > 0 {
		cut := limit
		if cut >= len(runes) {
			out = append(out, string(runes))
			break
		}
		if trailingBackslashes(runes[:cut])%2 == 1 {
			cut--
		}
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	return out
}

func trailingBackslashes(r []rune) int {
	n := 0
	for i := len(r) - 1; i >= 0 && r[i] == '\\'; i-- {
		n++
	}
	return n
}
