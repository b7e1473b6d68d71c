package karma

import (
	"regexp"
	"strings"
)

var (
	// thing++ / thing-- / thing– (Slack turns "--" into an en dash).
	changeMatcher = regexp.MustCompile("([^\\s`]{2,}[^+\\-\\s`])(--|\\+\\+|–)(?:\\s|$|\\n|\\+|-)")
	// thing++ for|because|due to <reason>, up to the end of the line.
	reasonMatcher = regexp.MustCompile("([^\\s`]{2,}[^+\\-\\s`])(--|\\+\\+)\\s((for|because|due to).*)($|\\n)")
	preformatted  = regexp.MustCompile("`[^`]*`")
)

// Change is one karma change found in a message.
type Change struct {
	Name      string
	Increment bool
	Reason    string
}

// Amount is +1 or -1.
func (c Change) Amount() int64 {
	if c.Increment {
		return 1
	}
	return -1
}

// Parse finds the karma changes in text. Changes without a reason come
// first, then changes with one, each group in order of appearance. Changes
// inside backticks are ignored.
func Parse(text string) []Change {
	blocks := preformatted.FindAllStringIndex(text, -1)
	reasons := reasonMatcher.FindAllStringSubmatchIndex(text, -1)

	reasonStarts := make(map[int]bool, len(reasons))
	for _, r := range reasons {
		reasonStarts[r[0]] = true
	}

	var plain [][]int
	for _, m := range changeMatcher.FindAllStringSubmatchIndex(text, -1) {
		if !reasonStarts[m[0]] {
			plain = append(plain, m)
		}
	}

	var out []Change
	for _, m := range plain {
		if insideBlock(blocks, m[0], m[1]) {
			continue
		}
		out = append(out, Change{
			Name:      strings.TrimSpace(text[m[2]:m[3]]),
			Increment: text[m[4]:m[5]] == "++",
		})
	}

	for _, r := range reasons {
		start, end := r[6], r[7]
		// A reason stops where the next change on the same line begins.
		for _, m := range plain {
			if m[0] > start && m[0] < end {
				end = m[0] - 1
			}
		}
		out = append(out, Change{
			Name:      strings.TrimSpace(text[r[2]:r[3]]),
			Increment: text[r[4]:r[5]] == "++",
			Reason:    strings.TrimSpace(text[start:end]),
		})
	}

	return out
}

func insideBlock(blocks [][]int, start, end int) bool {
	for _, b := range blocks {
		if start > b[0] && end < b[1] {
			return true
		}
	}
	return false
}
