package transform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Ramsey-B/trellis/pkg/utils"
	lru "github.com/hashicorp/golang-lru/v2"
)

// substring clamps both indices into [0, len] and swaps them when start is
// past end, so it never fails. Indices count runes.
func substring(str string, start, end *int) string {
	runes := []rune(str)
	length := len(runes)

	from := 0
	if start != nil {
		from = *start
	}
	to := length
	if end != nil {
		to = *end
	}

	from = clamp(from, 0, length)
	to = clamp(to, 0, length)
	if from > to {
		from, to = to, from
	}

	return string(runes[from:to])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// applyMask copies pattern, consuming one input rune per '#'. Once the input
// runs out the remaining '#' slots are dropped while literals still emit.
func applyMask(input, pattern string) string {
	if pattern == "" {
		return input
	}

	runes := []rune(input)
	var sb strings.Builder
	next := 0

	for _, c := range pattern {
		if c != '#' {
			sb.WriteRune(c)
			continue
		}
		if next < len(runes) {
			sb.WriteRune(runes[next])
			next++
		}
	}

	return sb.String()
}

// applyTemplate substitutes every {i} placeholder with the i-th value.
func applyTemplate(template string, values []any) string {
	result := template
	for i, v := range values {
		result = strings.ReplaceAll(result, "{"+strconv.Itoa(i)+"}", utils.ToString(v))
	}
	return result
}

type regexCache struct {
	compiled *lru.Cache[string, *regexp.Regexp]
}

func newRegexCache(size int) *regexCache {
	compiled, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return &regexCache{compiled: compiled}
}

func (c *regexCache) get(pattern string) (*regexp.Regexp, error) {
	if re, ok := c.compiled.Get(pattern); ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	c.compiled.Add(pattern, re)
	return re, nil
}

// replaceAll replaces every match of pattern. The replacement understands
// $&, $n and $$ references.
func (c *regexCache) replaceAll(str, pattern, replacement string) (string, error) {
	re, err := c.get(pattern)
	if err != nil {
		return str, err
	}
	return re.ReplaceAllString(str, convertReplacement(replacement, re.NumSubexp())), nil
}

// convertReplacement rewrites a $-style replacement into regexp.Expand
// syntax. References to groups that do not exist stay literal.
func convertReplacement(replacement string, groups int) string {
	var sb strings.Builder
	for i := 0; i < len(replacement); i++ {
		c := replacement[i]
		if c != '$' || i+1 >= len(replacement) {
			if c == '$' {
				sb.WriteString("$$")
			} else {
				sb.WriteByte(c)
			}
			continue
		}

		next := replacement[i+1]
		switch {
		case next == '$':
			sb.WriteString("$$")
			i++
		case next == '&':
			sb.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			n := int(next - '0')
			width := 1
			if i+2 < len(replacement) && replacement[i+2] >= '0' && replacement[i+2] <= '9' {
				if two := n*10 + int(replacement[i+2]-'0'); two >= 1 && two <= groups {
					n = two
					width = 2
				}
			}
			if n >= 1 && n <= groups {
				sb.WriteString("${" + strconv.Itoa(n) + "}")
				i += width
			} else {
				sb.WriteString("$$")
			}
		default:
			sb.WriteString("$$")
		}
	}
	return sb.String()
}
