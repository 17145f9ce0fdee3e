// Package markdown renders notification bodies and derives their excerpt,
// reading time, and word count.
//
// Bodies arrive either as Markdown (typed in the editor or uploaded as a
// .md file) or as HTML produced by the rich-text editor.  Only the former
// is rendered; HTML passes through unchanged.
package markdown

import (
	"bytes"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// ExcerptLength is the rune budget of generated excerpts.
const ExcerptLength = 200

// charsPerMinute is the reading speed used for ReadingTime.
const charsPerMinute = 300

// mdRenderer escapes raw HTML in Markdown input (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s`),
	regexp.MustCompile(`\*\*.*?\*\*`),
	regexp.MustCompile("`[^`]+`"),
	regexp.MustCompile(`(?m)^\s*[-*+]\s`),
	regexp.MustCompile(`(?m)^\s*\d+\.\s`),
	regexp.MustCompile(`!?\[[^\]]*\]\([^)]*\)`),
	regexp.MustCompile(`(?m)^\s*>\s`),
	regexp.MustCompile(`(?m)^\|.*\|$`),
	regexp.MustCompile(`(?m)^\s*---+\s*$`),
}

var (
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	englishWord = regexp.MustCompile(`[A-Za-z]+`)
	spaces      = regexp.MustCompile(`\s+`)
)

// LooksLikeMarkdown reports whether s uses any common Markdown syntax.
func LooksLikeMarkdown(s string) bool {
	for _, re := range markdownPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ToHTML renders Markdown source.
func ToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PlainText returns the visible text of Markdown source, blocks separated
// by single spaces.
func PlainText(src string) string {
	source := []byte(src)
	doc := mdRenderer.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(spaces.ReplaceAllString(b.String(), " "))
}

// StripHTML drops tags from editor-produced HTML.
func StripHTML(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(htmlTag.ReplaceAllString(s, " "), " "))
}

// Excerpt cuts text to at most max runes, preferring whole sentences
// ending in "。".  Text that fits is returned unchanged.
func Excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	var out strings.Builder
	n := 0
	for _, sentence := range strings.SplitAfter(s, "。") {
		c := utf8.RuneCountInString(sentence)
		if !strings.HasSuffix(sentence, "。") || n+c > max {
			break
		}
		out.WriteString(sentence)
		n += c
	}
	if out.Len() > 0 {
		return out.String()
	}
	return string([]rune(s)[:max]) + "..."
}

// WordCount counts CJK characters plus Latin words.
func WordCount(s string) int {
	cjk := 0
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			cjk++
		}
	}
	return cjk + len(englishWord.FindAllString(s, -1))
}

// ReadingTime returns whole minutes at 300 words per minute, minimum one.
func ReadingTime(s string) int {
	m := int(math.Round(float64(WordCount(s)) / charsPerMinute))
	if m < 1 {
		return 1
	}
	return m
}

// Summary is the derived presentation of one body.
type Summary struct {
	HTML        string
	Raw         string
	Excerpt     string
	WordCount   int
	ReadingTime int
}

// Summarize renders Markdown bodies and passes HTML through, then derives
// the excerpt and counters from the visible text.
func Summarize(body string) (Summary, error) {
	if LooksLikeMarkdown(body) {
		html, err := ToHTML(body)
		if err != nil {
			return Summary{}, err
		}
		plain := PlainText(body)
		return Summary{
			HTML:        html,
			Raw:         body,
			Excerpt:     Excerpt(plain, ExcerptLength),
			WordCount:   WordCount(plain),
			ReadingTime: ReadingTime(plain),
		}, nil
	}
	plain := StripHTML(body)
	return Summary{
		HTML:        body,
		Raw:         body,
		Excerpt:     Excerpt(plain, ExcerptLength),
		WordCount:   WordCount(plain),
		ReadingTime: ReadingTime(plain),
	}, nil
}
