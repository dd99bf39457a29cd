package portrait

import "strings"

// BlockKind is the paragraph style of a block of interpretation prose.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading1
	Heading2
	Heading3
	Bullet
	Rule
)

// Span is a run of text with a single emphasis.
type Span struct {
	Text string
	Bold bool
}

type Block struct {
	Kind  BlockKind
	Spans []Span
}

// Text concatenates the spans of the block.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

var headingPrefixes = []struct { //nolint:gochecknoglobals // longest prefix first
	prefix string
	kind   BlockKind
}{
	{"### ", Heading3},
	{"## ", Heading2},
	{"# ", Heading1},
}

var bulletPrefixes = []string{"- ", "* ", "• "} //nolint:gochecknoglobals // list markers

// ParseMarkup splits prose into styled blocks. It understands #, ## and ### headings, -, * and • list
// items, --- rules and **bold** spans. Anything else is kept as literal text.
//
// Consecutive non-empty plain lines are joined into one paragraph.
func ParseMarkup(text string) []Block {
	var (
		blocks    []Block
		paragraph []string
	)
	flush := func() {
		if len(paragraph) > 0 {
			blocks = append(blocks, Block{Kind: Paragraph, Spans: parseSpans(strings.Join(paragraph, " "))})
			paragraph = nil
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		if isRule(line) {
			flush()
			blocks = append(blocks, Block{Kind: Rule})
			continue
		}
		if kind, rest, ok := heading(line); ok {
			flush()
			blocks = append(blocks, Block{Kind: kind, Spans: parseSpans(stripBold(rest))})
			continue
		}
		if rest, ok := bullet(line); ok {
			flush()
			blocks = append(blocks, Block{Kind: Bullet, Spans: parseSpans(rest)})
			continue
		}
		paragraph = append(paragraph, line)
	}
	flush()
	return blocks
}

func isRule(line string) bool {
	if len(line) < 3 { //nolint:mnd // "---"
		return false
	}
	return strings.Trim(line, "-") == "" || strings.Trim(line, "*") == "" || strings.Trim(line, "_") == ""
}

func heading(line string) (BlockKind, string, bool) {
	for _, h := range headingPrefixes {
		if rest, ok := strings.CutPrefix(line, h.prefix); ok {
			rest = strings.TrimSpace(rest)
			if rest != "" {
				return h.kind, rest, true
			}
		}
	}
	return Paragraph, "", false
}

func bullet(line string) (string, bool) {
	for _, p := range bulletPrefixes {
		if rest, ok := strings.CutPrefix(line, p); ok {
			rest = strings.TrimSpace(rest)
			if rest != "" {
				return rest, true
			}
		}
	}
	return "", false
}

// stripBold drops emphasis inside headings, which are bold already.
func stripBold(s string) string {
	var sb strings.Builder
	for _, span := range parseSpans(s) {
		sb.WriteString(span.Text)
	}
	return sb.String()
}

// parseSpans splits s on matched ** pairs. An unmatched ** stays literal.
func parseSpans(s string) []Span {
	var spans []Span
	add := func(text string, bold bool) {
		if text == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Bold == bold {
			spans[n-1].Text += text
			return
		}
		spans = append(spans, Span{Text: text, Bold: bold})
	}
	for {
		start := strings.Index(s, "**")
		if start < 0 {
			break
		}
		end := strings.Index(s[start+2:], "**")
		if end < 0 {
			break
		}
		inner := s[start+2 : start+2+end]
		if strings.TrimSpace(inner) == "" {
			add(s[:start+2+end+2], false)
			s = s[start+2+end+2:]
			continue
		}
		add(s[:start], false)
		add(inner, true)
		s = s[start+2+end+2:]
	}
	add(s, false)
	return spans
}
