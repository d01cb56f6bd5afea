package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/coderag/coderag/internal/chunk"
)

// Markdown splits a documentation file into chunks following heading
// hierarchy, attaching frontmatter-derived title/tags/aliases and
// extracted wikilinks/hashtags to every chunk produced from the file.
//
// Grounded on the teacher's documentation chunker (heading split, code
// block preservation, paragraph/sentence fallback for oversized
// sections), extended with frontmatter and link/tag extraction per the
// markdown/documentation variant of the chunking contract.
type Markdown struct {
	MaxTokens int
}

// NewMarkdown returns a Markdown chunker with the given per-chunk token
// budget. A non-positive maxTokens falls back to DefaultMaxTokens.
func NewMarkdown(maxTokens int) *Markdown {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Markdown{MaxTokens: maxTokens}
}

var (
	headingPattern    = regexp.MustCompile(`^#{1,6}\s+`)
	codeFencePattern  = regexp.MustCompile("^```")
	frontmatterDelim  = regexp.MustCompile(`^---\s*$`)
	frontmatterTitle  = regexp.MustCompile(`(?m)^title:\s*"?([^"\n]+)"?\s*$`)
	frontmatterTags   = regexp.MustCompile(`(?m)^tags:\s*\[([^\]]*)\]\s*$`)
	frontmatterAlias  = regexp.MustCompile(`(?m)^aliases:\s*\[([^\]]*)\]\s*$`)
	wikilinkPattern   = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
	hashtagPattern    = regexp.MustCompile(`(^|\s)#([A-Za-z][\w/-]*)`)
)

type frontmatter struct {
	title   string
	tags    []string
	aliases []string
}

// Chunk implements the §4.1 markdown/documentation chunking variant.
func (m *Markdown) Chunk(ctx context.Context, filePath, content string) ([]chunk.Chunk, error) {
	fm, body := parseFrontmatter(content)

	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	lines := strings.Split(body, "\n")
	sections := splitByHeadings(lines)

	var out []chunk.Chunk
	for idx, sec := range sections {
		chunks, err := m.processSection(filePath, idx, sec, fm)
		if err != nil {
			return nil, err
		}
		out = append(out, chunks...)
	}
	return out, nil
}

func parseFrontmatter(content string) (frontmatter, string) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || !frontmatterDelim.MatchString(lines[0]) {
		return frontmatter{}, content
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if frontmatterDelim.MatchString(lines[i]) {
			end = i
			break
		}
	}
	if end == -1 {
		return frontmatter{}, content
	}

	raw := strings.Join(lines[1:end], "\n")
	fm := frontmatter{}
	if m := frontmatterTitle.FindStringSubmatch(raw); len(m) > 1 {
		fm.title = strings.TrimSpace(m[1])
	}
	if m := frontmatterTags.FindStringSubmatch(raw); len(m) > 1 {
		fm.tags = splitCSVList(m[1])
	}
	if m := frontmatterAlias.FindStringSubmatch(raw); len(m) > 1 {
		fm.aliases = splitCSVList(m[1])
	}

	rest := strings.Join(lines[end+1:], "\n")
	return fm, rest
}

func splitCSVList(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"'`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type mdSection struct {
	startLine int
	lines     []string
}

func splitByHeadings(lines []string) []mdSection {
	var sections []mdSection
	current := mdSection{startLine: 1}

	for i, line := range lines {
		if headingPattern.MatchString(line) && i > 0 {
			if len(current.lines) > 0 {
				sections = append(sections, current)
			}
			current = mdSection{startLine: i + 1, lines: []string{line}}
		} else {
			current.lines = append(current.lines, line)
		}
	}
	if len(current.lines) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func (m *Markdown) processSection(filePath string, sectionIdx int, sec mdSection, fm frontmatter) ([]chunk.Chunk, error) {
	text := strings.Join(sec.lines, "\n")
	if estimateTokens(text) <= m.MaxTokens {
		return []chunk.Chunk{
			newDocChunk(filePath, sec.startLine, sec.startLine+len(sec.lines)-1, strings.TrimSpace(text), fm),
		}, nil
	}
	return m.splitByParagraphs(filePath, sec, fm)
}

type mdParagraph struct {
	text      string
	startLine int
	endLine   int
}

func (m *Markdown) splitByParagraphs(filePath string, sec mdSection, fm frontmatter) ([]chunk.Chunk, error) {
	paragraphs := extractParagraphs(sec.lines, sec.startLine)

	var out []chunk.Chunk
	var current []mdParagraph
	currentSize := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, p := range current {
			texts[i] = p.text
		}
		out = append(out, newDocChunk(filePath, current[0].startLine, current[len(current)-1].endLine, strings.Join(texts, "\n\n"), fm))
		current = nil
		currentSize = 0
	}

	for _, para := range paragraphs {
		size := estimateTokens(para.text)

		if currentSize > 0 && currentSize+size > m.MaxTokens {
			flush()
		}

		if size > m.MaxTokens {
			out = append(out, m.splitLargeParagraph(filePath, para, fm)...)
			continue
		}

		current = append(current, para)
		currentSize += size
	}
	flush()

	return out, nil
}

func extractParagraphs(lines []string, startLine int) []mdParagraph {
	var paragraphs []mdParagraph
	var current []string
	currentStart := startLine
	inCode := false

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			paragraphs = append(paragraphs, mdParagraph{text: text, startLine: currentStart, endLine: endLine})
		}
		current = nil
	}

	for i, line := range lines {
		lineNum := startLine + i

		if codeFencePattern.MatchString(line) {
			if !inCode {
				flush(lineNum - 1)
				inCode = true
				currentStart = lineNum
				current = append(current, line)
			} else {
				current = append(current, line)
				flush(lineNum)
				currentStart = lineNum + 1
				inCode = false
			}
			continue
		}

		if inCode {
			current = append(current, line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush(lineNum - 1)
			currentStart = lineNum + 1
		} else {
			current = append(current, line)
		}
	}
	flush(startLine + len(lines) - 1)

	return paragraphs
}

func (m *Markdown) splitLargeParagraph(filePath string, para mdParagraph, fm frontmatter) []chunk.Chunk {
	sentencePattern := regexp.MustCompile(`[.!?]+\s+`)
	sentences := sentencePattern.Split(para.text, -1)

	var out []chunk.Chunk
	var current []string
	currentSize := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, newDocChunk(filePath, para.startLine, para.endLine, strings.Join(current, " "), fm))
		current = nil
		currentSize = 0
	}

	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		size := estimateTokens(s)
		if currentSize > 0 && currentSize+size > m.MaxTokens {
			flush()
		}
		current = append(current, s)
		currentSize += size
	}
	flush()

	return out
}

func newDocChunk(filePath string, startLine, endLine int, text string, fm frontmatter) chunk.Chunk {
	links := extractWikilinks(text)
	tags := append([]string{}, fm.tags...)
	tags = append(tags, extractHashtags(text)...)

	ch := chunk.Chunk{
		Content:   text,
		FilePath:  filePath,
		StartLine: startLine,
		EndLine:   endLine,
		Language:  "markdown",
		Metadata: chunk.Metadata{
			ChunkType: chunk.TypeDoc,
			Name:      headingName(text, fm.title),
			Links:     links,
			Tags:      dedupe(tags),
			Aliases:   fm.aliases,
			Title:     fm.title,
		},
	}
	return ch.WithID()
}

func headingName(text, title string) string {
	for _, line := range strings.Split(text, "\n") {
		if headingPattern.MatchString(line) {
			return strings.TrimSpace(headingPattern.ReplaceAllString(line, ""))
		}
	}
	return title
}

func extractWikilinks(text string) []string {
	matches := wikilinkPattern.FindAllStringSubmatch(text, -1)
	var out []string
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func extractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	var out []string
	for _, m := range matches {
		out = append(out, m[2])
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
