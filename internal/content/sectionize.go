package content

import (
	"regexp"
	"strings"

	"github.com/phrazzld/docgen-api/internal/domain"
)

const (
	introductionTitle = "Introduction"
	fallbackTitle     = "Generated Content"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})[ \t]+(\S.*?)(?:[ \t]+#+)?[ \t]*$`)

type heading struct {
	rank  int
	title string
}

// parseHeading recognises an ATX heading line.
func parseHeading(line string) (heading, bool) {
	m := headingPattern.FindStringSubmatch(line)
	if m == nil {
		return heading{}, false
	}
	title := strings.TrimSpace(m[2])
	if title == "" {
		return heading{}, false
	}
	return heading{rank: len(m[1]), title: title}, true
}

// Sectionize splits raw text into ordered sections. The lowest heading rank
// present among rank-1 and rank-2 headings is the split rank; deeper
// headings stay inside the current section. Text before the first split
// heading becomes an "Introduction" section when it is not blank. Text with
// no rank-1 or rank-2 heading becomes a single section titled by keyword
// matching. Headings inside fenced code blocks are ignored. Blank input
// yields an empty slice.
func Sectionize(raw string) []domain.Section {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return []domain.Section{}
	}

	lines := strings.Split(text, "\n")
	splitRank := findSplitRank(lines)
	if splitRank == 0 {
		body := strings.TrimSpace(text)
		return []domain.Section{{Title: InferTitle(body), Content: body}}
	}

	var (
		sections []domain.Section
		title    string
		inside   bool
		buf      []string
		inFence  bool
	)
	flush := func() {
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		switch {
		case inside:
			sections = append(sections, domain.Section{Title: title, Content: body})
		case body != "":
			sections = append(sections, domain.Section{Title: introductionTitle, Content: body})
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		if isFence(line) {
			inFence = !inFence
		}
		if !inFence {
			if h, ok := parseHeading(line); ok && h.rank == splitRank {
				flush()
				title = h.title
				inside = true
				continue
			}
		}
		buf = append(buf, line)
	}
	flush()

	return sections
}

func findSplitRank(lines []string) int {
	rank := 0
	inFence := false
	for _, line := range lines {
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		h, ok := parseHeading(line)
		if !ok || h.rank > 2 {
			continue
		}
		if rank == 0 || h.rank < rank {
			rank = h.rank
		}
		if rank == 1 {
			break
		}
	}
	return rank
}

func isFence(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}
