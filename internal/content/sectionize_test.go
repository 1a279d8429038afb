package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/docgen-api/internal/domain"
)

func TestSectionize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []domain.Section
	}{
		{
			name: "rank one split keeps rank two inside",
			raw:  "# Title A\nfoo\n## Sub\nbar\n# Title B\nbaz",
			want: []domain.Section{
				{Title: "Title A", Content: "foo\n## Sub\nbar"},
				{Title: "Title B", Content: "baz"},
			},
		},
		{
			name: "rank two headings split when no rank one",
			raw:  "## One\nalpha\n### deeper\nbeta\n## Two\ngamma\n",
			want: []domain.Section{
				{Title: "One", Content: "alpha\n### deeper\nbeta"},
				{Title: "Two", Content: "gamma"},
			},
		},
		{
			name: "leading text becomes introduction",
			raw:  "Overview paragraph.\n\n# Requirements\n- fast",
			want: []domain.Section{
				{Title: "Introduction", Content: "Overview paragraph."},
				{Title: "Requirements", Content: "- fast"},
			},
		},
		{
			name: "blank leading text is dropped",
			raw:  "\n   \n# Only\nbody",
			want: []domain.Section{{Title: "Only", Content: "body"}},
		},
		{
			name: "heading with empty body is kept",
			raw:  "# A\n# B\ntext",
			want: []domain.Section{
				{Title: "A", Content: ""},
				{Title: "B", Content: "text"},
			},
		},
		{
			name: "headings inside code fences do not split",
			raw:  "# Setup\n```sh\n# install deps\nmake\n```\n# Run\ngo",
			want: []domain.Section{
				{Title: "Setup", Content: "```sh\n# install deps\nmake\n```"},
				{Title: "Run", Content: "go"},
			},
		},
		{
			name: "hash without space is not a heading",
			raw:  "#hashtag\n# Real\nx",
			want: []domain.Section{
				{Title: "Introduction", Content: "#hashtag"},
				{Title: "Real", Content: "x"},
			},
		},
		{
			name: "windows line endings",
			raw:  "# A\r\nfoo\r\n# B\r\nbar",
			want: []domain.Section{
				{Title: "A", Content: "foo"},
				{Title: "B", Content: "bar"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sectionize(tc.raw))
		})
	}
}

func TestSectionizeWithoutHeadings(t *testing.T) {
	t.Parallel()

	t.Run("keyword title", func(t *testing.T) {
		got := Sectionize("  The endpoint accepts a request and returns a JSON response.\n")
		assert.Equal(t, []domain.Section{{
			Title:   "API Design",
			Content: "The endpoint accepts a request and returns a JSON response.",
		}}, got)
	})

	t.Run("fallback title", func(t *testing.T) {
		got := Sectionize("Lorem ipsum dolor sit amet.")
		assert.Equal(t, []domain.Section{{Title: "Generated Content", Content: "Lorem ipsum dolor sit amet."}}, got)
	})

	t.Run("deep headings only", func(t *testing.T) {
		got := Sectionize("### Notes\nplain words")
		assert.Len(t, got, 1)
		assert.Equal(t, "### Notes\nplain words", got[0].Content)
	})
}

func TestSectionizeBlankInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "\n\t\n"} {
		got := Sectionize(raw)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestSectionizeProperties(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"# A\nfoo\n## Sub\nbar\n# B\nbaz",
		"intro\n## X\n  padded  \n\n## Y\n",
		"no headings but some requirement text",
		"```\n# not a heading\n```",
	}

	for _, raw := range inputs {
		first := Sectionize(raw)
		assert.Equal(t, first, Sectionize(raw), "must be deterministic")
		assert.NotEmpty(t, first)
		for _, s := range first {
			assert.NotEmpty(t, s.Title)
			assert.Equal(t, strings.TrimSpace(s.Content), s.Content)
		}
	}
}

func TestInferTitleTieGoesToEarlierRule(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Requirements", InferTitle("requirement test"))
	assert.Equal(t, "Data Model", InferTitle("schema schema endpoint"))
}
