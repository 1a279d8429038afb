package generation

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"github.com/phrazzld/docgen-api/internal/domain"
)

//go:embed templates/default.tmpl
var templateFS embed.FS

// PromptBuilder turns a request into the prompt text sent to a backend.
type PromptBuilder interface {
	Build(req domain.GenerationRequest) (string, error)
}

type promptDetail struct {
	Key   string
	Value string
}

type promptData struct {
	Details    []promptDetail
	Categories []domain.Category
}

// TemplatePromptBuilder renders prompts from a text/template.
type TemplatePromptBuilder struct {
	tmpl *template.Template
}

// NewTemplatePromptBuilder parses the template at path, or the built-in
// template when path is empty.
func NewTemplatePromptBuilder(path string) (*TemplatePromptBuilder, error) {
	var (
		content []byte
		err     error
	)
	if path == "" {
		content, err = templateFS.ReadFile("templates/default.tmpl")
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, NewError(KindConfiguration, fmt.Errorf("failed to read prompt template: %w", err))
	}

	tmpl, err := template.New("prompt").Parse(string(content))
	if err != nil {
		return nil, NewError(KindConfiguration, fmt.Errorf("failed to parse prompt template: %w", err))
	}
	return &TemplatePromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for req.
func (b *TemplatePromptBuilder) Build(req domain.GenerationRequest) (string, error) {
	data := promptData{Categories: req.SelectedCategories()}
	for _, k := range req.DetailKeys() {
		data.Details = append(data.Details, promptDetail{Key: k, Value: req.ProjectDetails[k]})
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", NewError(KindConfiguration, fmt.Errorf("failed to execute prompt template: %w", err))
	}
	return buf.String(), nil
}
