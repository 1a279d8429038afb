package domain

import (
	"sort"
	"strings"
)

// Category identifies one kind of document section a caller can request.
type Category string

// Supported output categories.
const (
	CategoryRequirements Category = "requirements"
	CategoryArchitecture Category = "architecture"
	CategoryUserFlow     Category = "user_flow"
	CategoryDataModel    Category = "data_model"
	CategoryAPIDesign    Category = "api_design"
	CategoryTestPlan     Category = "test_plan"
)

// AllCategories lists every supported category in presentation order.
var AllCategories = []Category{
	CategoryRequirements,
	CategoryArchitecture,
	CategoryUserFlow,
	CategoryDataModel,
	CategoryAPIDesign,
	CategoryTestPlan,
}

// DisplayName returns the human readable title of the category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryRequirements:
		return "Requirements"
	case CategoryArchitecture:
		return "Architecture"
	case CategoryUserFlow:
		return "User Flow"
	case CategoryDataModel:
		return "Data Model"
	case CategoryAPIDesign:
		return "API Design"
	case CategoryTestPlan:
		return "Test Plan"
	default:
		return strings.ReplaceAll(string(c), "_", " ")
	}
}

// IsValidCategory reports whether c is a supported category.
func IsValidCategory(c Category) bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// GenerationRequest is the immutable input of one job. ProjectDetails is an
// opaque parameter bag passed through to the prompt builder. Credential is
// handed to the backend adapter and is never persisted or logged.
type GenerationRequest struct {
	ProjectDetails map[string]string
	Categories     map[Category]bool
	Backend        string
	Model          string
	Credential     string
}

// NewGenerationRequest copies the caller's maps so later mutation by the
// caller cannot change the request, and validates the result.
func NewGenerationRequest(
	details map[string]string,
	categories map[Category]bool,
	backend, model, credential string,
) (GenerationRequest, error) {
	req := GenerationRequest{
		ProjectDetails: make(map[string]string, len(details)),
		Categories:     make(map[Category]bool, len(categories)),
		Backend:        strings.TrimSpace(backend),
		Model:          strings.TrimSpace(model),
		Credential:     credential,
	}
	for k, v := range details {
		req.ProjectDetails[k] = v
	}
	for k, v := range categories {
		req.Categories[k] = v
	}

	if err := req.Validate(); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

// Validate checks the request for structural problems. Unknown backend
// identifiers are not checked here; the backend chain rejects them.
func (r GenerationRequest) Validate() error {
	if r.Backend == "" {
		return NewValidationError("backend", "is required", ErrValidation)
	}

	selected := 0
	for c, on := range r.Categories {
		if !IsValidCategory(c) {
			return NewValidationError("categories", "contains unknown category "+string(c), ErrUnknownCategory)
		}
		if on {
			selected++
		}
	}
	if selected == 0 {
		return NewValidationError("categories", "must select at least one category", ErrNoCategories)
	}

	return nil
}

// SelectedCategories returns the requested categories in presentation order.
func (r GenerationRequest) SelectedCategories() []Category {
	out := make([]Category, 0, len(r.Categories))
	for _, c := range AllCategories {
		if r.Categories[c] {
			out = append(out, c)
		}
	}
	return out
}

// DetailKeys returns the project detail keys in sorted order so prompts are
// rendered deterministically.
func (r GenerationRequest) DetailKeys() []string {
	keys := make([]string, 0, len(r.ProjectDetails))
	for k := range r.ProjectDetails {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
