// Package prompt builds the prompts and sampling parameters for the two
// generation stages of the document pipeline. The templates and parameter
// choices are fixed: the correction stage uses a moderate temperature with
// nucleus sampling, and the explanation stage samples slightly wider.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/docsight/docsight/internal/generation"
)

const correctionTemplate = `The following text was extracted from an image by optical character recognition (OCR) and may contain errors. Correct spelling, grammar, and punctuation mistakes while preserving the original meaning, and smooth the phrasing where needed for readability. Reply with the corrected text only, without any commentary or annotations.

OCR text:
---
{{.Text}}
---

Corrected text:`

const explanationTemplate = `The following is the content of a document. Briefly explain what kind of document it is (for example an email, report, article, or memo), what its main points are, and what its overall purpose appears to be.

Document content:
---
{{.Text}}
---

Explanation:`

type templateData struct {
	Text string
}

// Builder renders the correction and explanation prompts from their parsed
// templates. Construct it once with New and share it; it is read-only after
// construction.
type Builder struct {
	correction  *template.Template
	explanation *template.Template
}

// New parses the stage templates and returns a ready Builder.
func New() (*Builder, error) {
	correction, err := template.New("correction").Parse(correctionTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse correction template: %w", err)
	}

	explanation, err := template.New("explanation").Parse(explanationTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse explanation template: %w", err)
	}

	return &Builder{correction: correction, explanation: explanation}, nil
}

// Correction returns the prompt and sampling parameters for correcting raw
// OCR output. The token budget scales with the input so corrections of long
// documents are not truncated.
func (b *Builder) Correction(rawText string) (string, generation.Params, error) {
	rendered, err := render(b.correction, rawText)
	if err != nil {
		return "", generation.Params{}, err
	}

	return rendered, generation.Params{
		MaxTokens:   2*len(rawText) + 300,
		Temperature: 0.6,
		TopP:        0.9,
		TopK:        40,
	}, nil
}

// Explanation returns the prompt and sampling parameters for explaining an
// accepted document text.
func (b *Builder) Explanation(text string) (string, generation.Params, error) {
	rendered, err := render(b.explanation, text)
	if err != nil {
		return "", generation.Params{}, err
	}

	return rendered, generation.Params{
		MaxTokens:   len(text) + 500,
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        50,
	}, nil
}

func render(tmpl *template.Template, text string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{Text: text}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
