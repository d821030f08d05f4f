package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkms/content-pipeline/internal/apperrors"
	"github.com/pkms/content-pipeline/internal/model"
)

// Classify asks the classification model what the submitted text is. The
// returned content type is constrained to the known set; anything else comes
// back as unknown.
func Classify(ctx context.Context, m Model, text string) (model.ClassifiedContent, error) {
	out, err := m.Generate(ctx, classifyPrompt, text)
	if err != nil {
		return model.ClassifiedContent{}, err
	}

	var classified model.ClassifiedContent
	if err := json.Unmarshal([]byte(UnwrapCodeFence(out)), &classified); err != nil {
		return model.ClassifiedContent{}, apperrors.NewDependency("classification model returned malformed output", err)
	}

	switch classified.ContentType {
	case model.TypeWebArticle, model.TypePublication, model.TypeYouTubeVideo, model.TypeBookmark:
	default:
		classified.ContentType = model.TypeUnknown
	}
	return classified, nil
}

// CleanMarkdown strips navigation, header and footer noise from crawled
// markdown. Primary model, then fallback; when both fail the original
// markdown is returned untouched.
func CleanMarkdown(ctx context.Context, primary, fallback Model, markdown string) string {
	out, err := generateWithFallback(ctx, primary, fallback, cleanMarkdownPrompt, markdown)
	if err != nil {
		return markdown
	}
	return UnwrapCodeFence(out)
}

// Summarize produces a content-type-specific summary. Primary model, then
// fallback; when both fail an empty summary is returned.
func Summarize(ctx context.Context, primary, fallback Model, contentType model.ContentType, raw string) string {
	out, err := generateWithFallback(ctx, primary, fallback, summaryPrompt(contentType), raw)
	if err != nil {
		return ""
	}
	return UnwrapCodeFence(out)
}

func summaryPrompt(contentType model.ContentType) string {
	if contentType == model.TypePublication {
		return summarizePublicationPrompt
	}
	return summarizeDefaultPrompt
}

// UnwrapCodeFence removes a single outermost code fence when the whole
// response is wrapped in one. Models regularly wrap markdown output that way.
func UnwrapCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") {
		return trimmed
	}

	inner := strings.TrimSuffix(trimmed, "```")
	// Drop the opening fence line, including any language tag.
	if idx := strings.IndexByte(inner, '\n'); idx >= 0 {
		inner = inner[idx+1:]
	} else {
		inner = strings.TrimPrefix(inner, "```")
	}
	return strings.TrimSpace(inner)
}
