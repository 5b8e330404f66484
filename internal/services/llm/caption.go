package llm

import (
	"context"
	"fmt"
	"strings"

	"adgen/internal/services"
	"adgen/internal/stages"
)

const (
	captionTemperature = 0.8
	captionMaxTokens   = 200
)

// CaptionSystemPrompt instructs the model to write a short Korean ad caption.
const CaptionSystemPrompt = `당신은 패션 광고 카피라이터입니다.
1-2문장으로 간결하고 감성적인 한글 광고 캡션을 작성하세요. (최대 50자, 이모지 포함)
반드시 JSON으로만 응답: {"caption": "...", "confidence": 0.9}`

// Caption is the validated caption payload returned by the model.
type Caption struct {
	Caption    string  `json:"caption"`
	Confidence float64 `json:"confidence"`
	Raw        string  `json:"-"`
}

// WriteCaption asks the model for an ad caption matching req.
func (c *Client) WriteCaption(ctx context.Context, req stages.CaptionRequest) (string, error) {
	caption, err := c.GenerateCaption(ctx, req)
	if err != nil {
		return "", err
	}
	return caption.Caption, nil
}

// GenerateCaption returns the full caption payload, including the model's
// confidence.
func (c *Client) GenerateCaption(ctx context.Context, req stages.CaptionRequest) (Caption, error) {
	if c.cfg.APIKey == "" {
		return Caption{}, services.Wrap(services.ErrConfiguration, "", "llm caption", "api key required", nil)
	}
	content, err := c.chat(ctx, c.captionChat(req))
	if err != nil {
		return Caption{}, fmt.Errorf("llm caption: %w", err)
	}
	if err := validateCaptionPayload(content); err != nil {
		return Caption{}, fmt.Errorf("llm caption: %w", err)
	}
	var parsed Caption
	if err := DecodeJSON(content, &parsed); err != nil {
		return Caption{}, fmt.Errorf("llm caption: %w", err)
	}
	parsed.Caption = strings.TrimSpace(parsed.Caption)
	if parsed.Caption == "" {
		return Caption{}, fmt.Errorf("llm caption: blank caption (payload: %s)", snippet(content))
	}
	parsed.Raw = content
	return parsed, nil
}

func (c *Client) captionChat(req stages.CaptionRequest) chatRequest {
	return chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: CaptionSystemPrompt},
			{Role: "user", Content: BuildCaptionPrompt(req)},
		},
		Temperature:    captionTemperature,
		MaxTokens:      captionMaxTokens,
		ResponseFormat: jsonObjectFormat,
	}
}

// BuildCaptionPrompt renders the user message for a caption request.
func BuildCaptionPrompt(req stages.CaptionRequest) string {
	style := orDefault(req.StyleLabel, req.Style)
	category := orDefault(req.Category, "패션")
	extra := orDefault(req.UserPrompt, "없음")

	var b strings.Builder
	fmt.Fprintf(&b, "스타일: %s\n카테고리: %s\n추가 요청: %s", style, category, extra)
	if keywords := nonEmpty(req.Keywords); len(keywords) > 0 {
		fmt.Fprintf(&b, "\n\n반드시 포함할 키워드: %s", strings.Join(keywords, ", "))
	}
	if phrases := nonEmpty(req.MustInclude); len(phrases) > 0 {
		fmt.Fprintf(&b, "\n\n반드시 포함해야 할 문구: %s", strings.Join(phrases, ", "))
		b.WriteString("\n위 문구를 캡션에 자연스럽게 포함시키세요.")
	}
	return b.String()
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
