package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"socialpulse_backend/pkg/config"
)

const defaultAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta"
const model = "gemini-1.5-flash"

// platformLimits caps generated content to each network's post length.
var platformLimits = map[string]int{
	"twitter":   280,
	"instagram": 2200,
	"facebook":  5000,
	"linkedin":  3000,
	"tiktok":    2200,
}

// Client generates post content through the Gemini REST API. Without an API
// key every method returns a deterministic local suggestion so the product
// works in demo setups.
type Client struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewClientFromConfig(cfg config.GeminiConfig) *Client {
	return &Client{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		APIBaseURL: defaultAPIBaseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Configured() bool {
	return c.APIKey != ""
}

type GeneratedPost struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

// GeneratePost writes a post about topic for a platform in the given tone.
func (c *Client) GeneratePost(ctx context.Context, topic, platform, tone string) (*GeneratedPost, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	limit := platformLimit(platform)

	if !c.Configured() {
		return fallbackPost(topic, platform, tone, limit), nil
	}

	prompt := fmt.Sprintf(
		`Write a %s social media post for %s about: %s.
Keep it under %d characters. Respond with JSON only, in the shape
{"content": "...", "hashtags": ["...", "..."]} with 3 to 5 hashtags without the # prefix.`,
		toneOrDefault(tone), platformOrDefault(platform), topic, limit)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return fallbackPost(topic, platform, tone, limit), nil
	}

	var out GeneratedPost
	if err := json.Unmarshal([]byte(extractJSON(text)), &out); err != nil || out.Content == "" {
		return fallbackPost(topic, platform, tone, limit), nil
	}
	if len(out.Content) > limit {
		out.Content = out.Content[:limit]
	}
	return &out, nil
}

// GenerateHashtags suggests hashtags for existing post content.
func (c *Client) GenerateHashtags(ctx context.Context, content, platform string, count int) ([]string, error) {
	if content == "" {
		return nil, errors.New("content is required")
	}
	if count <= 0 || count > 30 {
		count = 10
	}

	if !c.Configured() {
		return fallbackHashtags(content, count), nil
	}

	prompt := fmt.Sprintf(
		`Suggest %d hashtags for this %s post: %q.
Respond with JSON only, in the shape {"hashtags": ["...", "..."]} without the # prefix.`,
		count, platformOrDefault(platform), content)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return fallbackHashtags(content, count), nil
	}

	var out struct {
		Hashtags []string `json:"hashtags"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &out); err != nil || len(out.Hashtags) == 0 {
		return fallbackHashtags(content, count), nil
	}
	if len(out.Hashtags) > count {
		out.Hashtags = out.Hashtags[:count]
	}
	return out.Hashtags, nil
}

// GenerateIdeas proposes post ideas for a topic or industry.
func (c *Client) GenerateIdeas(ctx context.Context, topic string, count int) ([]string, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if count <= 0 || count > 20 {
		count = 5
	}

	if !c.Configured() {
		return fallbackIdeas(topic, count), nil
	}

	prompt := fmt.Sprintf(
		`Suggest %d social media post ideas about: %s.
Respond with JSON only, in the shape {"ideas": ["...", "..."]}. Each idea is one sentence.`,
		count, topic)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return fallbackIdeas(topic, count), nil
	}

	var out struct {
		Ideas []string `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &out); err != nil || len(out.Ideas) == 0 {
		return fallbackIdeas(topic, count), nil
	}
	if len(out.Ideas) > count {
		out.Ideas = out.Ideas[:count]
	}
	return out.Ideas, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.APIBaseURL, "/"), model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini response has no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// extractJSON pulls the first JSON object out of model text, which often
// wraps it in markdown fences or prose.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

func platformLimit(platform string) int {
	if limit, ok := platformLimits[strings.ToLower(platform)]; ok {
		return limit
	}
	return 2200
}

func platformOrDefault(platform string) string {
	if platform == "" {
		return "social media"
	}
	return platform
}

func toneOrDefault(tone string) string {
	if tone == "" {
		return "engaging"
	}
	return tone
}

func fallbackPost(topic, platform, tone string, limit int) *GeneratedPost {
	content := fmt.Sprintf("Sharing some thoughts on %s today. What's your take? Let us know in the comments!", topic)
	if len(content) > limit {
		content = content[:limit]
	}
	return &GeneratedPost{
		Content:  content,
		Hashtags: fallbackHashtags(topic, 3),
	}
}

func fallbackHashtags(seed string, count int) []string {
	base := []string{"socialmedia", "content", "marketing", "growth", "community"}
	words := strings.Fields(strings.ToLower(seed))
	tags := make([]string, 0, count)
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w)
		if len(w) >= 3 {
			tags = append(tags, w)
		}
		if len(tags) == count {
			return tags
		}
	}
	for _, b := range base {
		if len(tags) == count {
			break
		}
		tags = append(tags, b)
	}
	return tags
}

func fallbackIdeas(topic string, count int) []string {
	templates := []string{
		"Share a behind-the-scenes look at %s.",
		"Post a quick tip your audience can apply to %s today.",
		"Ask your followers a question about %s.",
		"Highlight a common mistake people make with %s.",
		"Share a customer story or result related to %s.",
		"Compare two approaches to %s and ask which one wins.",
		"Post a myth vs. fact breakdown about %s.",
	}
	ideas := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ideas = append(ideas, fmt.Sprintf(templates[i%len(templates)], topic))
	}
	return ideas
}
