package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse_backend/pkg/config"
)

func geminiResponse(text string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				},
			},
		},
	})
	return string(body)
}

func TestGeneratePostUnconfiguredFallsBack(t *testing.T) {
	c := NewClientFromConfig(config.GeminiConfig{})

	post, err := c.GeneratePost(context.Background(), "coffee brewing", "twitter", "")
	require.NoError(t, err)
	assert.NotEmpty(t, post.Content)
	assert.LessOrEqual(t, len(post.Content), 280)
	assert.NotEmpty(t, post.Hashtags)
}

func TestGeneratePostParsesModelJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(geminiResponse("```json\n{\"content\": \"Fresh beans, better mornings.\", \"hashtags\": [\"coffee\", \"brewing\"]}\n```")))
	}))
	defer srv.Close()

	c := NewClientFromConfig(config.GeminiConfig{APIKey: "test-key"})
	c.APIBaseURL = srv.URL

	post, err := c.GeneratePost(context.Background(), "coffee brewing", "twitter", "casual")
	require.NoError(t, err)
	assert.Equal(t, "Fresh beans, better mornings.", post.Content)
	assert.Equal(t, []string{"coffee", "brewing"}, post.Hashtags)
}

func TestGeneratePostUpstreamFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClientFromConfig(config.GeminiConfig{APIKey: "test-key"})
	c.APIBaseURL = srv.URL

	post, err := c.GeneratePost(context.Background(), "coffee brewing", "twitter", "")
	require.NoError(t, err)
	assert.NotEmpty(t, post.Content)
}

func TestGeneratePostRequiresTopic(t *testing.T) {
	c := NewClientFromConfig(config.GeminiConfig{})
	_, err := c.GeneratePost(context.Background(), "", "twitter", "")
	assert.Error(t, err)
}

func TestGenerateHashtags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiResponse(`{"hashtags": ["a", "b", "c", "d", "e"]}`)))
	}))
	defer srv.Close()

	c := NewClientFromConfig(config.GeminiConfig{APIKey: "test-key"})
	c.APIBaseURL = srv.URL

	tags, err := c.GenerateHashtags(context.Background(), "some post", "instagram", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tags)
}

func TestGenerateHashtagsFallbackHonorsCount(t *testing.T) {
	c := NewClientFromConfig(config.GeminiConfig{})

	tags, err := c.GenerateHashtags(context.Background(), "launching our new product line", "twitter", 4)
	require.NoError(t, err)
	assert.Len(t, tags, 4)
}

func TestGenerateIdeasFallback(t *testing.T) {
	c := NewClientFromConfig(config.GeminiConfig{})

	ideas, err := c.GenerateIdeas(context.Background(), "fitness coaching", 5)
	require.NoError(t, err)
	assert.Len(t, ideas, 5)
	for _, idea := range ideas {
		assert.Contains(t, idea, "fitness coaching")
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("Here you go:\n```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON(`{"a":1}`))
	assert.Equal(t, "no braces here", extractJSON("no braces here"))
}

func TestPlatformLimit(t *testing.T) {
	assert.Equal(t, 280, platformLimit("twitter"))
	assert.Equal(t, 280, platformLimit("Twitter"))
	assert.Equal(t, 2200, platformLimit("unknown"))
}
