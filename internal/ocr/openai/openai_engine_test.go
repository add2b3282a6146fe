package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billparse/internal/config"
	"billparse/internal/ocr"
	"billparse/internal/ocr/openai"
	"billparse/internal/port"
)

func engineConfig() *config.OCRProviderConfig {
	return &config.OCRProviderConfig{Provider: "openai", APIKey: "test-key", Model: "gpt-4o-mini"}
}

func jpegInput() port.RecognizeInput {
	return port.RecognizeInput{FileBytes: []byte("\xFF\xD8\xFF"), ContentType: "image/jpeg"}
}

func successBody(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message":       map[string]interface{}{"content": text},
				"finish_reason": "stop",
			},
		},
	})
	return string(b)
}

func TestOpenAIEngine_Recognize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		_, _ = w.Write([]byte(successBody("Total: 1500")))
	}))
	defer server.Close()

	e := openai.NewEngineWithEndpoint(engineConfig(), server.URL)

	out, err := e.Recognize(context.Background(), jpegInput())

	require.NoError(t, err)
	assert.Equal(t, "Total: 1500", out.Text)
	assert.Equal(t, "gpt-4o-mini", out.ModelUsed)
}

func TestOpenAIEngine_Recognize_SendsImageDataURI(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(successBody("text")))
	}))
	defer server.Close()

	e := openai.NewEngineWithEndpoint(engineConfig(), server.URL)

	_, err := e.Recognize(context.Background(), jpegInput())
	require.NoError(t, err)

	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)

	imageBlock := content[0].(map[string]interface{})
	assert.Equal(t, "image_url", imageBlock["type"])
	url := imageBlock["image_url"].(map[string]interface{})["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	textBlock := content[1].(map[string]interface{})
	assert.Equal(t, "text", textBlock["type"])
}

func TestOpenAIEngine_Recognize_PDFUsesFileBlock(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(successBody("text")))
	}))
	defer server.Close()

	e := openai.NewEngineWithEndpoint(engineConfig(), server.URL)

	_, err := e.Recognize(context.Background(), port.RecognizeInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	fileBlock := content[0].(map[string]interface{})
	assert.Equal(t, "file", fileBlock["type"])
}

func TestOpenAIEngine_Recognize_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	defer server.Close()

	e := openai.NewEngineWithEndpoint(engineConfig(), server.URL)

	_, err := e.Recognize(context.Background(), jpegInput())

	var rle *ocr.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "openai", rle.Provider)
}

func TestOpenAIEngine_Recognize_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	e := openai.NewEngineWithEndpoint(engineConfig(), server.URL)

	_, err := e.Recognize(context.Background(), jpegInput())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIEngine_Recognize_UnsupportedContentType(t *testing.T) {
	e := openai.NewEngineWithEndpoint(engineConfig(), "http://unused")

	_, err := e.Recognize(context.Background(), port.RecognizeInput{
		FileBytes:   []byte("data"),
		ContentType: "text/plain",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}
