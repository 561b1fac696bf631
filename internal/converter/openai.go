package converter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openaiBaseURL = "https://api.openai.com/v1/chat/completions"
	openaiModel   = "gpt-4o-mini"
)

const extractPrompt = `Extract every transaction row from this bank statement.
Respond with a JSON array only, each element an object with keys
"date", "description", "amount", "balance". No prose.`

// OpenAIExtractor extracts statement rows through the OpenAI API.
type OpenAIExtractor struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIExtractor creates an extractor using the given API key.
func NewOpenAIExtractor(apiKey string) *OpenAIExtractor {
	return &OpenAIExtractor{
		apiKey:  apiKey,
		baseURL: openaiBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string              `json:"role"`
	Content []openaiContentPart `json:"content"`
}

type openaiContentPart struct {
	Type string      `json:"type"`
	Text string      `json:"text,omitempty"`
	File *openaiFile `json:"file,omitempty"`
}

type openaiFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Extract sends the document and parses the returned row array.
func (e *OpenAIExtractor) Extract(ctx context.Context, pdf []byte) ([]Row, error) {
	fileData := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf)
	reqBody := openaiRequest{
		Model: openaiModel,
		Messages: []openaiMessage{{
			Role: "user",
			Content: []openaiContentPart{
				{Type: "file", File: &openaiFile{Filename: "statement.pdf", FileData: fileData}},
				{Type: "text", Text: extractPrompt},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid extractor response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("extractor error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	return parseRows(parsed.Choices[0].Message.Content)
}

// parseRows tolerates the model wrapping its JSON in a markdown fence.
func parseRows(content string) ([]Row, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var rows []Row
	if err := json.Unmarshal([]byte(content), &rows); err != nil {
		return nil, fmt.Errorf("could not parse extracted rows: %w", err)
	}
	return rows, nil
}
