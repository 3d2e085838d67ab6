package backend

import (
	"context"
	"io"
	"net/http"

	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

type mockAIClient struct {
	lastModel string
	lastParts []*genai.Part
	lastOpts  gemini.GenerateOptions
	response  *gemini.Response
	err       error
}

func (m *mockAIClient) UploadFile(ctx context.Context, r io.Reader, mimeType, displayName string) (string, string, error) {
	return "https://gemini.api/files/new-file-id", "files/new-file-id", nil
}

func (m *mockAIClient) IsVertexAI() bool {
	return false
}

func (m *mockAIClient) DeleteFile(ctx context.Context, name string) error {
	return nil
}

func (m *mockAIClient) GenerateContent(ctx context.Context, model string, prompt string) (*gemini.Response, error) {
	return m.response, m.err
}

func (m *mockAIClient) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.lastModel = model
	m.lastParts = parts
	m.lastOpts = opts
	return m.response, m.err
}

func (m *mockAIClient) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return nil, nil
}

func textResponse(text string) *gemini.Response {
	return &gemini.Response{Text: text}
}

func imageResponse(data []byte, mimeType string) *gemini.Response {
	return &gemini.Response{
		RawResponse: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}},
				},
			}},
		},
	}
}

type mockHTTPClient struct {
	lastURL string
	data    []byte
	err     error
}

func (m *mockHTTPClient) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.lastURL = url
	return m.data, m.err
}

func (m *mockHTTPClient) DoRequest(req *http.Request) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) FetchAndDecodeJSON(ctx context.Context, url string, v any) error {
	return m.err
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(ctx context.Context, url string, data any) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(ctx context.Context, url string, body []byte, contentType string) ([]byte, error) {
	return m.data, m.err
}
