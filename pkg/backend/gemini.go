package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	imagedom "github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/gemini-image-kit/imgutil"
	"github.com/shouni/go-gemini-client/gemini"
	"google.golang.org/genai"

	"github.com/ESV43/Com/pkg/domain"
)

const (
	// 参照画像はインライン添付前に JPEG へ圧縮してペイロードを抑えます。
	useImageCompression     = true
	imageCompressionQuality = 75
)

// GeminiBackend は構造化 LLM バックエンドのアダプターです。
// テキスト分解・キャラクター説明・画像生成のすべてを parts ベースの
// 単一 API (GenerateWithParts) に変換します。
type GeminiBackend struct {
	aiClient   gemini.GenerativeModel
	textModel  string
	imageModel string
}

// NewGeminiBackend は依存関係を注入して GeminiBackend を初期化します。
func NewGeminiBackend(aiClient gemini.GenerativeModel, textModel, imageModel string) (*GeminiBackend, error) {
	if aiClient == nil {
		return nil, fmt.Errorf("aiClient is required")
	}
	return &GeminiBackend{
		aiClient:   aiClient,
		textModel:  textModel,
		imageModel: imageModel,
	}, nil
}

// Kind はバックエンド種別を返します。
func (b *GeminiBackend) Kind() domain.BackendKind {
	return domain.BackendGemini
}

// Capabilities は構造化バックエンドの能力タグを返します。
func (b *GeminiBackend) Capabilities() Capabilities {
	return Capabilities{
		StructuredOutput:  true,
		AcceptsImageInput: true,
		StructuredSize:    true,
	}
}

// Decompose は指示文と参照画像を parts として送信し、応答テキストを返します。
func (b *GeminiBackend) Decompose(ctx context.Context, req DecomposeRequest) (string, error) {
	parts := []*genai.Part{{Text: req.Instruction}}
	for _, img := range req.Images {
		if part := toImagePart(img); part != nil {
			parts = append(parts, part)
		}
	}

	resp, err := b.aiClient.GenerateWithParts(ctx, b.modelOr(req.Model, b.textModel), parts, gemini.GenerateOptions{})
	if err != nil {
		return "", fmt.Errorf("Gemini分解リクエストに失敗しました: %w", err)
	}
	return resp.Text, nil
}

// DescribeCharacter は 1 枚の参照画像から視覚的説明文を生成します。
func (b *GeminiBackend) DescribeCharacter(ctx context.Context, req DescribeRequest) (string, error) {
	parts := []*genai.Part{{Text: req.Instruction}}
	part := toImagePart(req.Image)
	if part == nil {
		return "", fmt.Errorf("参照画像が画像として認識できません (mime: %s)", req.Image.MimeType)
	}
	parts = append(parts, part)

	resp, err := b.aiClient.GenerateWithParts(ctx, b.modelOr(req.Model, b.textModel), parts, gemini.GenerateOptions{})
	if err != nil {
		return "", fmt.Errorf("キャラクター説明の生成に失敗しました: %w", err)
	}

	desc := strings.TrimSpace(resp.Text)
	if desc == "" {
		return "", fmt.Errorf("キャラクター説明の応答が空でした")
	}
	return desc, nil
}

// RenderPanel は比率トークンと固定シードを指定して 1 枚の画像を生成します。
func (b *GeminiBackend) RenderPanel(ctx context.Context, req RenderRequest) (*imagedom.ImageResponse, error) {
	parts := []*genai.Part{{Text: req.Prompt}}
	opts := gemini.GenerateOptions{
		AspectRatio: req.Aspect.Token(),
		Seed:        seedToPtrInt64(req.Seed),
	}

	resp, err := b.aiClient.GenerateWithParts(ctx, b.modelOr(req.Model, b.imageModel), parts, opts)
	if err != nil {
		return nil, fmt.Errorf("Geminiパネル生成エラー: %w", err)
	}

	return parseImageResponse(resp, req.Seed)
}

func (b *GeminiBackend) modelOr(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}

// toImagePart はインライン画像を genai のパートへ変換します。
// 画像以外のデータは添付せず nil を返します。
func toImagePart(img InlineImage) *genai.Part {
	if len(img.Data) == 0 {
		return nil
	}

	data := img.Data
	if useImageCompression {
		if compressed, err := imgutil.CompressToJPEG(bytes.NewReader(data), imageCompressionQuality); err == nil {
			data = compressed
		}
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}
}

// parseImageResponse は候補のパートからインライン画像を取り出します。
func parseImageResponse(resp *gemini.Response, seed int64) (*imagedom.ImageResponse, error) {
	if resp == nil || resp.RawResponse == nil || len(resp.RawResponse.Candidates) == 0 {
		return nil, fmt.Errorf("invalid response")
	}
	candidate := resp.RawResponse.Candidates[0]
	if candidate.Content == nil {
		return nil, fmt.Errorf("no content")
	}
	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &imagedom.ImageResponse{
				Data:     part.InlineData.Data,
				MimeType: part.InlineData.MIMEType,
				UsedSeed: seed,
			}, nil
		}
	}
	return nil, fmt.Errorf("no image data")
}

// seedToPtrInt64 は domain の int64 シードを SDK 用の *int64 に変換します。
func seedToPtrInt64(s int64) *int64 {
	return &s
}
