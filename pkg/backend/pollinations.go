package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	imagedom "github.com/shouni/gemini-image-kit/ports"
	"github.com/shouni/go-http-kit/httpkit"

	"github.com/ESV43/Com/pkg/domain"
)

// PollinationsBackend はフリーテキスト GET ベースのテキスト/画像生成アダプターです。
// テキスト生成は指示文全体を URL エンコードしてリクエストターゲットに載せ、
// 画像生成は prompt・model・seed・width/height をクエリパラメータで渡します。
type PollinationsBackend struct {
	httpClient    httpkit.Requester
	textEndpoint  string
	imageEndpoint string
	textModel     string
	imageModel    string
}

// NewPollinationsBackend は依存関係を注入して PollinationsBackend を初期化します。
// エンドポイントが空の場合は公開エンドポイントを使用します。
func NewPollinationsBackend(httpClient httpkit.Requester, textEndpoint, imageEndpoint, textModel, imageModel string) (*PollinationsBackend, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if textEndpoint == "" {
		textEndpoint = "https://text.pollinations.ai"
	}
	if imageEndpoint == "" {
		imageEndpoint = "https://image.pollinations.ai"
	}
	return &PollinationsBackend{
		httpClient:    httpClient,
		textEndpoint:  strings.TrimRight(textEndpoint, "/"),
		imageEndpoint: strings.TrimRight(imageEndpoint, "/"),
		textModel:     textModel,
		imageModel:    imageModel,
	}, nil
}

// Kind はバックエンド種別を返します。
func (b *PollinationsBackend) Kind() domain.BackendKind {
	return domain.BackendPollinations
}

// Capabilities はオープンバックエンドの能力タグを返します。
// サイズは width/height クエリで構造的に指定できます。
func (b *PollinationsBackend) Capabilities() Capabilities {
	return Capabilities{
		StructuredOutput:  false,
		AcceptsImageInput: false,
		StructuredSize:    true,
	}
}

// Decompose は指示文を URL エンコードした GET リクエストで送信し、
// フリーフォームの応答テキストを返します。添付画像には対応しません。
func (b *PollinationsBackend) Decompose(ctx context.Context, req DecomposeRequest) (string, error) {
	target := b.TextURL(req.Instruction, b.modelOr(req.Model, b.textModel))

	data, err := b.httpClient.FetchBytes(ctx, target)
	if err != nil {
		return "", fmt.Errorf("テキスト生成リクエストに失敗しました: %w", err)
	}
	return string(data), nil
}

// DescribeCharacter は画像入力を受け付けないため常に ErrUnsupported を返します。
// このバックエンド選択時のプリパスは構造化バックエンドが担います。
func (b *PollinationsBackend) DescribeCharacter(ctx context.Context, req DescribeRequest) (string, error) {
	return "", ErrUnsupported
}

// RenderPanel は画像エンドポイントから生バイト列を取得します。
// 応答が画像メディアタイプでない場合は失敗として扱います。
func (b *PollinationsBackend) RenderPanel(ctx context.Context, req RenderRequest) (*imagedom.ImageResponse, error) {
	target := b.ImageURL(req)

	data, err := b.httpClient.FetchBytes(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("画像生成リクエストに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("画像応答が空でした")
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("応答が画像ではありません (content-type: %s)", mimeType)
	}

	return &imagedom.ImageResponse{
		Data:     data,
		MimeType: mimeType,
		UsedSeed: req.Seed,
	}, nil
}

// TextURL はテキスト生成のリクエストターゲットを構築します。
func (b *PollinationsBackend) TextURL(instruction, model string) string {
	values := url.Values{}
	if model != "" {
		values.Set("model", model)
	}

	target := b.textEndpoint + "/" + url.PathEscape(instruction)
	if encoded := values.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}

// ImageURL は画像生成のリクエストターゲットを構築します。
// シードはリクエストごとに変えず、呼び出し元が渡した値をそのままワイヤに載せます。
func (b *PollinationsBackend) ImageURL(req RenderRequest) string {
	width, height := req.Aspect.Dimensions()

	values := url.Values{}
	values.Set("model", b.modelOr(req.Model, b.imageModel))
	values.Set("seed", strconv.FormatInt(req.Seed, 10))
	values.Set("width", strconv.Itoa(width))
	values.Set("height", strconv.Itoa(height))
	values.Set("nologo", "true")

	return b.imageEndpoint + "/prompt/" + url.PathEscape(req.Prompt) + "?" + values.Encode()
}

func (b *PollinationsBackend) modelOr(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
