package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ESV43/Com/pkg/domain"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func newTestPollinations(t *testing.T, httpMock *mockHTTPClient) *PollinationsBackend {
	t.Helper()
	b, err := NewPollinationsBackend(httpMock, "", "", "openai", "flux")
	require.NoError(t, err)
	return b
}

func TestPollinationsBackend_ImageURL(t *testing.T) {
	b := newTestPollinations(t, &mockHTTPClient{})

	req := RenderRequest{
		Prompt: "a knight & a dragon",
		Model:  "flux",
		Seed:   777,
		Aspect: domain.AspectLandscape,
	}
	target := b.ImageURL(req)

	parsed, err := url.Parse(target)
	require.NoError(t, err)

	assert.Equal(t, "image.pollinations.ai", parsed.Host)
	assert.True(t, strings.HasPrefix(parsed.Path, "/prompt/"), "path: %s", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "flux", q.Get("model"))
	assert.Equal(t, "777", q.Get("seed"))
	assert.Equal(t, "1792", q.Get("width"))
	assert.Equal(t, "1024", q.Get("height"))
	assert.Equal(t, "true", q.Get("nologo"))

	// プロンプトはパスセグメントとして復元可能にエンコードされていること
	decoded, err := url.PathUnescape(strings.TrimPrefix(parsed.EscapedPath(), "/prompt/"))
	require.NoError(t, err)
	assert.Equal(t, req.Prompt, decoded)
}

func TestPollinationsBackend_ImageURL_SeedIsStable(t *testing.T) {
	b := newTestPollinations(t, &mockHTTPClient{})
	req := RenderRequest{Prompt: "same prompt", Seed: 42, Aspect: domain.AspectSquare}

	// 同一リクエストは常に同一のワイヤ表現になる（シードを変えない決定性保証）
	assert.Equal(t, b.ImageURL(req), b.ImageURL(req))
}

func TestPollinationsBackend_RenderPanel(t *testing.T) {
	t.Run("画像応答はそのまま返される", func(t *testing.T) {
		httpMock := &mockHTTPClient{data: pngHeader}
		b := newTestPollinations(t, httpMock)

		resp, err := b.RenderPanel(context.Background(), RenderRequest{
			Prompt: "castle",
			Seed:   99,
			Aspect: domain.AspectSquare,
		})

		require.NoError(t, err)
		assert.Equal(t, "image/png", resp.MimeType)
		assert.Equal(t, int64(99), resp.UsedSeed)
		assert.Equal(t, pngHeader, resp.Data)
	})

	t.Run("画像でない応答は失敗として扱う", func(t *testing.T) {
		httpMock := &mockHTTPClient{data: []byte(`{"error":"rate limited"}`)}
		b := newTestPollinations(t, httpMock)

		_, err := b.RenderPanel(context.Background(), RenderRequest{Prompt: "x", Aspect: domain.AspectSquare})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "画像ではありません")
	})

	t.Run("空の応答は失敗として扱う", func(t *testing.T) {
		b := newTestPollinations(t, &mockHTTPClient{data: nil})
		_, err := b.RenderPanel(context.Background(), RenderRequest{Prompt: "x", Aspect: domain.AspectSquare})
		assert.Error(t, err)
	})

	t.Run("HTTPエラーは呼び出し失敗として伝播する", func(t *testing.T) {
		b := newTestPollinations(t, &mockHTTPClient{err: fmt.Errorf("status 502")})
		_, err := b.RenderPanel(context.Background(), RenderRequest{Prompt: "x", Aspect: domain.AspectSquare})
		assert.Error(t, err)
	})
}

func TestPollinationsBackend_Decompose(t *testing.T) {
	httpMock := &mockHTTPClient{data: []byte(`[{"scene_number":1}]`)}
	b := newTestPollinations(t, httpMock)

	raw, err := b.Decompose(context.Background(), DecomposeRequest{
		Instruction: "split this story",
		Model:       "openai",
	})

	require.NoError(t, err)
	assert.Equal(t, `[{"scene_number":1}]`, raw)

	parsed, err := url.Parse(httpMock.lastURL)
	require.NoError(t, err)
	assert.Equal(t, "text.pollinations.ai", parsed.Host)
	assert.Equal(t, "openai", parsed.Query().Get("model"))

	decoded, err := url.PathUnescape(strings.TrimPrefix(parsed.EscapedPath(), "/"))
	require.NoError(t, err)
	assert.Equal(t, "split this story", decoded)
}

func TestPollinationsBackend_DescribeCharacter(t *testing.T) {
	b := newTestPollinations(t, &mockHTTPClient{})
	_, err := b.DescribeCharacter(context.Background(), DescribeRequest{})
	assert.ErrorIs(t, err, ErrUnsupported)
}
