package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	imagedom "github.com/shouni/gemini-image-kit/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ESV43/Com/pkg/domain"
)

func newTestRenderer(t *testing.T, be *mockBackend) *PanelRenderer {
	t.Helper()
	r, err := NewPanelRenderer(be, 0, 3, time.Millisecond)
	require.NoError(t, err)
	return r
}

func TestPanelRendererRender(t *testing.T) {
	img := &imagedom.ImageResponse{Data: []byte("png-bytes"), MimeType: "image/png", UsedSeed: 42}

	t.Run("正常系は画像を返す", func(t *testing.T) {
		be := &mockBackend{renderQueue: []renderReply{{img: img}}}
		r := newTestRenderer(t, be)

		got, err := r.Render(context.Background(), "a rooftop at dawn", "flux", 42, domain.AspectSquare)
		require.NoError(t, err)
		assert.Equal(t, img, got)
		assert.Equal(t, 1, be.renderCalls)
		assert.Equal(t, "a rooftop at dawn", be.lastRender.Prompt)
		assert.Equal(t, "flux", be.lastRender.Model)
		assert.Equal(t, domain.AspectSquare, be.lastRender.Aspect)
	})

	t.Run("失敗後のリトライでもシードは変化しない", func(t *testing.T) {
		be := &mockBackend{renderQueue: []renderReply{
			{err: errors.New("decode failed")},
			{err: errors.New("decode failed")},
			{img: img},
		}}
		r := newTestRenderer(t, be)

		got, err := r.Render(context.Background(), "p", "m", 777, domain.AspectPortrait)
		require.NoError(t, err)
		assert.Equal(t, img, got)
		assert.Equal(t, []int64{777, 777, 777}, be.renderSeeds)
	})

	t.Run("試行回数はちょうど上限で打ち切る", func(t *testing.T) {
		renderErr := errors.New("not an image")
		be := &mockBackend{renderQueue: []renderReply{
			{err: renderErr}, {err: renderErr}, {err: renderErr}, {err: renderErr},
		}}
		r := newTestRenderer(t, be)

		_, err := r.Render(context.Background(), "p", "m", 1, domain.AspectSquare)
		require.Error(t, err)
		assert.ErrorIs(t, err, renderErr)
		assert.Equal(t, 3, be.renderCalls)
	})

	t.Run("コンテキスト取消はリトライ待機を中断する", func(t *testing.T) {
		be := &mockBackend{renderQueue: []renderReply{
			{err: errors.New("transient")},
		}}
		r, err := NewPanelRenderer(be, 0, 3, time.Hour)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		_, err = r.Render(ctx, "p", "m", 1, domain.AspectSquare)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second, "バックオフ待機の途中で戻るはずなのだ")
	})

	t.Run("レート制御ありでも全試行が完了する", func(t *testing.T) {
		be := &mockBackend{renderQueue: []renderReply{
			{err: errors.New("transient")},
			{img: img},
		}}
		r, err := NewPanelRenderer(be, time.Millisecond, 3, time.Millisecond)
		require.NoError(t, err)

		got, err := r.Render(context.Background(), "p", "m", 1, domain.AspectSquare)
		require.NoError(t, err)
		assert.Equal(t, img, got)
		assert.Equal(t, 2, be.renderCalls)
	})
}

func TestNewPanelRenderer(t *testing.T) {
	t.Run("backend が nil ならエラー", func(t *testing.T) {
		_, err := NewPanelRenderer(nil, 0, 3, time.Second)
		assert.Error(t, err)
	})
}
