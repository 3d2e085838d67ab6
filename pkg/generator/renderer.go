package generator

import (
	"context"
	"fmt"
	"time"

	imagedom "github.com/shouni/gemini-image-kit/ports"
	"golang.org/x/time/rate"

	"github.com/ESV43/Com/pkg/backend"
	"github.com/ESV43/Com/pkg/domain"
)

// PanelRenderer は 1 パネルずつ画像生成を実行します。
// 外部 API への全試行はレートリミッターを通過し、シード値はリトライ間で不変です。
type PanelRenderer struct {
	be      backend.Backend
	limiter *rate.Limiter
	policy  retryPolicy
}

// NewPanelRenderer は依存関係を注入して PanelRenderer を初期化します。
// interval が 0 以下の場合はレート制御を行いません。
func NewPanelRenderer(be backend.Backend, interval time.Duration, maxAttempts int, backoffBase time.Duration) (*PanelRenderer, error) {
	if be == nil {
		return nil, fmt.Errorf("backend is required")
	}
	r := &PanelRenderer{
		be:     be,
		policy: retryPolicy{maxAttempts: maxAttempts, backoffBase: backoffBase},
	}
	if interval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return r, nil
}

// Render は最終プロンプトから 1 枚の画像を生成します。
// 復号不能な応答（非画像コンテンツ等）も失敗した試行として数えます。
func (r *PanelRenderer) Render(ctx context.Context, prompt, model string, seed int64, aspect domain.AspectRatio) (*imagedom.ImageResponse, error) {
	req := backend.RenderRequest{
		Prompt: prompt,
		Model:  model,
		Seed:   seed,
		Aspect: aspect,
	}

	var img *imagedom.ImageResponse
	err := r.policy.do(ctx, "panel render", func(ctx context.Context) error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		resp, err := r.be.RenderPanel(ctx, req)
		if err != nil {
			return err
		}
		img = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
