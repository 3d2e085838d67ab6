package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// retryPolicy は外部呼び出し 1 件あたりの試行方針です。
// 待機時間は base * 試行回数 で線形に伸びます。
type retryPolicy struct {
	maxAttempts int
	backoffBase time.Duration
}

// do は fn を最大 maxAttempts 回実行し、最後のエラーを返します。
// 待機中のコンテキスト取消は即座に中断し、取消エラーを返します。
func (p retryPolicy) do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	attempts := p.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt < attempts {
			wait := p.backoffBase * time.Duration(attempt)
			slog.Warn("呼び出しに失敗したためリトライします",
				"label", label, "attempt", attempt, "wait", wait, "error", lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return fmt.Errorf("%s: %d 回の試行がすべて失敗しました: %w", label, attempts, lastErr)
}
