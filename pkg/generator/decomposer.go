// Package generator は外部生成呼び出しの実行方針（リトライ、レート制御、
// プロンプト組み立て）を担います。ワイヤ変換は backend、JSON 修復は parser、
// 実行順序の編成は workflow の責務です。
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ESV43/Com/pkg/backend"
	"github.com/ESV43/Com/pkg/domain"
	"github.com/ESV43/Com/pkg/parser"
	"github.com/ESV43/Com/pkg/prompts"
)

// SceneDecomposer はストーリーをパネル台本へ分解します。
// 応答の解析失敗も 1 回の試行として数え、同一方針でリトライします。
type SceneDecomposer struct {
	be     backend.Backend
	ib     *prompts.InstructionBuilder
	policy retryPolicy
}

// NewSceneDecomposer は依存関係を注入して SceneDecomposer を初期化します。
func NewSceneDecomposer(be backend.Backend, ib *prompts.InstructionBuilder, maxAttempts int, backoffBase time.Duration) (*SceneDecomposer, error) {
	if be == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if ib == nil {
		return nil, fmt.Errorf("instruction builder is required")
	}
	return &SceneDecomposer{
		be:     be,
		ib:     ib,
		policy: retryPolicy{maxAttempts: maxAttempts, backoffBase: backoffBase},
	}, nil
}

// Decompose は分解指示を組み立てて送信し、修復済みのパネル台本を返します。
// 空のシーン列はエラーではなく、呼び出し元のフォールバック判断に委ねます。
func (d *SceneDecomposer) Decompose(ctx context.Context, opts domain.StoryOptions) (*parser.Result, error) {
	caps := d.be.Capabilities()
	refs := opts.UsableCharacters()

	// インライン正典はモデルが構造化応答を返せる場合のみ要求できます。
	demandCanon := caps.StructuredOutput && len(refs) > 0

	instruction, err := d.ib.BuildDecomposition(opts, demandCanon)
	if err != nil {
		return nil, fmt.Errorf("分解指示の組み立てに失敗しました: %w", err)
	}

	req := backend.DecomposeRequest{
		Instruction: instruction,
		Model:       opts.TextModel,
	}
	if caps.AcceptsImageInput {
		for _, ref := range refs {
			req.Images = append(req.Images, backend.InlineImage{Data: ref.Image, MimeType: ref.MimeType})
		}
	}

	var result *parser.Result
	err = d.policy.do(ctx, "scene decomposition", func(ctx context.Context) error {
		raw, err := d.be.Decompose(ctx, req)
		if err != nil {
			return err
		}
		parsed, err := parser.ParseDecomposition(raw, opts.CaptionPolicy())
		if err != nil {
			return err
		}
		result = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ストーリーを分解しました",
		"backend", d.be.Kind(), "scenes", len(result.Scenes), "canon", len(result.Canon))
	return result, nil
}
