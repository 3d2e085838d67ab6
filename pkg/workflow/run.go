package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ESV43/Com/pkg/domain"
	"github.com/ESV43/Com/pkg/resolver"
)

// fallbackCaption はフォールバック台本のキャプションです。自動分解が
// 失敗したことを読者にも伝えます。
const fallbackCaption = "Automatic scene decomposition was unavailable; the full story is illustrated in a single panel."

// Generate はストーリーから画像付きパネル列を生成します。
//
// 実行を中断させるのは検証エラー、前提条件の欠落（ErrConfiguration）、
// コンテキストの取消だけです。分解の失敗は単一パネルへのフォールバック、
// 個々のパネルの失敗は failed レコードと警告として結果に残り、
// 残りのパネルの生成は継続されます。
//
// tracker は nil 許容です。渡した場合、レコードの逐次公開と
// 進捗スナップショットをそこから観測できます。
func (m *Manager) Generate(ctx context.Context, opts domain.StoryOptions, tracker *RunTracker) (*RunResult, error) {
	if tracker == nil {
		tracker = NewRunTracker(nil)
	}

	tracker.advance(StepValidating, 0, 0, 0)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	decomposer, renderer, caps, err := m.components(opts)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Canon: domain.NewCanon()}
	refs := opts.UsableCharacters()

	// プリパス戦略: 説明を自前で導出してから分解に進みます。
	// 構造化バックエンドでは分解応答への同梱（インライン正典）を優先します。
	if len(refs) > 0 && !caps.StructuredOutput {
		tracker.advance(StepResolving, percentResolving, 0, 0)
		canon, err := m.canon.BuildCanon(ctx, refs)
		if err != nil {
			return nil, err
		}
		result.Canon = canon
	}

	tracker.advance(StepDecompose, percentDecompose, 0, 0)
	scenes := m.decompose(ctx, decomposer, opts, refs, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// モデルが正典の同梱指示を無視した場合は説明プリパスで補います。
	if len(refs) > 0 && caps.StructuredOutput && result.Canon.Len() == 0 && !result.UsedFallback && m.canon != nil {
		tracker.advance(StepResolving, percentDecompose, 0, 0)
		canon, err := m.canon.BuildCanon(ctx, refs)
		if err != nil {
			return nil, err
		}
		result.Canon = canon
	}

	records := domain.NewPendingRecords(scenes)
	result.Records = records
	tracker.setRecords(records)

	total := len(records)
	includeAspectHint := !caps.StructuredSize
	seed := opts.EffectiveSeed()

	for i := range records {
		tracker.advance(StepRendering, renderPercent(i, total), i+1, total)

		var finalPrompt string
		if result.UsedFallback {
			finalPrompt = m.pb.BuildFallback(opts)
		} else {
			finalPrompt = m.pb.Build(records[i].Spec, result.Canon, opts, includeAspectHint)
		}
		records[i].FinalPrompt = finalPrompt

		img, err := renderer.Render(ctx, finalPrompt, opts.ImageModel, seed, opts.AspectRatio)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			records[i].Status = domain.ImageFailed
			records[i].FailureReason = err.Error()
			warning := fmt.Sprintf("パネル %d: 画像生成に失敗しました: %v", records[i].Spec.SceneNumber, err)
			result.Warnings = append(result.Warnings, warning)
			tracker.warn(warning)
			slog.Warn("パネル画像の生成に失敗しました", "panel", records[i].Spec.SceneNumber, "error", err)
		} else {
			records[i].Status = domain.ImageResolved
			records[i].Image = img
		}

		tracker.publishRecord(i, *records[i])
		tracker.advance(StepRendering, renderPercent(i+1, total), i+1, total)
	}

	tracker.advance(StepComplete, percentComplete, total, total)
	slog.Info("生成実行が完了しました",
		"panels", total, "resolved", result.ResolvedCount(), "fallback", result.UsedFallback)
	return result, nil
}

// decompose は分解を実行し、失敗または空応答時は単一パネルの
// 合成台本へフォールバックします。
func (m *Manager) decompose(ctx context.Context, d Decomposer, opts domain.StoryOptions, refs []domain.CharacterReference, result *RunResult) []domain.PanelSpec {
	parsed, err := d.Decompose(ctx, opts)
	if err == nil && len(parsed.Scenes) > 0 {
		if len(parsed.Canon) > 0 {
			result.Canon = resolver.FromCanonMap(parsed.Canon, refs)
		}
		return parsed.Scenes
	}
	if ctx.Err() != nil {
		return nil
	}

	reason := "応答にシーンが含まれていませんでした"
	if err != nil {
		reason = err.Error()
	}
	warning := fmt.Sprintf("ストーリー分解に失敗したため単一パネルへフォールバックします: %s", reason)
	result.Warnings = append(result.Warnings, warning)
	result.UsedFallback = true
	slog.Warn("ストーリー分解のフォールバックが発動しました", "reason", reason)

	return []domain.PanelSpec{fallbackScene(opts)}
}

// fallbackScene はストーリー全体を 1 枚で描く合成台本を返します。
func fallbackScene(opts domain.StoryOptions) domain.PanelSpec {
	spec := domain.PanelSpec{
		SceneNumber: 1,
		ImagePrompt: opts.Story,
		Dialogues:   []string{},
	}
	if opts.CaptionPolicy() != domain.CaptionPolicyOmit {
		spec.Caption = fallbackCaption
	}
	return spec
}

func renderPercent(done, total int) float64 {
	if total <= 0 {
		return percentRenderBase
	}
	return percentRenderBase + percentRenderSpan*float64(done)/float64(total)
}
