package workflow

import (
	"errors"

	"github.com/ESV43/Com/pkg/domain"
)

// ErrConfiguration は実行前に満たされるべき前提条件の欠落を示します。
// 生成中の一時的な失敗と異なり、このエラーだけが実行全体を中断させます。
var ErrConfiguration = errors.New("構成が不正です")

// 進行段階の識別子です。domain.GenerationProgress.Step に入ります。
const (
	StepValidating = "validating"
	StepResolving  = "resolving_characters"
	StepDecompose  = "decomposing"
	StepRendering  = "rendering"
	StepComplete   = "complete"
)

// 各段階が全体に占める進捗の目安です。描画は残り区間をパネル数で按分します。
const (
	percentResolving  = 5.0
	percentDecompose  = 10.0
	percentRenderBase = 25.0
	percentRenderSpan = 70.0
	percentComplete   = 100.0
)

// RunResult は 1 回の生成実行の最終成果です。
type RunResult struct {
	// Records はパネル台本順のレコードです。失敗したパネルも位置を保ちます。
	Records []*domain.PanelRecord

	// Canon は今回の実行で使用したキャラクター説明の対応表です。
	Canon *domain.Canon

	// Warnings は致命的でない逸脱（フォールバック発動、パネル失敗など）の記録です。
	Warnings []string

	// UsedFallback は分解に失敗し、単一パネルの合成台本へ退避したことを示します。
	UsedFallback bool
}

// ResolvedCount は画像取得に成功したパネル数を返します。
func (r *RunResult) ResolvedCount() int {
	n := 0
	for i := range r.Records {
		if r.Records[i].Resolved() {
			n++
		}
	}
	return n
}
