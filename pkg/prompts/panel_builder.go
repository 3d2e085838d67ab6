package prompts

import (
	"fmt"
	"strings"

	"github.com/ESV43/Com/pkg/domain"
)

// PanelPromptBuilder は画像バックエンドへ送る最終プロンプトを組み立てます。
// 組み立て順序: キャラクター説明の前置 → シーン本文 → スタイル/年代 → 品質タグ →
// （必要なら）キャプション描画指示とアスペクト比ヒント。
type PanelPromptBuilder struct {
	qualitySuffix string
}

// NewPanelPromptBuilder は共通の品質サフィックスを持つビルダーを生成します。
func NewPanelPromptBuilder(qualitySuffix string) *PanelPromptBuilder {
	return &PanelPromptBuilder{qualitySuffix: qualitySuffix}
}

// Build は 1 パネル分の最終プロンプトを構築します。
// canon は nil を許容します（キャラクター参照なしの実行）。
// includeAspectHint は構造化サイズ指定を持たないバックエンドの場合に真を渡します。
func (pb *PanelPromptBuilder) Build(spec domain.PanelSpec, canon *domain.Canon, opts domain.StoryOptions, includeAspectHint bool) string {
	base := canon.Inject(spec.ImagePrompt)

	parts := []string{base, StyleEraClause(opts.Style, opts.Era)}
	if pb.qualitySuffix != "" {
		parts = append(parts, pb.qualitySuffix)
	}

	if opts.CaptionPolicy() == domain.CaptionPolicyInImage && strings.TrimSpace(spec.Caption) != "" {
		parts = append(parts, fmt.Sprintf("The panel includes a caption box reading %q", spec.Caption))
	}

	if includeAspectHint {
		parts = append(parts, AspectHint(opts.AspectRatio))
	}

	return joinClean(parts)
}

// BuildFallback は分解が失敗したときの単一パネル用プロンプトを構築します。
// 生のストーリー本文にスタイル/年代を付加したものです。
func (pb *PanelPromptBuilder) BuildFallback(opts domain.StoryOptions) string {
	parts := []string{opts.Story, StyleEraClause(opts.Style, opts.Era)}
	if pb.qualitySuffix != "" {
		parts = append(parts, pb.qualitySuffix)
	}
	return joinClean(parts)
}

// StyleEraClause はスタイルと年代のタグをプロンプト断片に変換します。
func StyleEraClause(style, era string) string {
	var parts []string
	if strings.TrimSpace(style) != "" {
		parts = append(parts, fmt.Sprintf("in %s style", style))
	}
	if strings.TrimSpace(era) != "" {
		parts = append(parts, fmt.Sprintf("set in %s", era))
	}
	return strings.Join(parts, ", ")
}

// joinClean は空要素を除去しつつ断片を結合します。
func joinClean(parts []string) string {
	var clean []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, ", ")
}
