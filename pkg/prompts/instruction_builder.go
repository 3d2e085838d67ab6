package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/ESV43/Com/pkg/domain"
)

// InstructionBuilder はバックエンドへ送る指示文の構成を管理します。
// テンプレートは初期化時に一度だけ解析されます。
type InstructionBuilder struct {
	templates map[string]*template.Template
}

// NewInstructionBuilder は InstructionBuilder を初期化します。
func NewInstructionBuilder() (*InstructionBuilder, error) {
	parsedTemplates := make(map[string]*template.Template)
	for mode, content := range allTemplates {
		if content == "" {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: 内容が空です", mode)
		}

		tmpl, err := template.New(mode).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", mode, err)
		}
		parsedTemplates[mode] = tmpl
	}

	return &InstructionBuilder{templates: parsedTemplates}, nil
}

// BuildDecomposition は台本分解の指示文を構築します。
// demandCanon が真の場合、キャラクター正典の導出とプロンプトへの逐語埋め込みを要求します
// （要求するだけでなく、遵守は resolver 側で検証されます）。
func (b *InstructionBuilder) BuildDecomposition(opts domain.StoryOptions, demandCanon bool) (string, error) {
	var names []string
	if demandCanon {
		for _, c := range opts.UsableCharacters() {
			names = append(names, c.Name)
		}
		if len(names) == 0 {
			demandCanon = false
		}
	}

	data := DecompositionData{
		Story:          opts.Story,
		PanelCount:     opts.PanelCount,
		Style:          valueOr(opts.Style, "comic book"),
		Era:            valueOr(opts.Era, "present day"),
		AspectHint:     AspectHint(opts.AspectRatio),
		CaptionClause:  captionClause(opts.CaptionPolicy()),
		DemandCanon:    demandCanon,
		CharacterNames: names,
	}
	return b.execute(ModeDecompose, data)
}

// BuildDescription はキャラクター説明プリパスの指示文を構築します。
func (b *InstructionBuilder) BuildDescription(name string) (string, error) {
	return b.execute(ModeDescribe, DescriptionData{Name: name})
}

func (b *InstructionBuilder) execute(mode string, data any) (string, error) {
	tmpl, ok := b.templates[mode]
	if !ok {
		return "", fmt.Errorf("不明なモードです: '%s'", mode)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}
	return sb.String(), nil
}

// captionClause はキャプション方針に対応する固定節を返します。
func captionClause(policy domain.CaptionPolicy) string {
	switch policy {
	case domain.CaptionPolicyInImage:
		return captionClauseInImage
	case domain.CaptionPolicyOmit:
		return captionClauseOmit
	default:
		return captionClauseFull
	}
}

// AspectHint はアスペクト比の自然言語ヒントを返します。
// 構造化サイズ指定を持たないバックエンド向けにプロンプトへ埋め込みます。
func AspectHint(a domain.AspectRatio) string {
	switch a {
	case domain.AspectPortrait:
		return "Compose every scene for a tall portrait 9:16 frame."
	case domain.AspectLandscape:
		return "Compose every scene for a wide landscape 16:9 frame."
	default:
		return "Compose every scene for a square 1:1 frame."
	}
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
