package prompts

import (
	_ "embed"
)

const (
	ModeDecompose = "decompose"
	ModeDescribe  = "describe"
)

// DecompositionData は分解指示テンプレートに渡すデータ構造です。
type DecompositionData struct {
	Story          string
	PanelCount     int
	Style          string
	Era            string
	AspectHint     string
	CaptionClause  string
	DemandCanon    bool
	CharacterNames []string
}

// DescriptionData はキャラクター説明テンプレートに渡すデータ構造です。
type DescriptionData struct {
	Name string
}

var (
	//go:embed decompose.md
	decomposePrompt string
	//go:embed describe.md
	describePrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップです。
var allTemplates = map[string]string{
	ModeDecompose: decomposePrompt,
	ModeDescribe:  describePrompt,
}

// キャプション方針ごとの固定節。テンプレートの {{.CaptionClause}} に埋め込まれます。
const (
	captionClauseFull    = `For every scene, fill "caption" with a short narration line and "dialogues" with the spoken lines.`
	captionClauseInImage = `For every scene, fill "caption" with a short narration line that will be drawn inside the image itself, and set "dialogues" to an empty array.`
	captionClauseOmit    = `Set "caption" to null and "dialogues" to an empty array for every scene.`
)
