package domain

import (
	"fmt"
	"strings"
)

// 入力制約の定義
const (
	MaxStoryLength = 20000
	MinPanelCount  = 1
	MaxPanelCount  = 20
)

// BackendKind は生成に使用するバックエンドの種別です。
type BackendKind string

const (
	// BackendGemini は構造化出力とインライン画像入力に対応した LLM バックエンドです。
	BackendGemini BackendKind = "gemini"
	// BackendPollinations はフリーテキスト GET ベースのテキスト/画像生成バックエンドです。
	BackendPollinations BackendKind = "pollinations"
)

// AspectRatio はパネル画像のアスペクト比です。
type AspectRatio string

const (
	AspectSquare    AspectRatio = "square"
	AspectPortrait  AspectRatio = "portrait"
	AspectLandscape AspectRatio = "landscape"
)

// Dimensions は構造化サイズ指定を受け付けるバックエンド向けの固定ピクセル寸法を返します。
func (a AspectRatio) Dimensions() (width, height int) {
	switch a {
	case AspectPortrait:
		return 1024, 1792
	case AspectLandscape:
		return 1792, 1024
	default:
		return 1024, 1024
	}
}

// Token は比率トークン形式（"1:1" など）を受け付けるバックエンド向けの表現を返します。
func (a AspectRatio) Token() string {
	switch a {
	case AspectPortrait:
		return "9:16"
	case AspectLandscape:
		return "16:9"
	default:
		return "1:1"
	}
}

// CaptionPlacement はキャプションの配置方法です。
type CaptionPlacement string

const (
	// CaptionBelow はキャプションとセリフを画像とは別のフィールドとして保持します。
	CaptionBelow CaptionPlacement = "below"
	// CaptionInImage はキャプションを画像内に描き込みます（セリフフィールドなし）。
	CaptionInImage CaptionPlacement = "in_image"
)

// CaptionPolicy は台本生成時に適用される 3 種類のキャプション方針です。
type CaptionPolicy string

const (
	CaptionPolicyFull    CaptionPolicy = "full"     // caption + dialogues フィールドを含める
	CaptionPolicyInImage CaptionPolicy = "in_image" // caption のみ（画像内描画）
	CaptionPolicyOmit    CaptionPolicy = "omit"     // caption / dialogues を null 化
)

// StoryOptions は 1 回の生成実行に必要な、検証済みの入力一式です。
// UI 層で組み立てられ、コアは構造的なチェックのみを行います。
type StoryOptions struct {
	Story            string
	PanelCount       int
	Style            string
	Era              string
	AspectRatio      AspectRatio
	IncludeCaptions  bool
	CaptionPlacement CaptionPlacement
	Backend          BackendKind
	TextModel        string
	ImageModel       string
	Seed             int64
	Characters       []CharacterReference
}

// Validate は構造的な妥当性チェックを行います。
// セマンティックな検証（スタイル名の実在性など）は呼び出し元の責務です。
func (o StoryOptions) Validate() error {
	story := strings.TrimSpace(o.Story)
	if story == "" {
		return fmt.Errorf("ストーリーが空です")
	}
	if len(o.Story) > MaxStoryLength {
		return fmt.Errorf("ストーリーが長すぎます: %d 文字 (上限 %d)", len(o.Story), MaxStoryLength)
	}
	if o.PanelCount < MinPanelCount || o.PanelCount > MaxPanelCount {
		return fmt.Errorf("パネル数が範囲外です: %d (許容範囲 %d〜%d)", o.PanelCount, MinPanelCount, MaxPanelCount)
	}
	switch o.Backend {
	case BackendGemini, BackendPollinations:
	default:
		return fmt.Errorf("未知のバックエンドです: %q", o.Backend)
	}
	return nil
}

// CaptionPolicy はキャプションフラグと配置設定から適用すべき方針を導出します。
func (o StoryOptions) CaptionPolicy() CaptionPolicy {
	if !o.IncludeCaptions {
		return CaptionPolicyOmit
	}
	if o.CaptionPlacement == CaptionInImage {
		return CaptionPolicyInImage
	}
	return CaptionPolicyFull
}

// EffectiveSeed は画像生成に使用するシード値を返します。
// 呼び出し元が明示的に指定しなかった場合、ストーリー本文から決定論的に導出するため、
// 同一入力での再実行は常に同じシードを使用します。
func (o StoryOptions) EffectiveSeed() int64 {
	if o.Seed != 0 {
		return o.Seed
	}
	return int64(SeedFromText(o.Story))
}

// UsableCharacters は一貫性解決に参加できる参照（名前と画像の両方を持つもの）のみを返します。
// どちらかが欠けた参照はエラーではなく、単に除外されます。
func (o StoryOptions) UsableCharacters() []CharacterReference {
	var usable []CharacterReference
	for _, c := range o.Characters {
		if c.Usable() {
			usable = append(usable, c)
		}
	}
	return usable
}
