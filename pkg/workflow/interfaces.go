package workflow

import (
	"context"

	imagedom "github.com/shouni/gemini-image-kit/ports"

	"github.com/ESV43/Com/pkg/domain"
	"github.com/ESV43/Com/pkg/parser"
)

// Decomposer は、ストーリーをパネル台本へ分解する責務を持ちます。
type Decomposer interface {
	Decompose(ctx context.Context, opts domain.StoryOptions) (*parser.Result, error)
}

// Renderer は、最終プロンプトから 1 パネル分の画像を生成する責務を持ちます。
type Renderer interface {
	Render(ctx context.Context, prompt, model string, seed int64, aspect domain.AspectRatio) (*imagedom.ImageResponse, error)
}

// CanonBuilder は、参照画像からキャラクター説明の対応表を構築する責務を持ちます。
type CanonBuilder interface {
	BuildCanon(ctx context.Context, refs []domain.CharacterReference) (*domain.Canon, error)
}
