package workflow

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/gemini"
	"github.com/shouni/go-http-kit/httpkit"
	"google.golang.org/genai"

	"github.com/ESV43/Com/pkg/backend"
	"github.com/ESV43/Com/pkg/config"
	"github.com/ESV43/Com/pkg/domain"
	"github.com/ESV43/Com/pkg/generator"
	"github.com/ESV43/Com/pkg/prompts"
	"github.com/ESV43/Com/pkg/resolver"
)

const defaultGeminiTemperature = float32(0.4)

// Manager はバックエンドと各工程のコンポーネントを構築・保持し、
// 生成実行のエントリポイントを提供します。
type Manager struct {
	cfg config.Config

	decomposers map[domain.BackendKind]Decomposer
	renderers   map[domain.BackendKind]Renderer
	canon       CanonBuilder // Gemini 資格情報がない場合は nil

	ib *prompts.InstructionBuilder
	pb *prompts.PanelPromptBuilder

	caps map[domain.BackendKind]backend.Capabilities
}

// New は設定から実クライアントを構築して Manager を初期化します。
// Gemini API キーが空の場合、構造化バックエンドと説明プリパスは無効になり、
// それらを要求する実行は ErrConfiguration で拒否されます。
func New(ctx context.Context, cfg config.Config) (*Manager, error) {
	httpClient := httpkit.New(cfg.HTTPTimeout)

	open, err := backend.NewPollinationsBackend(httpClient, cfg.OpenTextEndpoint, cfg.OpenImageEndpoint, cfg.OpenTextModel, cfg.OpenImageModel)
	if err != nil {
		return nil, fmt.Errorf("オープンバックエンドの初期化に失敗しました: %w", err)
	}

	var structured backend.Backend
	if cfg.GeminiAPIKey != "" {
		aiClient, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Temperature: genai.Ptr(defaultGeminiTemperature),
		})
		if err != nil {
			return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
		}
		structured, err = backend.NewGeminiBackend(aiClient, cfg.GeminiModel, cfg.GeminiImageModel)
		if err != nil {
			return nil, fmt.Errorf("構造化バックエンドの初期化に失敗しました: %w", err)
		}
	}

	return NewWithBackends(cfg, structured, open)
}

// NewWithBackends は構築済みのバックエンドから Manager を組み立てます。
// structured は nil 許容で、open は必須です。
func NewWithBackends(cfg config.Config, structured, open backend.Backend) (*Manager, error) {
	if open == nil {
		return nil, fmt.Errorf("open バックエンドは必須です")
	}

	ib, err := prompts.NewInstructionBuilder()
	if err != nil {
		return nil, fmt.Errorf("指示ビルダーの初期化に失敗しました: %w", err)
	}

	m := &Manager{
		cfg:         cfg,
		decomposers: make(map[domain.BackendKind]Decomposer),
		renderers:   make(map[domain.BackendKind]Renderer),
		ib:          ib,
		pb:          prompts.NewPanelPromptBuilder(cfg.QualitySuffix),
		caps:        make(map[domain.BackendKind]backend.Capabilities),
	}

	for _, be := range []backend.Backend{structured, open} {
		if be == nil {
			continue
		}
		d, err := generator.NewSceneDecomposer(be, ib, cfg.MaxAttempts, cfg.BackoffBase)
		if err != nil {
			return nil, err
		}
		r, err := generator.NewPanelRenderer(be, cfg.RateInterval, cfg.MaxAttempts, cfg.BackoffBase)
		if err != nil {
			return nil, err
		}
		m.decomposers[be.Kind()] = d
		m.renderers[be.Kind()] = r
		m.caps[be.Kind()] = be.Capabilities()
	}

	if structured != nil {
		descCache := newDescriptionCache(cfg)
		cb, err := resolver.New(structured, ib, cfg.GeminiModel, descCache, cfg.DescriptionCacheTTL)
		if err != nil {
			return nil, err
		}
		m.canon = cb
	}

	return m, nil
}

func newDescriptionCache(cfg config.Config) *cache.Cache {
	ttl := cfg.DescriptionCacheTTL
	if ttl <= 0 {
		ttl = config.DefaultDescriptionCacheTTL
	}
	cleanup := cfg.DescriptionCacheCleanup
	if cleanup <= 0 {
		cleanup = config.DefaultDescriptionCacheCleanup
	}
	return cache.New(ttl, cleanup)
}

// components は 1 回の実行で使用するコンポーネント一式を解決します。
// 前提条件の欠落はすべて ErrConfiguration として報告します。
func (m *Manager) components(opts domain.StoryOptions) (Decomposer, Renderer, backend.Capabilities, error) {
	d, ok := m.decomposers[opts.Backend]
	if !ok {
		if opts.Backend == domain.BackendGemini {
			return nil, nil, backend.Capabilities{}, fmt.Errorf("%w: Gemini バックエンドには GEMINI_API_KEY が必要です", ErrConfiguration)
		}
		return nil, nil, backend.Capabilities{}, fmt.Errorf("%w: 未知のバックエンドです: %s", ErrConfiguration, opts.Backend)
	}
	r := m.renderers[opts.Backend]
	caps := m.caps[opts.Backend]

	if len(opts.UsableCharacters()) > 0 && !caps.StructuredOutput && m.canon == nil {
		return nil, nil, backend.Capabilities{}, fmt.Errorf("%w: キャラクター一貫性の解決には GEMINI_API_KEY が必要です", ErrConfiguration)
	}

	return d, r, caps, nil
}
