package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義
const (
	DefaultGeminiModel      = "gemini-3-flash-preview"
	DefaultGeminiImageModel = "gemini-3-pro-image-preview"
	DefaultOpenTextModel    = "openai"
	DefaultOpenImageModel   = "flux"

	DefaultOpenTextEndpoint  = "https://text.pollinations.ai"
	DefaultOpenImageEndpoint = "https://image.pollinations.ai"

	DefaultHTTPTimeout  = 60 * time.Second
	DefaultRateInterval = 2 * time.Second

	// DefaultMaxAttempts は 1 回の外部呼び出しに対する試行回数の上限です（初回 + リトライ2回）。
	DefaultMaxAttempts = 3
	// DefaultBackoffBase はリトライ間の待機時間の基準値です。待機は試行回数に比例して伸びます。
	DefaultBackoffBase = 2 * time.Second

	DefaultDescriptionCacheTTL     = 30 * time.Minute
	DefaultDescriptionCacheCleanup = 1 * time.Hour

	// DefaultQualitySuffix は全パネルに共通で付加する品質タグです。
	DefaultQualitySuffix = "clean line art, consistent character design, cinematic lighting, high detail"
)

// Config はコア全体の動作設定です。実行ごとのパラメータは domain.StoryOptions が持ち、
// こちらはプロセス単位の設定（資格情報、エンドポイント、リトライ方針）を保持します。
type Config struct {
	// GeminiAPIKey は構造化バックエンドおよびキャラクター説明プリパスで必須の資格情報です。
	// コアは読み取り専用の値渡しのみを行い、保持も永続化もしません。
	GeminiAPIKey string

	GeminiModel      string
	GeminiImageModel string
	OpenTextModel    string
	OpenImageModel   string

	OpenTextEndpoint  string
	OpenImageEndpoint string

	QualitySuffix string

	HTTPTimeout  time.Duration
	RateInterval time.Duration
	MaxAttempts  int
	BackoffBase  time.Duration

	DescriptionCacheTTL     time.Duration
	DescriptionCacheCleanup time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		GeminiModel:             DefaultGeminiModel,
		GeminiImageModel:        DefaultGeminiImageModel,
		OpenTextModel:           DefaultOpenTextModel,
		OpenImageModel:          DefaultOpenImageModel,
		OpenTextEndpoint:        DefaultOpenTextEndpoint,
		OpenImageEndpoint:       DefaultOpenImageEndpoint,
		QualitySuffix:           DefaultQualitySuffix,
		HTTPTimeout:             DefaultHTTPTimeout,
		RateInterval:            DefaultRateInterval,
		MaxAttempts:             DefaultMaxAttempts,
		BackoffBase:             DefaultBackoffBase,
		DescriptionCacheTTL:     DefaultDescriptionCacheTTL,
		DescriptionCacheCleanup: DefaultDescriptionCacheCleanup,
	}
}

// LoadConfig は環境変数を反映した設定を返します。未設定の項目はデフォルト値のままです。
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", "")
	cfg.GeminiModel = envutil.GetEnv("GEMINI_MODEL", DefaultGeminiModel)
	cfg.GeminiImageModel = envutil.GetEnv("GEMINI_IMAGE_MODEL", DefaultGeminiImageModel)
	cfg.OpenTextModel = envutil.GetEnv("OPEN_TEXT_MODEL", DefaultOpenTextModel)
	cfg.OpenImageModel = envutil.GetEnv("OPEN_IMAGE_MODEL", DefaultOpenImageModel)
	cfg.OpenTextEndpoint = envutil.GetEnv("OPEN_TEXT_ENDPOINT", DefaultOpenTextEndpoint)
	cfg.OpenImageEndpoint = envutil.GetEnv("OPEN_IMAGE_ENDPOINT", DefaultOpenImageEndpoint)
	return cfg
}
