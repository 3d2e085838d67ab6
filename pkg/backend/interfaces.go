// Package backend は 2 種類の生成バックエンド（構造化 LLM / フリーテキスト画像）を
// 共通契約の背後に隠すプロトコル層です。ここにはワイヤ変換のみを置き、
// リトライ・修復・一貫性解決といった方針は上位層が持ちます。
package backend

import (
	"context"
	"errors"

	imagedom "github.com/shouni/gemini-image-kit/ports"

	"github.com/ESV43/Com/pkg/domain"
)

// ErrUnsupported は、選択されたバックエンドが当該操作に対応していないことを示します。
var ErrUnsupported = errors.New("このバックエンドでは対応していない操作です")

// Capabilities はバックエンドの能力タグです。オーケストレーターはクラス階層ではなく
// このタグで戦略（インライン正典 vs プリパス、構造化サイズ vs 文中ヒント）を選択します。
type Capabilities struct {
	// StructuredOutput は JSON 形式での応答指定に対応しているかを示します。
	StructuredOutput bool
	// AcceptsImageInput はテキスト呼び出しにインライン画像を添付できるかを示します。
	AcceptsImageInput bool
	// StructuredSize は構造化されたサイズ/比率パラメータを受け付けるかを示します。
	// false の場合、アスペクト比は自然言語ヒントとしてプロンプトに埋め込む必要があります。
	StructuredSize bool
}

// InlineImage はリクエストに添付するメモリ上の画像です。
type InlineImage struct {
	Data     []byte
	MimeType string
}

// DecomposeRequest は台本分解のリクエストです。Instruction には
// ストーリー・パネル数・スタイル・キャプション方針をすべて埋め込み済みの
// 単一の指示文が入ります。
type DecomposeRequest struct {
	Instruction string
	Model       string
	// Images はキャラクター参照画像です。AcceptsImageInput を持たない
	// バックエンドは無視します。
	Images []InlineImage
}

// DescribeRequest はキャラクター説明プリパスの 1 件分のリクエストです。
type DescribeRequest struct {
	Instruction string
	Model       string
	Image       InlineImage
}

// RenderRequest は 1 パネル分の画像生成リクエストです。
// Seed は呼び出し元が固定した値で、リトライ間でも変化させてはなりません。
type RenderRequest struct {
	Prompt string
	Model  string
	Seed   int64
	Aspect domain.AspectRatio
}

// Backend は両バックエンドが実装する共通契約です。
type Backend interface {
	Kind() domain.BackendKind
	Capabilities() Capabilities

	// Decompose は分解指示を送信し、未解釈の応答テキストを返します。
	// JSON 抽出と修復は parser パッケージの責務です。
	Decompose(ctx context.Context, req DecomposeRequest) (string, error)

	// DescribeCharacter は参照画像から視覚的説明文を生成します。
	// 対応しないバックエンドは ErrUnsupported を返します。
	DescribeCharacter(ctx context.Context, req DescribeRequest) (string, error)

	// RenderPanel は 1 枚の画像を生成します。
	RenderPanel(ctx context.Context, req RenderRequest) (*imagedom.ImageResponse, error)
}
