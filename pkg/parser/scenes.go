// Package parser はバックエンド応答からのシーン配列抽出と修復を担います。
// バックエンドは生の JSON 配列・`scenes` キーを持つオブジェクト・
// markdown フェンス付き JSON のいずれを返すことも許容し、
// デコード失敗はこの呼び出し限りの回復可能エラーとして返します。
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ESV43/Com/pkg/domain"
)

// Result は 1 回の分解応答の解析結果です。
type Result struct {
	Scenes []domain.PanelSpec

	// Canon は構造化バックエンドが応答に同梱したキャラクター正典
	// （名前 → 視覚的説明文）です。同梱がなければ nil です。
	Canon map[string]string
}

// rawScene はバックエンドが返すシーン 1 件の緩い形です。
// 欠損フィールドは解析後に修復されます。
type rawScene struct {
	SceneNumber int      `json:"scene_number"`
	ImagePrompt string   `json:"image_prompt"`
	Caption     *string  `json:"caption"`
	Dialogues   []string `json:"dialogues"`
}

type envelope struct {
	Scenes     []json.RawMessage `json:"scenes"`
	Characters map[string]string `json:"characters"`
}

// ParseDecomposition は応答テキストからシーン列を抽出し、修復して返します。
// 空配列は有効な（空の）結果でありエラーではありません。呼び出し側は
// len(Scenes) == 0 をフォールバックのシグナルとして扱います。
func ParseDecomposition(raw string, policy domain.CaptionPolicy) (*Result, error) {
	payload := extractJSON(raw)

	entries, canon, err := decodeEntries(payload)
	if err != nil {
		return nil, fmt.Errorf("分解応答のJSON解析に失敗しました (応答抜粋: %q): %w", truncate(raw, 200), err)
	}

	scenes := repairScenes(entries, policy)
	return &Result{Scenes: scenes, Canon: canon}, nil
}

// decodeEntries はペイロードを配列またはエンベロープとして厳密にデコードします。
func decodeEntries(payload string) ([]json.RawMessage, map[string]string, error) {
	trimmed := strings.TrimSpace(payload)

	if strings.HasPrefix(trimmed, "[") {
		var entries []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil, nil, err
		}
		return entries, nil, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, nil, err
	}
	if env.Scenes == nil {
		return nil, nil, fmt.Errorf("応答オブジェクトに scenes 配列がありません")
	}
	return env.Scenes, env.Characters, nil
}

// repairScenes は緩いエントリ列を正規化済みの PanelSpec 列に変換します。
// 強制不能なエントリは伝播させず破棄します。
func repairScenes(entries []json.RawMessage, policy domain.CaptionPolicy) []domain.PanelSpec {
	var scenes []domain.PanelSpec
	for i, entry := range entries {
		var rs rawScene
		if err := json.Unmarshal(entry, &rs); err != nil {
			slog.Warn("シーンエントリを PanelSpec に変換できないため破棄します", "index", i, "error", err)
			continue
		}

		prompt := strings.TrimSpace(rs.ImagePrompt)
		if prompt == "" {
			slog.Warn("image_prompt が空のシーンを破棄します", "index", i)
			continue
		}

		spec := domain.PanelSpec{
			SceneNumber: rs.SceneNumber,
			ImagePrompt: prompt,
			Dialogues:   rs.Dialogues,
		}
		if rs.Caption != nil {
			spec.Caption = strings.TrimSpace(*rs.Caption)
		}
		if spec.SceneNumber <= 0 {
			// 欠損した scene_number は 1 始まりの配列位置で補完する
			spec.SceneNumber = i + 1
		}
		if spec.Dialogues == nil {
			spec.Dialogues = []string{}
		}

		// バックエンドが指示を無視した場合への防御として、方針を強制適用する
		switch policy {
		case domain.CaptionPolicyOmit:
			spec.Caption = ""
			spec.Dialogues = []string{}
		case domain.CaptionPolicyInImage:
			spec.Dialogues = []string{}
		}

		scenes = append(scenes, spec)
	}

	renumberIfAmbiguous(scenes)
	return scenes
}

// renumberIfAmbiguous は scene_number の重複を検出した場合に
// 応答の配列位置から表示順を再導出します。
func renumberIfAmbiguous(scenes []domain.PanelSpec) {
	seen := make(map[int]bool, len(scenes))
	for _, s := range scenes {
		if seen[s.SceneNumber] {
			for i := range scenes {
				scenes[i].SceneNumber = i + 1
			}
			return
		}
		seen[s.SceneNumber] = true
	}
}

// extractJSON は応答テキストから最も外側の JSON リテラルをベストエフォートで抜き出します。
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		raw = strings.TrimSpace(matches[1])
	}

	arrStart := strings.Index(raw, "[")
	objStart := strings.Index(raw, "{")

	switch {
	case arrStart != -1 && (objStart == -1 || arrStart < objStart):
		if end := strings.LastIndex(raw, "]"); end > arrStart {
			return raw[arrStart : end+1]
		}
	case objStart != -1:
		if end := strings.LastIndex(raw, "}"); end > objStart {
			return raw[objStart : end+1]
		}
	}

	// Fallback: 応答全体を JSON とみなす
	return raw
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
