package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// CharacterReference は呼び出し元から渡されるキャラクター参照です。
// 画像はメモリ上のバイナリとして受け取り、コアは一切永続化しません。
type CharacterReference struct {
	ID       string
	Name     string
	Image    []byte
	MimeType string
}

// Usable は一貫性解決に参加できるか（名前と画像の両方を持つか）を返します。
func (c CharacterReference) Usable() bool {
	return strings.TrimSpace(c.Name) != "" && len(c.Image) > 0
}

// ImageDigest は参照画像の SHA-256 ダイジェストを返します。
// 説明文キャッシュおよび同一画像の重複排除のキーとして使用します。
func (c CharacterReference) ImageDigest() string {
	sum := sha256.Sum256(c.Image)
	return fmt.Sprintf("%x", sum)
}

func (c CharacterReference) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}

// Canon は名前と視覚的説明文の対応表（キャラクター正典）です。
// 1 回の実行中に一度だけ構築され、以後は不変として扱われます。
// 挿入順序を保持し、複数キャラクターが同一パネルに登場する場合の
// 説明文の並び順を決定します。
type Canon struct {
	names   []string
	byLower map[string]string
}

// NewCanon は空の Canon を生成します。
func NewCanon() *Canon {
	return &Canon{byLower: make(map[string]string)}
}

// Add は名前と説明文を登録します。名前・説明文のどちらかが空の場合と、
// 登録済みの名前は無視されます。
func (c *Canon) Add(name, description string) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return
	}
	key := strings.ToLower(name)
	if _, ok := c.byLower[key]; ok {
		return
	}
	c.names = append(c.names, name)
	c.byLower[key] = description
}

// Get は名前（大文字小文字を区別しない）に対応する説明文を返します。
func (c *Canon) Get(name string) (string, bool) {
	desc, ok := c.byLower[strings.ToLower(name)]
	return desc, ok
}

// Names は挿入順のキャラクター名一覧を返します。
func (c *Canon) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len は登録済みキャラクター数を返します。
func (c *Canon) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Inject は、プロンプト本文に名前が登場する各キャラクターの説明文を
// プロンプトの先頭に前置した最終プロンプトを返します。
// バックエンドが既に説明文を埋め込み済みの場合は再挿入しません。
// 判定はいずれも大文字小文字を区別しません。
func (c *Canon) Inject(prompt string) string {
	if c == nil || len(c.names) == 0 {
		return prompt
	}

	lowerPrompt := strings.ToLower(prompt)
	var prefixes []string
	for _, name := range c.names {
		if !strings.Contains(lowerPrompt, strings.ToLower(name)) {
			continue
		}
		desc := c.byLower[strings.ToLower(name)]
		if strings.Contains(lowerPrompt, strings.ToLower(desc)) {
			continue
		}
		prefixes = append(prefixes, fmt.Sprintf("%s: %s.", name, desc))
	}

	if len(prefixes) == 0 {
		return prompt
	}
	return strings.Join(prefixes, " ") + " " + prompt
}

// SeedFromText はテキストから決定論的なシード値を生成します。
// 名前やストーリーが同じであれば常に同じシードが使われます。
func SeedFromText(text string) int32 {
	hash := sha256.Sum256([]byte(text))
	seed := int32(binary.BigEndian.Uint32(hash[:4]))
	// 画像 API は正のシード値を期待するため、最上位ビットを落とします
	return seed & 0x7FFFFFFF
}
