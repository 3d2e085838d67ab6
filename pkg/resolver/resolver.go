// Package resolver はキャラクターの視覚的一貫性を解決します。
// 構造化バックエンドでは分解応答に同梱された正典を取り込み（インライン正典戦略）、
// それ以外では参照画像ごとの説明プリパスを並列実行します（プリパス戦略）。
// どちらの戦略でも、最終プロンプトへの注入は domain.Canon.Inject が
// プログラム的に保証します — バックエンドの指示遵守は信用しません。
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ESV43/Com/pkg/backend"
	"github.com/ESV43/Com/pkg/domain"
	"github.com/ESV43/Com/pkg/prompts"
)

const cacheKeyDescription = "char_desc:"

// CharacterDescriber は説明プリパスに必要な最小限のバックエンド能力です。
type CharacterDescriber interface {
	DescribeCharacter(ctx context.Context, req backend.DescribeRequest) (string, error)
}

// Resolver はキャラクター説明の導出と再利用を担います。
type Resolver struct {
	describer  CharacterDescriber
	ib         *prompts.InstructionBuilder
	model      string
	cache      *cache.Cache // nil 許容（キャッシュなし動作）
	expiration time.Duration
	group      singleflight.Group
}

// New は依存関係を注入して Resolver を初期化します。
func New(describer CharacterDescriber, ib *prompts.InstructionBuilder, model string, descCache *cache.Cache, ttl time.Duration) (*Resolver, error) {
	if describer == nil {
		return nil, fmt.Errorf("describer is required")
	}
	if ib == nil {
		return nil, fmt.Errorf("instruction builder is required")
	}
	return &Resolver{
		describer:  describer,
		ib:         ib,
		model:      model,
		cache:      descCache,
		expiration: ttl,
	}, nil
}

// BuildCanon はプリパス戦略で正典を構築します。
// 参照ごとの説明リクエストは互いに独立で、順序制約なく並列に実行されます。
// 1 件の失敗は他を中断させず、そのキャラクターが対応表から外れるだけです。
// 返る正典の挿入順序は refs の順序と一致します。
func (r *Resolver) BuildCanon(ctx context.Context, refs []domain.CharacterReference) (*domain.Canon, error) {
	results := make([]string, len(refs))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, ref := range refs {
		if !ref.Usable() {
			continue
		}
		i, ref := i, ref
		eg.Go(func() error {
			desc, err := r.describe(egCtx, ref)
			if err != nil {
				// 失敗は孤立させる。このキャラクターは単に対応表から外れる。
				slog.Warn("キャラクター説明の導出に失敗しました", "character", ref.Name, "error", err)
				return nil
			}
			results[i] = desc
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canon := domain.NewCanon()
	for i, ref := range refs {
		if results[i] != "" {
			canon.Add(ref.Name, results[i])
		}
	}

	slog.Info("キャラクター正典を構築しました", "requested", len(refs), "resolved", canon.Len())
	return canon, nil
}

// describe は 1 キャラクター分の説明を導出します。
// 同一画像はダイジェストをキーに結果を共有し、キャッシュがあれば再導出を省きます。
func (r *Resolver) describe(ctx context.Context, ref domain.CharacterReference) (string, error) {
	digest := ref.ImageDigest()
	cacheKey := cacheKeyDescription + digest

	if r.cache != nil {
		if val, ok := r.cache.Get(cacheKey); ok {
			if desc, ok := val.(string); ok {
				return desc, nil
			}
		}
	}

	v, err, _ := r.group.Do(digest, func() (any, error) {
		instruction, err := r.ib.BuildDescription(ref.Name)
		if err != nil {
			return nil, err
		}

		desc, err := r.describer.DescribeCharacter(ctx, backend.DescribeRequest{
			Instruction: instruction,
			Model:       r.model,
			Image:       backend.InlineImage{Data: ref.Image, MimeType: ref.MimeType},
		})
		if err != nil {
			return nil, err
		}
		return desc, nil
	})
	if err != nil {
		return "", err
	}

	desc := v.(string)
	if r.cache != nil {
		r.cache.Set(cacheKey, desc, r.expiration)
	}
	return desc, nil
}

// FromCanonMap はインライン正典戦略で、分解応答に同梱された正典マップから
// 対応表を構築します。挿入順序は refs の順序を優先し、応答のみに現れた
// 名前は名前順で末尾に加えます。
func FromCanonMap(m map[string]string, refs []domain.CharacterReference) *domain.Canon {
	canon := domain.NewCanon()
	if len(m) == 0 {
		return canon
	}

	lower := make(map[string]string, len(m))
	for name := range m {
		lower[strings.ToLower(name)] = name
	}

	for _, ref := range refs {
		if name, ok := lower[strings.ToLower(ref.Name)]; ok {
			canon.Add(ref.Name, m[name])
		}
	}

	var extras []string
	for name := range m {
		if _, ok := canon.Get(name); !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		canon.Add(name, m[name])
	}

	return canon
}
