// Package models はバックエンドごとのモデル一覧を短時間キャッシュするカタログです。
package models

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

// DefaultTTL はモデル一覧を再取得するまでの時間なのだ。
const DefaultTTL = 10 * time.Minute

// DefaultsFunc は一覧が取れないときに使う既定のモデル一覧を返します。
type DefaultsFunc func(kind provider.ModelKind) []provider.ModelInfo

type source struct {
	lister   provider.ModelLister
	defaults DefaultsFunc
}

// Catalog はモデル一覧の取得を重複させず、TTL の間だけ結果を保持するのだ。
type Catalog struct {
	cache   *cache.Cache
	group   singleflight.Group
	sources map[string]source
}

// NewCatalog は新しい Catalog を生成します。ttl が0以下なら DefaultTTL なのだ。
func NewCatalog(ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		cache:   cache.New(ttl, 2*ttl),
		sources: make(map[string]source),
	}
}

// Register はバックエンドを登録します。lister が nil なら既定の一覧だけを返すのだ。
func (c *Catalog) Register(backend string, lister provider.ModelLister, defaults DefaultsFunc) {
	c.sources[backend] = source{lister: lister, defaults: defaults}
}

// Backends は登録済みのバックエンド名を返します。
func (c *Catalog) Backends() []string {
	return slices.Sorted(maps.Keys(c.sources))
}

// List はモデル一覧を返します。一覧の取得は失敗しても致命的ではなく、既定の一覧を返すのだ。
// 未登録のバックエンドだけがエラーになります。
func (c *Catalog) List(ctx context.Context, backend string, kind provider.ModelKind) ([]provider.ModelInfo, error) {
	src, ok := c.sources[backend]
	if !ok {
		return nil, provider.NewError(provider.ClassPrecondition, backend,
			fmt.Errorf("未知のバックエンド '%s' です。利用可能: [%s]", backend, strings.Join(c.Backends(), ", ")))
	}
	if src.lister == nil {
		return src.fallback(kind), nil
	}

	key := backend + ":" + string(kind)
	if cached, found := c.cache.Get(key); found {
		if models, ok := cached.([]provider.ModelInfo); ok {
			return slices.Clone(models), nil
		}
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		models, err := src.lister.ListModels(ctx, kind)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, models)
		return models, nil
	})
	if err != nil {
		slog.WarnContext(ctx, "モデル一覧の取得に失敗したため、既定の一覧を使います", "backend", backend, "kind", kind, "error", err)
		return src.fallback(kind), nil
	}

	models, ok := val.([]provider.ModelInfo)
	if !ok {
		return nil, fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return slices.Clone(models), nil
}

// Lookup は一覧から指定モデルの情報を探すのだ。
func (c *Catalog) Lookup(ctx context.Context, backend string, kind provider.ModelKind, id string) (provider.ModelInfo, bool) {
	models, err := c.List(ctx, backend, kind)
	if err != nil {
		return provider.ModelInfo{}, false
	}
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return provider.ModelInfo{}, false
}

// MultimodalLookup は backend のテキストモデルがカタログ上でマルチモーダルと
// フラグ付けされているかを返す関数を作ります。一覧にないモデルは false なのだ。
func (c *Catalog) MultimodalLookup(backend string) provider.MultimodalFunc {
	return func(ctx context.Context, model string) bool {
		info, ok := c.Lookup(ctx, backend, provider.KindText, model)
		return ok && info.Multimodal
	}
}

// Invalidate はキャッシュを破棄します。
func (c *Catalog) Invalidate() {
	c.cache.Flush()
}

func (s source) fallback(kind provider.ModelKind) []provider.ModelInfo {
	if s.defaults == nil {
		return nil
	}
	return s.defaults(kind)
}
