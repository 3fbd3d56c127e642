package workflow

import (
	"fmt"
	"maps"
	"slices"

	"github.com/shouni/go-comic-kit/pkg/provider"
)

// Registry はバックエンド名と取得処理の対応表です。
type Registry struct {
	DefaultText  string
	DefaultImage string

	text        map[string]SceneAcquirer
	image       map[string]PanelImager
	unavailable map[string]error
}

// NewRegistry は既定のバックエンド名を指定して Registry を作るのだ。
func NewRegistry(defaultText, defaultImage string) *Registry {
	return &Registry{
		DefaultText:  defaultText,
		DefaultImage: defaultImage,
		text:         make(map[string]SceneAcquirer),
		image:        make(map[string]PanelImager),
		unavailable:  make(map[string]error),
	}
}

// RegisterText はテキストバックエンドを登録します。
func (r *Registry) RegisterText(name string, a SceneAcquirer) {
	r.text[name] = a
}

// RegisterImage は画像バックエンドを登録します。
func (r *Registry) RegisterImage(name string, g PanelImager) {
	r.image[name] = g
}

// MarkUnavailable は設定不足などで使えないバックエンドとその理由を記録するのだ。
func (r *Registry) MarkUnavailable(name string, reason error) {
	r.unavailable[name] = reason
}

// Text は名前からテキストバックエンドを引きます。空なら既定値なのだ。
func (r *Registry) Text(name string) (string, SceneAcquirer, error) {
	if name == "" {
		name = r.DefaultText
	}
	if a, ok := r.text[name]; ok {
		return name, a, nil
	}
	return name, nil, r.missing("テキスト", name, slices.Sorted(maps.Keys(r.text)))
}

// Image は名前から画像バックエンドを引きます。空なら既定値なのだ。
func (r *Registry) Image(name string) (string, PanelImager, error) {
	if name == "" {
		name = r.DefaultImage
	}
	if g, ok := r.image[name]; ok {
		return name, g, nil
	}
	return name, nil, r.missing("画像", name, slices.Sorted(maps.Keys(r.image)))
}

// TextBackends は登録済みのテキストバックエンド名を返します。
func (r *Registry) TextBackends() []string {
	return slices.Sorted(maps.Keys(r.text))
}

// ImageBackends は登録済みの画像バックエンド名を返します。
func (r *Registry) ImageBackends() []string {
	return slices.Sorted(maps.Keys(r.image))
}

func (r *Registry) missing(kind, name string, known []string) error {
	if reason, ok := r.unavailable[name]; ok {
		return provider.NewError(provider.ClassPrecondition, name, fmt.Errorf("%sバックエンド '%s' は利用できません: %w", kind, name, reason))
	}
	return provider.NewError(provider.ClassPrecondition, name, fmt.Errorf("未知の%sバックエンド '%s' です。利用可能: %v", kind, name, known))
}
