package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CharacterFileEntry はキャラクター定義ファイルの1件です。
// Image はローカルパス、gs:// パス、http(s) URL、data URI のいずれかなのだ。
type CharacterFileEntry struct {
	Name  string `yaml:"name" json:"name"`
	Image string `yaml:"image" json:"image"`
}

type characterFile struct {
	Characters []CharacterFileEntry `yaml:"characters"`
}

// ParseCharacterFile は YAML（または JSON）のキャラクター定義を読み込みます。
// トップレベルの配列と {characters: [...]} の両方を受け付けるのだ。
func ParseCharacterFile(data []byte) ([]CharacterFileEntry, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var list []CharacterFileEntry
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped characterFile
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("キャラクター定義ファイルのデコードに失敗したのだ: %w", err)
	}
	return wrapped.Characters, nil
}
