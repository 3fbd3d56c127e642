package domain

// RunState は生成実行の状態なのだ。
type RunState string

const (
	StateIdle             RunState = "idle"
	StateAcquiringScenes  RunState = "acquiring_scenes"
	StateScenesReady      RunState = "scenes_ready"
	StateFallbackReady    RunState = "fallback_ready"
	StateFailed           RunState = "failed"
	StateGeneratingImages RunState = "generating_images"
	StateComplete         RunState = "complete"
)

// Active は実行中の状態かどうかを返します。
func (s RunState) Active() bool {
	switch s {
	case StateAcquiringScenes, StateScenesReady, StateFallbackReady, StateGeneratingImages:
		return true
	}
	return false
}

// GenerationProgress は実行ごとに作り直される進捗情報です。
type GenerationProgress struct {
	Step         string `json:"step"`
	Percent      int    `json:"percent"`
	CurrentPanel int    `json:"current_panel,omitempty"`
	TotalPanels  int    `json:"total_panels,omitempty"`
}

// Advance はステップ名と進捗率を更新します。進捗率は減らないのだ。
func (p *GenerationProgress) Advance(step string, percent int) {
	p.Step = step
	if percent > 100 {
		percent = 100
	}
	if percent > p.Percent {
		p.Percent = percent
	}
}
