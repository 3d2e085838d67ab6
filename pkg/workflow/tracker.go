package workflow

import (
	"sync"

	"github.com/ESV43/Com/pkg/domain"
)

// ProgressObserver は進捗スナップショットの通知を受けるコールバックです。
// RunTracker のロックを保持したまま呼ばれることはありません。
type ProgressObserver func(domain.GenerationProgress)

// RunTracker は 1 回の生成実行の観測面です。パネルレコードは解決のたびに
// 逐次公開され、進捗率は後退しません。コールバック通知とポーリング
// （Snapshot / Records / Warnings）のどちらでも読み取れます。
type RunTracker struct {
	mu       sync.Mutex
	observer ProgressObserver
	progress domain.GenerationProgress
	records  []domain.PanelRecord
	warnings []string
}

// NewRunTracker は RunTracker を初期化します。observer は nil 許容です。
func NewRunTracker(observer ProgressObserver) *RunTracker {
	return &RunTracker{observer: observer}
}

// setRecords は台本確定時点の全レコード（通常は pending）を値コピーで公開します。
func (t *RunTracker) setRecords(records []*domain.PanelRecord) {
	t.mu.Lock()
	t.records = make([]domain.PanelRecord, len(records))
	for i, r := range records {
		t.records[i] = *r
	}
	t.mu.Unlock()
}

// publishRecord は 1 パネル分の状態遷移（resolved / failed）を公開します。
func (t *RunTracker) publishRecord(index int, record domain.PanelRecord) {
	t.mu.Lock()
	if index >= 0 && index < len(t.records) {
		t.records[index] = record
	}
	t.mu.Unlock()
}

// warn は致命的でない逸脱を記録します。
func (t *RunTracker) warn(message string) {
	t.mu.Lock()
	t.warnings = append(t.warnings, message)
	t.mu.Unlock()
}

// advance は進捗スナップショットを更新し、observer に通知します。
// 進捗率は単調増加で、過去より小さい値は切り上げられます。
func (t *RunTracker) advance(step string, percent float64, currentPanel, totalPanels int) {
	t.mu.Lock()
	if percent < t.progress.Percent {
		percent = t.progress.Percent
	}
	t.progress = domain.GenerationProgress{
		Step:         step,
		Percent:      percent,
		CurrentPanel: currentPanel,
		TotalPanels:  totalPanels,
	}
	snapshot := t.progress
	observer := t.observer
	t.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

// Snapshot は現在の進捗を返します。
func (t *RunTracker) Snapshot() domain.GenerationProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Records は公開済みレコードのコピーを返します。
func (t *RunTracker) Records() []domain.PanelRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.PanelRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Warnings は蓄積された警告のコピーを返します。
func (t *RunTracker) Warnings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.warnings))
	copy(out, t.warnings)
	return out
}
