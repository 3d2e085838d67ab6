package domain

import (
	imagedom "github.com/shouni/gemini-image-kit/ports"
)

// PanelSpec は台本分解の結果として得られる 1 シーン分の仕様です。
type PanelSpec struct {
	SceneNumber int      `json:"scene_number"`
	ImagePrompt string   `json:"image_prompt"`
	Caption     string   `json:"caption,omitempty"`
	Dialogues   []string `json:"dialogues"`
}

// ImageStatus はパネル画像の生成状態です。
type ImageStatus string

const (
	ImagePending  ImageStatus = "pending"
	ImageResolved ImageStatus = "resolved"
	ImageFailed   ImageStatus = "failed"
)

// PanelRecord は PanelSpec と画像生成結果を束ねた、実行の外部可視な出力単位です。
// 分解直後に pending 状態で生成され、各パネルの画像呼び出し完了時に
// resolved または failed へその場で更新されます。
type PanelRecord struct {
	Spec PanelSpec

	// FinalPrompt は画像バックエンドに実際に送信したプロンプトです（デバッグ/表示用）。
	FinalPrompt string

	Status ImageStatus
	Image  *imagedom.ImageResponse

	// FailureReason は Status が failed のときの人間可読なメッセージです。
	FailureReason string
}

// Resolved は画像生成が成功したかを返します。
func (r *PanelRecord) Resolved() bool {
	return r.Status == ImageResolved && r.Image != nil
}

// NewPendingRecords は分解結果から pending 状態のレコード列を生成します。
func NewPendingRecords(specs []PanelSpec) []*PanelRecord {
	records := make([]*PanelRecord, len(specs))
	for i, spec := range specs {
		records[i] = &PanelRecord{Spec: spec, Status: ImagePending}
	}
	return records
}
