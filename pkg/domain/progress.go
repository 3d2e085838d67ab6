package domain

// GenerationProgress は実行状態のスナップショットです。
// 各状態遷移の後にオーケストレーターが再計算する純粋な観測値であり、
// 受け取った側が変更することはありません。
type GenerationProgress struct {
	// Step は現在の工程の説明文です（例: "panel 3/8 を生成中"）。
	Step string

	// Percent は 0〜100 の完了率です。実行を通して単調非減少です。
	Percent float64

	// CurrentPanel / TotalPanels はレンダリング工程中のパネル位置です。
	// 分解前はどちらも 0 です。
	CurrentPanel int
	TotalPanels  int
}
