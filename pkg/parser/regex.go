package parser

import "regexp"

// jsonBlockRegex は markdown フェンス（```json ... ```）内のペイロードをキャプチャします。
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")
