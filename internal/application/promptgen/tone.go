package promptgen

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultTone 语气滑块默认值
const DefaultTone = 50

// ToneBucket 语气分档
type ToneBucket string

const (
	ToneCasual       ToneBucket = "casual"
	ToneProfessional ToneBucket = "professional"
	ToneAcademic     ToneBucket = "academic"
)

// BucketOf 按 33/66 阈值分档，恰好等于阈值时归为 professional
func BucketOf(tone int) ToneBucket {
	switch {
	case tone < 33:
		return ToneCasual
	case tone > 66:
		return ToneAcademic
	default:
		return ToneProfessional
	}
}

// Phrase 分档对应的描述短语
func (b ToneBucket) Phrase() string {
	switch b {
	case ToneCasual:
		return "casual and friendly"
	case ToneAcademic:
		return "strict, academic, and technical"
	default:
		return "balanced and professional"
	}
}

// ToneDescription 语气值对应的描述短语
func ToneDescription(tone int) string {
	return BucketOf(tone).Phrase()
}

// ClampTone 将语气值限制在 [0,100]
func ClampTone(tone int) int {
	if tone < 0 {
		return 0
	}
	if tone > 100 {
		return 100
	}
	return tone
}

// CoerceTone 将任意 JSON 值转换为语气值：数字或数字字符串，缺失或无法解析时为 50
func CoerceTone(v any) int {
	var f float64
	switch t := v.(type) {
	case nil:
		return DefaultTone
	case float64:
		f = t
	case int:
		return ClampTone(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return DefaultTone
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return DefaultTone
		}
		f = parsed
	default:
		return DefaultTone
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultTone
	}
	f = math.Max(0, math.Min(100, f))
	return int(math.Round(f))
}
