// Package prompt builds generation requests for the provider. Everything in
// here is a pure transform: the wall clock is an explicit input so callers
// and tests control it.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bluedream1831-collab/threads/internal/models"
)

// Request is the fully assembled input for one text generation call.
type Request struct {
	Model       string
	Instruction string
	System      string
	Schema      *genai.Schema
	Temperature float32
}

const systemInstruction = "You are a creative writer for social media, specializing in the 'Threads' app style. " +
	"You are extremely sensitive to the current context (time of day, day of week) and adjust the tone accordingly to maximize relatability."

// TimeCategory is the coarse temporal bucket a generation happens in.
type TimeCategory string

const (
	CategoryMondayMorning TimeCategory = "monday_morning"
	CategoryWorkHours     TimeCategory = "work_hours"
	CategoryFridayNight   TimeCategory = "friday_night"
	CategorySundayNight   TimeCategory = "sunday_night"
	CategoryLateNight     TimeCategory = "late_night"
	CategoryDefault       TimeCategory = "default"
)

// Boundaries configure the temporal buckets. They are tuning knobs, not
// invariants callers need to care about.
type Boundaries struct {
	MorningEnd     int // hour, exclusive
	WorkStart      int
	WorkEnd        int // exclusive
	FridayFrom     int
	SundayFrom     int
	LateNightFrom  int
	LateNightUntil int // exclusive, next day
}

// DefaultBoundaries matches the buckets the prompt text was written for.
var DefaultBoundaries = Boundaries{
	MorningEnd:     11,
	WorkStart:      9,
	WorkEnd:        18,
	FridayFrom:     15,
	SundayFrom:     18,
	LateNightFrom:  22,
	LateNightUntil: 4,
}

// toneDirectives maps each temporal bucket to the directive folded into the
// prompt. The map is total over TimeCategory values.
var toneDirectives = map[TimeCategory]string{
	CategoryMondayMorning: "現在是週一早上：強調眼神死、不想面對、咖啡續命。",
	CategoryWorkHours:     "現在是平日上班時間：強調薪水小偷、想下班、職場荒謬。",
	CategoryFridayNight:   "現在是週五下午/晚上：強調快樂、解放、微醺、週末計畫。",
	CategorySundayNight:   "現在是週日晚上：強調焦慮、不想收假。",
	CategoryLateNight:     "現在是深夜：強調感性、孤寂、肚子餓(宵夜文)或發瘋語錄。",
	CategoryDefault:       "請根據當下時間營造合適的生活感。",
}

// CategoryFor buckets a wall-clock time. Late night wins over every other
// bucket because the 22:00-04:00 window overlaps them.
func (b Boundaries) CategoryFor(now time.Time) TimeCategory {
	hour := now.Hour()
	if hour >= b.LateNightFrom || hour < b.LateNightUntil {
		return CategoryLateNight
	}

	switch now.Weekday() {
	case time.Monday:
		if hour < b.MorningEnd {
			return CategoryMondayMorning
		}
	case time.Friday:
		if hour >= b.FridayFrom {
			return CategoryFridayNight
		}
	case time.Sunday:
		if hour >= b.SundayFrom {
			return CategorySundayNight
		}
	}

	if now.Weekday() >= time.Monday && now.Weekday() <= time.Friday &&
		hour >= b.WorkStart && hour < b.WorkEnd {
		return CategoryWorkHours
	}
	return CategoryDefault
}

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "星期日",
	time.Monday:    "星期一",
	time.Tuesday:   "星期二",
	time.Wednesday: "星期三",
	time.Thursday:  "星期四",
	time.Friday:    "星期五",
	time.Saturday:  "星期六",
}

// formatClock renders the wall clock the way the prompt expects it,
// e.g. "2025年3月10日 星期一 09:00".
func formatClock(now time.Time) string {
	return fmt.Sprintf("%d年%d月%d日 %s %02d:%02d",
		now.Year(), int(now.Month()), now.Day(),
		weekdayNames[now.Weekday()], now.Hour(), now.Minute())
}

// Builder assembles text-generation requests from selection state.
type Builder struct {
	PostCount   int
	Temperature float32
	Boundaries  Boundaries
}

// NewBuilder returns a builder with the given post count (4 or 8) and
// sampling temperature.
func NewBuilder(postCount int, temperature float32) *Builder {
	return &Builder{
		PostCount:   postCount,
		Temperature: temperature,
		Boundaries:  DefaultBoundaries,
	}
}

// Build turns the selection and an explicit wall-clock reading into the
// provider request. Every selected keyword appears verbatim; the keyword
// directive is omitted entirely when the set is empty.
func (b *Builder) Build(sel models.Selection, now time.Time) Request {
	var sb strings.Builder

	sb.WriteString("你是一位 Threads 社群平台的高人氣創作者，擅長用繁體中文撰寫高互動率的貼文。\n")
	fmt.Fprintf(&sb, "請根據以下設定，創作出 %d 則不同角度的短文：\n\n", b.PostCount)
	fmt.Fprintf(&sb, "1. **心情基調**: %s\n", sel.Mood)
	fmt.Fprintf(&sb, "2. **應用場景**: %s\n", sel.Scene)
	fmt.Fprintf(&sb, "3. **當下時間**: %s (非常重要！內容必須與此時間點有強烈連結)\n", formatClock(now))

	if len(sel.Keywords) > 0 {
		fmt.Fprintf(&sb, "4. **指定關鍵字**: %s\n", strings.Join(sel.Keywords, "、"))
		sb.WriteString("   每個關鍵字都必須至少出現一次，一字不差地融入貼文中。\n")
	}

	sb.WriteString("\n**時間感優化要求**:\n")
	sb.WriteString(toneDirectives[b.Boundaries.CategoryFor(now)])
	sb.WriteString("\n")

	sb.WriteString("\n**撰寫風格要求**:\n")
	sb.WriteString("- 口語化：就像在跟朋友聊天，或是自言自語。\n")
	sb.WriteString("- Threads 風格：可以是片段的、沒頭沒尾的、稍微情緒化的，或者帶有網路流行梗。\n")
	sb.WriteString("- 長度：每則貼文控制在 20-80 字之間，簡短有力。\n")
	sb.WriteString("- 格式：不要使用 markdown 標題，直接給我內容。\n")
	sb.WriteString("- Hashtag：針對每則貼文附上 1-3 個適合的 hashtag。\n")
	sb.WriteString("- 視覺：為每則貼文附上一段英文的 visualPrompt，描述一張能搭配貼文氛圍的畫面。\n")
	sb.WriteString("\n請直接回傳 JSON 格式陣列。\n")

	return Request{
		Model:       string(sel.ModelVersion),
		Instruction: sb.String(),
		System:      systemInstruction,
		Schema:      responseSchema(),
		Temperature: b.Temperature,
	}
}

// responseSchema declares the array-of-objects contract the provider output
// is parsed against.
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"content": {
					Type:        genai.TypeString,
					Description: "The main text content of the Threads post. Should be engaging and natural.",
				},
				"tags": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Relevant hashtags without the # symbol.",
				},
				"visualPrompt": {
					Type:        genai.TypeString,
					Description: "An English prompt describing an image that matches the post's tone.",
				},
			},
			Required: []string{"content", "tags"},
		},
	}
}
