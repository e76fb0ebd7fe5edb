package prompt

import (
	"fmt"
	"strings"

	"github.com/bluedream1831-collab/threads/internal/models"
)

// BuildVisual enriches a post's visual prompt with scene context, the
// resolved style modifier and the shared composition requirements for the
// static image model.
func BuildVisual(visualPrompt string, sel models.Selection, style models.ImageStyle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "畫面描述：%s。\n", visualPrompt)
	if sel.Scene != "" {
		fmt.Fprintf(&sb, "場景背景：%s。\n", sel.Scene)
	}
	sb.WriteString(models.StyleModifier(style, sel.Mood))
	sb.WriteString("\n\n通用要求：\n")
	sb.WriteString("1. 若畫面中出現文字（如招牌、螢幕、手寫筆記），必須是繁體中文。\n")
	sb.WriteString("2. 視覺元素應貼近亞洲/台灣現代生活日常。\n")
	sb.WriteString("3. 圖片比例為 1:1 (Instagram/Threads 風格)。\n")

	return sb.String()
}

// BuildVideo produces the prompt for the animated style: a short looping
// clip whose vibe tracks the selected mood and scene.
func BuildVideo(visualPrompt string, sel models.Selection) string {
	return fmt.Sprintf("Cinematic, looping motion, high quality, %s vibe, %s setting. %s",
		sel.Mood, sel.Scene, visualPrompt)
}
