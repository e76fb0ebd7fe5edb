package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedream1831-collab/threads/internal/models"
)

// mustTime parses a local wall-clock reading for the temporal bucket tests.
func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	require.NoError(t, err)
	return parsed
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		name     string
		clock    string
		expected TimeCategory
	}{
		{"Monday early morning", "2025-03-10 08:30", CategoryMondayMorning},
		{"Tuesday work hours", "2025-03-11 14:00", CategoryWorkHours},
		{"Friday evening", "2025-03-14 19:00", CategoryFridayNight},
		{"Sunday evening", "2025-03-16 20:00", CategorySundayNight},
		{"Late night wins over weekday", "2025-03-12 23:30", CategoryLateNight},
		{"Small hours count as late night", "2025-03-13 03:00", CategoryLateNight},
		{"Saturday afternoon falls through", "2025-03-15 15:00", CategoryDefault},
		{"Monday noon is work hours", "2025-03-10 12:00", CategoryWorkHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultBoundaries.CategoryFor(mustTime(t, tt.clock))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBuildIncludesKeywordsVerbatim(t *testing.T) {
	b := NewBuilder(4, 1.2)
	sel := models.DefaultSelection()
	sel.Keywords = []string{"颱風", "放假"}

	req := b.Build(sel, mustTime(t, "2025-03-11 10:00"))
	assert.Contains(t, req.Instruction, "颱風")
	assert.Contains(t, req.Instruction, "放假")
	assert.Contains(t, req.Instruction, "指定關鍵字")
}

func TestBuildOmitsKeywordDirectiveWhenEmpty(t *testing.T) {
	b := NewBuilder(4, 1.2)

	req := b.Build(models.DefaultSelection(), mustTime(t, "2025-03-11 10:00"))
	assert.NotContains(t, req.Instruction, "指定關鍵字")
	assert.NotContains(t, req.Instruction, "至少出現一次")
}

func TestBuildEmbedsSelectionAndClock(t *testing.T) {
	b := NewBuilder(8, 1.3)
	sel := models.Selection{
		Mood:         models.MoodCynical,
		Scene:        models.SceneWork,
		ModelVersion: models.ModelPro,
	}

	req := b.Build(sel, mustTime(t, "2025-03-10 09:00"))

	assert.Contains(t, req.Instruction, "厭世吐槽")
	assert.Contains(t, req.Instruction, "職場社畜")
	assert.Contains(t, req.Instruction, "8 則")
	assert.Contains(t, req.Instruction, "2025年3月10日 星期一 09:00")
	assert.Contains(t, req.Instruction, toneDirectives[CategoryMondayMorning])
	assert.Contains(t, req.Instruction, "20-80 字")
	assert.Equal(t, "gemini-2.5-pro", req.Model)
	assert.InDelta(t, 1.3, req.Temperature, 0.001)
	assert.Equal(t, systemInstruction, req.System)
}

func TestBuildIsReferentiallyTransparent(t *testing.T) {
	b := NewBuilder(4, 1.2)
	sel := models.DefaultSelection()
	now := mustTime(t, "2025-03-14 21:00")

	first := b.Build(sel, now)
	second := b.Build(sel, now)
	assert.Equal(t, first.Instruction, second.Instruction)
}

func TestResponseSchemaShape(t *testing.T) {
	schema := responseSchema()

	require.NotNil(t, schema.Items)
	assert.Contains(t, schema.Items.Properties, "content")
	assert.Contains(t, schema.Items.Properties, "tags")
	assert.Contains(t, schema.Items.Properties, "visualPrompt")
	assert.ElementsMatch(t, []string{"content", "tags"}, schema.Items.Required)
}

func TestToneDirectivesAreTotal(t *testing.T) {
	for _, cat := range []TimeCategory{
		CategoryMondayMorning, CategoryWorkHours, CategoryFridayNight,
		CategorySundayNight, CategoryLateNight, CategoryDefault,
	} {
		assert.NotEmpty(t, toneDirectives[cat], "category %s has no directive", cat)
	}
}

func TestBuildVisual(t *testing.T) {
	sel := models.Selection{Mood: models.MoodEmo, Scene: models.SceneDaily}

	got := BuildVisual("a rainy street at night", sel, models.StyleVintage)
	assert.Contains(t, got, "a rainy street at night")
	assert.Contains(t, got, "日常生活")
	assert.Contains(t, got, "復古底片")
	assert.Contains(t, got, "繁體中文")

	// Default style falls back to the mood aesthetic.
	byMood := BuildVisual("x", sel, models.StyleDefault)
	assert.Contains(t, byMood, "王家衛")
}

func TestBuildVideo(t *testing.T) {
	sel := models.Selection{Mood: models.MoodFunny, Scene: models.SceneWeekend}

	got := BuildVideo("a cat knocking over coffee", sel)
	assert.True(t, strings.HasPrefix(got, "Cinematic, looping motion"))
	assert.Contains(t, got, "幽默搞笑")
	assert.Contains(t, got, "週末假期")
	assert.Contains(t, got, "a cat knocking over coffee")
}
