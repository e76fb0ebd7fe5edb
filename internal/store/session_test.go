package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluedream1831-collab/threads/internal/models"
)

func seededPosts(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			Content: fmt.Sprintf("post number %d", i),
			Tags:    []string{fmt.Sprintf("tag%d", i)},
		}
	}
	return posts
}

func sessionWithPosts(t *testing.T, n int) *Session {
	t.Helper()
	s := NewSession("test-session")
	seq, _ := s.BeginGeneration()
	require.True(t, s.CompleteGeneration(seq, seededPosts(n)))
	return s
}

func TestUpdateSelection(t *testing.T) {
	s := NewSession("sel")

	mood := models.MoodEmo
	scene := models.SceneTravel
	model := models.ModelPro
	require.NoError(t, s.UpdateSelection(&mood, &scene, &model))

	sel := s.Selection()
	assert.Equal(t, models.MoodEmo, sel.Mood)
	assert.Equal(t, models.SceneTravel, sel.Scene)
	assert.Equal(t, models.ModelPro, sel.ModelVersion)

	// Partial update leaves the other fields alone.
	next := models.MoodChill
	require.NoError(t, s.UpdateSelection(&next, nil, nil))
	sel = s.Selection()
	assert.Equal(t, models.MoodChill, sel.Mood)
	assert.Equal(t, models.SceneTravel, sel.Scene)
}

func TestUpdateSelectionRejectsUnknownValues(t *testing.T) {
	s := NewSession("sel")

	bad := models.Mood("grumpy")
	goodScene := models.SceneGaming
	err := s.UpdateSelection(&bad, &goodScene, nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	// Nothing applied, not even the valid scene.
	assert.Equal(t, models.DefaultSelection().Scene, s.Selection().Scene)
}

func TestKeywordInvariants(t *testing.T) {
	s := NewSession("kw")

	require.NoError(t, s.AddKeyword("  咖啡  "))
	assert.Equal(t, []string{"咖啡"}, s.Selection().Keywords)

	err := s.AddKeyword("咖啡")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)

	err = s.AddKeyword("   ")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	for i := 1; i < models.MaxKeywords; i++ {
		require.NoError(t, s.AddKeyword(fmt.Sprintf("kw%d", i)))
	}
	err = s.AddKeyword("overflow")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Len(t, s.Selection().Keywords, models.MaxKeywords)

	assert.True(t, s.RemoveKeyword("咖啡"))
	assert.False(t, s.RemoveKeyword("咖啡"))
	assert.NoError(t, s.AddKeyword("overflow"))
}

func TestCompleteGenerationDropsStaleResults(t *testing.T) {
	s := NewSession("seq")

	first, _ := s.BeginGeneration()
	second, _ := s.BeginGeneration()

	// The second request finishes first and wins.
	require.True(t, s.CompleteGeneration(second, seededPosts(2)))
	assert.False(t, s.Generating())

	// The first request's late result must not clobber it.
	assert.False(t, s.CompleteGeneration(first, seededPosts(5)))
	assert.Len(t, s.Posts(), 2)
}

func TestCompleteGenerationResetsSearchAndCards(t *testing.T) {
	s := sessionWithPosts(t, 3)
	s.SetSearchQuery("number 1")
	require.Len(t, s.Posts(), 1)

	_, card0, err := s.Post(0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, card0.LikeCount, 12)

	seq, _ := s.BeginGeneration()
	require.True(t, s.CompleteGeneration(seq, seededPosts(4)))

	// Search cleared, full new list visible, cards fresh.
	views := s.Posts()
	require.Len(t, views, 4)
	for _, v := range views {
		assert.Equal(t, models.CardViewing, v.Card.Mode)
		assert.Equal(t, models.PanelClosed, v.Card.Panel)
		assert.False(t, v.Card.Liked)
	}
}

func TestPostsFilter(t *testing.T) {
	s := NewSession("filter")
	seq, _ := s.BeginGeneration()
	require.True(t, s.CompleteGeneration(seq, []models.Post{
		{Content: "今天加班到十點", Tags: []string{"社畜日常"}},
		{Content: "Weekend Coffee time", Tags: []string{"chill"}},
		{Content: "貓貓打翻水杯", Tags: []string{"寵物", "CoffeeBreak"}},
	}))

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"empty query matches all", "", []int{0, 1, 2}},
		{"whitespace query matches all", "   ", []int{0, 1, 2}},
		{"content match", "加班", []int{0}},
		{"case-insensitive content", "weekend", []int{1}},
		{"tag match across posts", "coffee", []int{1, 2}},
		{"no match", "重訓", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetSearchQuery(tt.query)
			views := s.Posts()
			got := make([]int, 0, len(views))
			for _, v := range views {
				got = append(got, v.Index)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditLifecycle(t *testing.T) {
	s := sessionWithPosts(t, 2)

	// Commit without entering edit mode is rejected.
	_, err := s.FinishEdit(0, "new text", "a,b")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)

	require.NoError(t, s.StartEdit(0))
	assert.Error(t, s.StartEdit(0), "double start must be rejected")

	post, err := s.FinishEdit(0, "  改寫後的內容  ", "#靠北, 上班")
	require.NoError(t, err)
	assert.Equal(t, "改寫後的內容", post.Content)
	assert.Equal(t, []string{"靠北", "上班"}, post.Tags)

	_, card, err := s.Post(0)
	require.NoError(t, err)
	assert.Equal(t, models.CardViewing, card.Mode)

	// Cancel keeps the original.
	require.NoError(t, s.StartEdit(1))
	require.NoError(t, s.CancelEdit(1))
	post, _, err = s.Post(1)
	require.NoError(t, err)
	assert.Equal(t, "post number 1", post.Content)
}

func TestFinishEditRejectsEmptyContent(t *testing.T) {
	s := sessionWithPosts(t, 1)
	require.NoError(t, s.StartEdit(0))

	_, err := s.FinishEdit(0, "   ", "")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestVisualLifecycle(t *testing.T) {
	s := NewSession("visual")
	seq, _ := s.BeginGeneration()
	require.True(t, s.CompleteGeneration(seq, []models.Post{
		{Content: "fallback content", Tags: []string{}},
		{Content: "second", Tags: []string{}, VisualPrompt: "貓咪坐在鍵盤上"},
	}))

	// Missing visualPrompt falls back to the post content.
	prompt, sel, visualSeq, err := s.BeginVisual(0, models.StyleJapanese)
	require.NoError(t, err)
	assert.Equal(t, "fallback content", prompt)
	assert.Equal(t, models.DefaultSelection().Mood, sel.Mood)

	// Only one outstanding generation per card.
	_, _, _, err = s.BeginVisual(0, models.StyleJapanese)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)

	s.CompleteVisual(visualSeq, 0, "data:image/png;base64,xxxx")
	_, card, err := s.Post(0)
	require.NoError(t, err)
	assert.Equal(t, models.PanelReady, card.Panel)
	assert.Equal(t, "data:image/png;base64,xxxx", card.Visual)

	prompt, _, visualSeq, err = s.BeginVisual(1, "")
	require.NoError(t, err)
	assert.Equal(t, "貓咪坐在鍵盤上", prompt)

	// A failed generation reopens the panel for retry.
	s.CompleteVisual(visualSeq, 1, "")
	_, card, err = s.Post(1)
	require.NoError(t, err)
	assert.Equal(t, models.PanelOpen, card.Panel)
	assert.Empty(t, card.Visual)

	require.NoError(t, s.ClearVisual(0))
	_, card, err = s.Post(0)
	require.NoError(t, err)
	assert.Equal(t, models.PanelClosed, card.Panel)
	assert.Empty(t, card.Visual)
}

func TestCompleteVisualDropsResultFromSupersededBatch(t *testing.T) {
	s := sessionWithPosts(t, 2)

	_, _, visualSeq, err := s.BeginVisual(0, models.StyleAnimated)
	require.NoError(t, err)

	// The posts are regenerated while the video job is still running.
	genSeq, _ := s.BeginGeneration()
	require.True(t, s.CompleteGeneration(genSeq, []models.Post{
		{Content: "新的一批", Tags: []string{"全新"}},
	}))

	// The late result belongs to a card that no longer exists and must not
	// land on the replacement at the same index.
	s.CompleteVisual(visualSeq, 0, "/api/v1/blobs/stale")
	_, card, err := s.Post(0)
	require.NoError(t, err)
	assert.Equal(t, models.PanelClosed, card.Panel)
	assert.Empty(t, card.Visual)

	// A job started against the new batch still completes normally.
	_, _, visualSeq, err = s.BeginVisual(0, models.StyleDefault)
	require.NoError(t, err)
	s.CompleteVisual(visualSeq, 0, "/api/v1/blobs/fresh")
	_, card, err = s.Post(0)
	require.NoError(t, err)
	assert.Equal(t, models.PanelReady, card.Panel)
	assert.Equal(t, "/api/v1/blobs/fresh", card.Visual)
}

func TestBeginVisualRejectsUnknownStyle(t *testing.T) {
	s := sessionWithPosts(t, 1)
	_, _, _, err := s.BeginVisual(0, models.ImageStyle("watercolour"))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestToggleReaction(t *testing.T) {
	s := sessionWithPosts(t, 1)

	_, before, err := s.Post(0)
	require.NoError(t, err)

	card, err := s.ToggleReaction(0, "like")
	require.NoError(t, err)
	assert.True(t, card.Liked)
	assert.Equal(t, before.LikeCount+1, card.LikeCount)

	card, err = s.ToggleReaction(0, "like")
	require.NoError(t, err)
	assert.False(t, card.Liked)
	assert.Equal(t, before.LikeCount, card.LikeCount)

	_, err = s.ToggleReaction(0, "boost")
	assert.Error(t, err)

	_, err = s.ToggleReaction(9, "like")
	assert.Error(t, err)
}

func TestScheduleQueue(t *testing.T) {
	s := sessionWithPosts(t, 3)

	base := time.Now()
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	first, err := s.AddSchedule(0, "2026-09-01T09:00")
	require.NoError(t, err)
	second, err := s.AddSchedule(1, "2026-09-02T21:30")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Newest first.
	queue := s.Schedules()
	require.Len(t, queue, 2)
	assert.Equal(t, second.ID, queue[0].ID)
	assert.Equal(t, "post number 1", queue[0].Content)

	_, err = s.AddSchedule(0, "   ")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	_, err = s.AddSchedule(7, "2026-09-03T10:00")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	assert.True(t, s.RemoveSchedule(first.ID))
	assert.False(t, s.RemoveSchedule(first.ID))
	assert.Len(t, s.Schedules(), 1)
}

func TestScheduledPostIsSnapshot(t *testing.T) {
	s := sessionWithPosts(t, 1)

	sp, err := s.AddSchedule(0, "2026-09-01T09:00")
	require.NoError(t, err)

	require.NoError(t, s.StartEdit(0))
	_, err = s.FinishEdit(0, "edited afterwards", "")
	require.NoError(t, err)

	queue := s.Schedules()
	require.Len(t, queue, 1)
	assert.Equal(t, sp.Content, queue[0].Content)
	assert.Equal(t, "post number 0", queue[0].Content)
}
