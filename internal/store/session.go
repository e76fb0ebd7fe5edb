// Package store holds per-session application state: the generation
// selection, the rendered post cards, and the schedule queue. All state is
// in-memory and scoped to one session; nothing here outlives the registry.
package store

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bluedream1831-collab/threads/internal/models"
	"github.com/bluedream1831-collab/threads/internal/observability"
)

// CardView pairs a post with its card state and stable index. Indices refer
// to the full post list and stay valid across filtering.
type CardView struct {
	Index int         `json:"index"`
	Post  models.Post `json:"post"`
	Card  models.Card `json:"card"`
}

// Session is the unit of isolation. Every method takes the session lock, so
// handlers can call it from concurrent requests without coordination.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	selection  models.Selection
	posts      []models.Post
	cards      []models.Card
	schedule   []models.ScheduledPost
	issueSeq   uint64
	generating bool
	lastAccess time.Time

	rng *rand.Rand
	now func() time.Time
}

// NewSession returns a session with the default selection and no posts.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		CreatedAt:  now,
		selection:  models.DefaultSelection(),
		lastAccess: now,
		rng:        rand.New(rand.NewSource(now.UnixNano())),
		now:        time.Now,
	}
}

// Touch records an access for idle eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccess = s.now()
	s.mu.Unlock()
}

// LastAccess returns the time of the most recent request on this session.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// Selection returns a copy of the current selection.
func (s *Session) Selection() models.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

func (s *Session) selectionLocked() models.Selection {
	sel := s.selection
	sel.Keywords = append([]string(nil), s.selection.Keywords...)
	return sel
}

// UpdateSelection applies the non-nil fields. Invalid values are rejected
// atomically: either every field applies or none does.
func (s *Session) UpdateSelection(mood *models.Mood, scene *models.Scene, model *models.ModelVersion) error {
	if mood != nil && !mood.Valid() {
		return models.NewValidationError("unknown mood: " + string(*mood))
	}
	if scene != nil && !scene.Valid() {
		return models.NewValidationError("unknown scene: " + string(*scene))
	}
	if model != nil && !model.Valid() {
		return models.NewValidationError("unknown model version: " + string(*model))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mood != nil {
		s.selection.Mood = *mood
	}
	if scene != nil {
		s.selection.Scene = *scene
	}
	if model != nil {
		s.selection.ModelVersion = *model
	}
	return nil
}

// AddKeyword adds one keyword. Keywords are trimmed, unique, and capped at
// MaxKeywords; violations surface as validation or conflict errors.
func (s *Session) AddKeyword(keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return models.NewValidationError("keyword must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.selection.Keywords {
		if k == keyword {
			return models.NewConflictError("keyword already selected: " + keyword)
		}
	}
	if len(s.selection.Keywords) >= models.MaxKeywords {
		return models.NewConflictError("keyword limit reached")
	}
	s.selection.Keywords = append(s.selection.Keywords, keyword)
	return nil
}

// RemoveKeyword removes one keyword, reporting whether it was present.
func (s *Session) RemoveKeyword(keyword string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, k := range s.selection.Keywords {
		if k == keyword {
			s.selection.Keywords = append(s.selection.Keywords[:i], s.selection.Keywords[i+1:]...)
			return true
		}
	}
	return false
}

// ClearKeywords drops the whole keyword set.
func (s *Session) ClearKeywords() {
	s.mu.Lock()
	s.selection.Keywords = nil
	s.mu.Unlock()
}

// SetSearchQuery stores the filter applied by Posts.
func (s *Session) SetSearchQuery(query string) {
	s.mu.Lock()
	s.selection.SearchQuery = query
	s.mu.Unlock()
}

// BeginGeneration issues a new generation sequence number and snapshots the
// selection it should use. Later sequence numbers supersede earlier ones.
func (s *Session) BeginGeneration() (uint64, models.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issueSeq++
	s.generating = true
	return s.issueSeq, s.selectionLocked()
}

// CompleteGeneration installs the generated posts if seq is still the most
// recently issued sequence. A superseded completion is dropped and reported
// as false; the winning request's result stands.
func (s *Session) CompleteGeneration(seq uint64, posts []models.Post) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issueSeq {
		observability.StaleGenerationsDropped.Inc()
		return false
	}
	s.generating = false
	s.posts = append([]models.Post(nil), posts...)
	s.cards = make([]models.Card, len(posts))
	for i := range s.cards {
		s.cards[i] = models.NewCard(s.rng)
	}
	s.selection.SearchQuery = ""
	return true
}

// FailGeneration clears the in-flight marker without touching the posts.
// Stale failures are ignored the same way stale completions are.
func (s *Session) FailGeneration(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.issueSeq {
		s.generating = false
	}
}

// Generating reports whether a generation is in flight.
func (s *Session) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// Posts returns the cards matching the stored search query. Matching is
// case-insensitive on post content or any tag; an empty query matches all.
func (s *Session) Posts() []CardView {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(s.selection.SearchQuery))
	views := make([]CardView, 0, len(s.posts))
	for i, p := range s.posts {
		if query != "" && !matches(p, query) {
			continue
		}
		views = append(views, CardView{Index: i, Post: p, Card: s.cards[i]})
	}
	return views
}

func matches(p models.Post, query string) bool {
	if strings.Contains(strings.ToLower(p.Content), query) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), query) {
			return true
		}
	}
	return false
}

// Post returns one post and its card by index.
func (s *Session) Post(index int) (models.Post, models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.posts) {
		return models.Post{}, models.Card{}, models.NewNotFoundError("post", index)
	}
	return s.posts[index], s.cards[index], nil
}

// StartEdit puts the card at index into editing mode.
func (s *Session) StartEdit(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cards) {
		return models.NewNotFoundError("post", index)
	}
	if !s.cards[index].StartEdit() {
		return models.NewConflictError("card is busy")
	}
	return nil
}

// CancelEdit leaves editing mode and keeps the original post untouched.
func (s *Session) CancelEdit(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cards) {
		return models.NewNotFoundError("post", index)
	}
	s.cards[index].FinishEdit()
	return nil
}

// FinishEdit commits the draft content and raw tag input back onto the post
// and returns the card to viewing mode. The card must be in editing mode.
func (s *Session) FinishEdit(index int, content, rawTags string) (models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Post{}, models.NewValidationError("content must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.posts) {
		return models.Post{}, models.NewNotFoundError("post", index)
	}
	if s.cards[index].Mode != models.CardEditing {
		return models.Post{}, models.NewConflictError("card is not being edited")
	}
	s.posts[index].Content = content
	s.posts[index].Tags = models.ParseTags(rawTags)
	s.cards[index].FinishEdit()
	return s.posts[index], nil
}

// TogglePanel opens or closes the visual panel on the card at index.
func (s *Session) TogglePanel(index int) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cards) {
		return models.Card{}, models.NewNotFoundError("post", index)
	}
	if !s.cards[index].TogglePanel() {
		return models.Card{}, models.NewConflictError("visual generation in progress")
	}
	return s.cards[index], nil
}

// BeginVisual marks the card as generating and returns the enrichment
// inputs: the post's visual prompt (falling back to its content), the
// current selection, and the generation sequence the card belongs to.
// CompleteVisual requires the same sequence, so a visual outlives a
// regeneration only as a dropped write.
func (s *Session) BeginVisual(index int, style models.ImageStyle) (string, models.Selection, uint64, error) {
	if style != "" && !style.Valid() {
		return "", models.Selection{}, 0, models.NewValidationError("unknown image style: " + string(style))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.posts) {
		return "", models.Selection{}, 0, models.NewNotFoundError("post", index)
	}
	if !s.cards[index].BeginVisual(style) {
		return "", models.Selection{}, 0, models.NewConflictError("card is busy")
	}
	visualPrompt := s.posts[index].VisualPrompt
	if visualPrompt == "" {
		visualPrompt = s.posts[index].Content
	}
	return visualPrompt, s.selectionLocked(), s.issueSeq, nil
}

// CompleteVisual records the generation result on the card. A result from
// before a regeneration targets a card that no longer exists, so it is
// dropped when seq is no longer current.
func (s *Session) CompleteVisual(seq uint64, index int, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issueSeq {
		return
	}
	if index < 0 || index >= len(s.cards) {
		return
	}
	s.cards[index].CompleteVisual(ref)
}

// ClearVisual drops the card's visual and closes the panel.
func (s *Session) ClearVisual(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cards) {
		return models.NewNotFoundError("post", index)
	}
	s.cards[index].ClearVisual()
	return nil
}

// ToggleReaction flips one of the card's reaction toggles. Kind is "like",
// "repost" or "comment".
func (s *Session) ToggleReaction(index int, kind string) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cards) {
		return models.Card{}, models.NewNotFoundError("post", index)
	}
	switch kind {
	case "like":
		s.cards[index].ToggleLike()
	case "repost":
		s.cards[index].ToggleRepost()
	case "comment":
		s.cards[index].ToggleComment()
	default:
		return models.Card{}, models.NewValidationError("unknown reaction: " + kind)
	}
	return s.cards[index], nil
}

// AddSchedule queues the post at index for the given time. New entries are
// prepended so the most recent schedule lists first; ids are derived from
// the creation timestamp.
func (s *Session) AddSchedule(index int, scheduledTime string) (models.ScheduledPost, error) {
	scheduledTime = strings.TrimSpace(scheduledTime)
	if scheduledTime == "" {
		return models.ScheduledPost{}, models.NewValidationError("scheduledTime must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.posts) {
		return models.ScheduledPost{}, models.NewNotFoundError("post", index)
	}
	now := s.now()
	sp := models.ScheduledPost{
		Post:          s.posts[index],
		ID:            strconv.FormatInt(now.UnixNano(), 10),
		ScheduledTime: scheduledTime,
		CreatedAt:     now.UnixMilli(),
	}
	s.schedule = append([]models.ScheduledPost{sp}, s.schedule...)
	return sp, nil
}

// Schedules returns the schedule queue, newest first.
func (s *Session) Schedules() []models.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ScheduledPost(nil), s.schedule...)
}

// RemoveSchedule deletes one queued post by id.
func (s *Session) RemoveSchedule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sp := range s.schedule {
		if sp.ID == id {
			s.schedule = append(s.schedule[:i], s.schedule[i+1:]...)
			return true
		}
	}
	return false
}
