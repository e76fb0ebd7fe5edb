package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bluedream1831-collab/threads/internal/cache"
	"github.com/bluedream1831-collab/threads/internal/middleware"
	"github.com/bluedream1831-collab/threads/internal/models"
	"github.com/bluedream1831-collab/threads/internal/observability"
	"github.com/bluedream1831-collab/threads/internal/store"
)

func parseIndex(c *fiber.Ctx) (int, error) {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return 0, models.NewValidationError("post index must be an integer")
	}
	return index, nil
}

// GeneratePosts handles POST /api/v1/generate
// @Summary Generate posts
// @Description Generate a fresh batch of posts from the current selection. A newer request supersedes an older in-flight one; the superseded result is discarded.
// @Tags posts
// @Produce json
// @Success 200 {object} object{applied=bool,posts=[]store.CardView}
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /generate [post]
func (s *Server) GeneratePosts(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	if s.provider == nil {
		err := models.NewAuthError("Provider API key is not configured", nil)
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	seq, sel := sess.BeginGeneration()
	req := s.builder.Build(sel, time.Now())

	start := time.Now()
	posts, genErr := s.provider.GenerateText(c.UserContext(), req)
	elapsed := time.Since(start)

	if genErr != nil {
		sess.FailGeneration(seq)
		observability.GenerationsTotal.WithLabelValues("error").Inc()
		s.recordGeneration(c.UserContext(), sess, sel, 0, elapsed, genErr)
		return models.RespondWithError(c, models.StatusForError(genErr), genErr)
	}

	applied := sess.CompleteGeneration(seq, posts)
	observability.GenerationsTotal.WithLabelValues("ok").Inc()
	s.recordGeneration(c.UserContext(), sess, sel, len(posts), elapsed, nil)

	return c.JSON(fiber.Map{
		"applied": applied,
		"posts":   sess.Posts(),
	})
}

// recordGeneration persists the audit row and drops the cached history list.
// Failures are logged, never surfaced: history is diagnostics, not the product.
func (s *Server) recordGeneration(ctx context.Context, sess *store.Session, sel models.Selection, postCount int, elapsed time.Duration, genErr error) {
	rec := &models.GenerationRecord{
		SessionID:    sess.ID,
		Mood:         string(sel.Mood),
		Scene:        string(sel.Scene),
		ModelVersion: string(sel.ModelVersion),
		Keywords:     strings.Join(sel.Keywords, ","),
		PostCount:    postCount,
		DurationMs:   elapsed.Milliseconds(),
		Outcome:      "ok",
	}
	if genErr != nil {
		rec.Outcome = "error"
		var appErr *models.AppError
		if errors.As(genErr, &appErr) {
			rec.ErrorCode = appErr.Code
		}
	}

	if err := s.historyRepo.Record(ctx, rec); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to record generation", "error", err)
		return
	}
	cache.Invalidate(ctx, historyCacheKey(sess.ID))
}

// GetPosts handles GET /api/v1/posts
// @Summary List posts
// @Description List the session's post cards, filtered by the search query. Matching is case-insensitive on content or tags.
// @Tags posts
// @Produce json
// @Param q query string false "Search query"
// @Success 200 {object} object{posts=[]store.CardView,query=string}
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	// An explicit q, even empty, replaces the stored query.
	if q, ok := c.Queries()["q"]; ok {
		sess.SetSearchQuery(q)
	}

	return c.JSON(fiber.Map{
		"posts": sess.Posts(),
		"query": sess.Selection().SearchQuery,
	})
}

// StartEdit handles POST /api/v1/posts/:index/edit
// @Summary Start editing a post
// @Tags posts
// @Produce json
// @Success 200 {object} object{index=int,card=models.Card}
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{index}/edit [post]
func (s *Server) StartEdit(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	if err := sess.StartEdit(index); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	_, card, err := sess.Post(index)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"index": index, "card": card})
}

// CancelEdit handles DELETE /api/v1/posts/:index/edit
// @Summary Cancel editing a post
// @Tags posts
// @Produce json
// @Success 200 {object} object{index=int,card=models.Card}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{index}/edit [delete]
func (s *Server) CancelEdit(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	if err := sess.CancelEdit(index); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	_, card, err := sess.Post(index)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"index": index, "card": card})
}

// UpdatePost handles PUT /api/v1/posts/:index
// @Summary Commit a post edit
// @Description Commit the edited content and raw tag input. The card must be in editing mode.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{content=string,tags=string} true "Edited content and raw tags"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{index} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	var req struct {
		Content string `json:"content"`
		Tags    string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := sess.FinishEdit(index, req.Content, req.Tags)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(post)
}

// TogglePanel handles POST /api/v1/posts/:index/panel
// @Summary Toggle the visual panel
// @Tags posts
// @Produce json
// @Success 200 {object} models.Card
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{index}/panel [post]
func (s *Server) TogglePanel(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	card, err := sess.TogglePanel(index)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(card)
}

// ToggleReaction handles POST /api/v1/posts/:index/reactions/:kind
// @Summary Toggle a reaction
// @Description Flip the like, repost or comment marker on a card
// @Tags posts
// @Produce json
// @Success 200 {object} models.Card
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{index}/reactions/{kind} [post]
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	card, err := sess.ToggleReaction(index, c.Params("kind"))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(card)
}

// ExportPost handles GET /api/v1/posts/:index/export
// @Summary Export a post
// @Description Return the formatted text for the clipboard and the external compose URL
// @Tags posts
// @Produce json
// @Success 200 {object} object{formattedText=string,publishUrl=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{index}/export [get]
func (s *Server) ExportPost(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	post, _, err := sess.Post(index)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"formattedText": post.FormattedText(),
		"publishUrl":    post.PublishURL(),
	})
}

// SchedulePost handles POST /api/v1/posts/:index/schedule
// @Summary Schedule a post
// @Description Queue a snapshot of the post for a future publish time
// @Tags schedule
// @Accept json
// @Produce json
// @Param request body object{scheduledTime=string} true "Publish time"
// @Success 201 {object} models.ScheduledPost
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{index}/schedule [post]
func (s *Server) SchedulePost(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	var req struct {
		ScheduledTime string `json:"scheduledTime"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	scheduled, err := sess.AddSchedule(index, req.ScheduledTime)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(scheduled)
}

// GetSchedule handles GET /api/v1/schedule
// @Summary List scheduled posts
// @Tags schedule
// @Produce json
// @Success 200 {object} object{schedule=[]models.ScheduledPost}
// @Router /schedule [get]
func (s *Server) GetSchedule(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"schedule": sess.Schedules()})
}

// RemoveSchedule handles DELETE /api/v1/schedule/:id
// @Summary Remove a scheduled post
// @Tags schedule
// @Produce json
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /schedule/{id} [delete]
func (s *Server) RemoveSchedule(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	id := c.Params("id")
	if !sess.RemoveSchedule(id) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("scheduled post", id))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func historyCacheKey(sessionID string) string {
	return "history:" + sessionID
}

// GetHistory handles GET /api/v1/history
// @Summary Generation history
// @Description List persisted generation records for the session, newest first
// @Tags history
// @Produce json
// @Param limit query int false "Maximum records (default 50)"
// @Success 200 {object} object{history=[]models.GenerationRecord}
// @Router /history [get]
func (s *Server) GetHistory(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	limit := c.QueryInt("limit", 50)

	// Only the default-limit listing is cached; the cached entry would be
	// wrong for other limits and a per-limit key defeats invalidation.
	var records []models.GenerationRecord
	fetch := func() error {
		var ferr error
		records, ferr = s.historyRepo.ListBySession(c.UserContext(), sess.ID, limit)
		return ferr
	}
	if limit == 50 {
		err = cache.CacheAside(c.UserContext(), historyCacheKey(sess.ID), &records, 30*time.Second, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if records == nil {
		records = []models.GenerationRecord{}
	}

	return c.JSON(fiber.Map{"history": records})
}
