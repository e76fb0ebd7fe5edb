package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bluedream1831-collab/threads/internal/middleware"
	"github.com/bluedream1831-collab/threads/internal/models"
	"github.com/bluedream1831-collab/threads/internal/prompt"
	"github.com/bluedream1831-collab/threads/internal/store"
)

// CreateVisual handles POST /api/v1/posts/:index/visual
// @Summary Generate a visual
// @Description Generate an image for the post's visual prompt. Static styles complete synchronously; the animated style starts a background job and returns 202, with progress visible on the card.
// @Tags visuals
// @Accept json
// @Produce json
// @Param request body object{style=string} true "Image style"
// @Success 200 {object} models.Card
// @Success 202 {object} models.Card
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /posts/{index}/visual [post]
func (s *Server) CreateVisual(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	if s.provider == nil {
		err := models.NewAuthError("Provider API key is not configured", nil)
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	var req struct {
		Style models.ImageStyle `json:"style"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	visualPrompt, sel, seq, err := sess.BeginVisual(index, req.Style)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	if req.Style == models.StyleAnimated {
		enriched := prompt.BuildVideo(visualPrompt, sel)
		go s.runVideoJob(sess, seq, index, enriched)

		_, card, err := sess.Post(index)
		if err != nil {
			return models.RespondWithError(c, models.StatusForError(err), err)
		}
		return c.Status(fiber.StatusAccepted).JSON(card)
	}

	enriched := prompt.BuildVisual(visualPrompt, sel, req.Style)
	visual, err := s.provider.GenerateImage(c.UserContext(), enriched)
	if err != nil {
		// The panel reopens so the user can retry.
		sess.CompleteVisual(seq, index, "")
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	ref := ""
	if visual != nil {
		ref = visual.Ref
	}
	sess.CompleteVisual(seq, index, ref)
	if ref == "" {
		err := models.NewProviderError("no image was generated", nil)
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	_, card, err := sess.Post(index)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(card)
}

// runVideoJob drives the long-running video generation off the request
// goroutine. The card's panel state is the only progress channel; the
// client polls GET /posts/:index/visual. seq pins the result to the post
// batch the job was started for.
func (s *Server) runVideoJob(sess *store.Session, seq uint64, index int, enriched string) {
	timeout := time.Duration(s.config.VideoPollSeconds*s.config.VideoMaxPolls)*time.Second + 2*time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	visual, err := s.provider.GenerateVideo(ctx, enriched)
	ref := ""
	switch {
	case err != nil:
		middleware.Logger.Error("video generation failed",
			"session_id", sess.ID, "post_index", index, "error", err)
	case visual != nil:
		ref = visual.Ref
	default:
		middleware.Logger.Warn("video generation returned no payload",
			"session_id", sess.ID, "post_index", index)
	}
	sess.CompleteVisual(seq, index, ref)
}

// GetVisual handles GET /api/v1/posts/:index/visual
// @Summary Get visual state
// @Description Return the card's panel state and visual reference, polled while a video job runs
// @Tags visuals
// @Produce json
// @Success 200 {object} object{panel=string,visual=string,visualStyle=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{index}/visual [get]
func (s *Server) GetVisual(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	_, card, err := sess.Post(index)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"panel":       card.Panel,
		"visual":      card.Visual,
		"visualStyle": card.VisualStyle,
	})
}

// DeleteVisual handles DELETE /api/v1/posts/:index/visual
// @Summary Clear a visual
// @Tags visuals
// @Produce json
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{index}/visual [delete]
func (s *Server) DeleteVisual(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	index, err := parseIndex(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	if err := sess.ClearVisual(index); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBlob handles GET /api/v1/blobs/:id
// @Summary Fetch a stored blob
// @Description Serve generated media bytes by id. Unauthenticated because media elements cannot attach headers.
// @Tags visuals
// @Produce octet-stream
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /blobs/{id} [get]
func (s *Server) GetBlob(c *fiber.Ctx) error {
	id := c.Params("id")
	if strings.TrimSpace(id) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("blob id is required"))
	}

	data, mime, err := s.blobs.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	if mime != "" {
		c.Set(fiber.HeaderContentType, mime)
	}
	c.Set(fiber.HeaderCacheControl, "private, max-age=1800")
	return c.Send(data)
}
