package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bluedream1831-collab/threads/internal/middleware"
	"github.com/bluedream1831-collab/threads/internal/models"
)

// CreateSession handles POST /api/v1/sessions
// @Summary Create a session
// @Description Open a new generation session and return its bearer token
// @Tags sessions
// @Produce json
// @Success 201 {object} object{token=string,sessionId=string,selection=models.Selection}
// @Router /sessions [post]
func (s *Server) CreateSession(c *fiber.Ctx) error {
	sess := s.registry.Create()

	ttl := time.Duration(s.config.SessionTTLMinutes) * time.Minute
	token, err := middleware.IssueSessionToken(sess.ID, ttl)
	if err != nil {
		s.registry.Delete(sess.ID)
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":     token,
		"sessionId": sess.ID,
		"selection": sess.Selection(),
	})
}

// GetSessionState handles GET /api/v1/session
// @Summary Get session state
// @Description Return the selection, posts and schedule for the session
// @Tags sessions
// @Produce json
// @Success 200 {object} object{selection=models.Selection,posts=[]store.CardView,schedule=[]models.ScheduledPost,generating=bool}
// @Failure 401 {object} models.ErrorResponse
// @Router /session [get]
func (s *Server) GetSessionState(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"selection":  sess.Selection(),
		"posts":      sess.Posts(),
		"schedule":   sess.Schedules(),
		"generating": sess.Generating(),
	})
}

// UpdateSelection handles PUT /api/v1/selection
// @Summary Update the selection
// @Description Apply mood, scene and model changes; omitted fields are untouched
// @Tags selection
// @Accept json
// @Produce json
// @Param request body object{mood=string,scene=string,modelVersion=string} true "Selection changes"
// @Success 200 {object} models.Selection
// @Failure 400 {object} models.ErrorResponse
// @Router /selection [put]
func (s *Server) UpdateSelection(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	var req struct {
		Mood         *models.Mood         `json:"mood"`
		Scene        *models.Scene        `json:"scene"`
		ModelVersion *models.ModelVersion `json:"modelVersion"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := sess.UpdateSelection(req.Mood, req.Scene, req.ModelVersion); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(sess.Selection())
}

// AddKeyword handles POST /api/v1/selection/keywords
// @Summary Add a keyword
// @Tags selection
// @Accept json
// @Produce json
// @Param request body object{keyword=string} true "Keyword"
// @Success 200 {object} models.Selection
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /selection/keywords [post]
func (s *Server) AddKeyword(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	var req struct {
		Keyword string `json:"keyword"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := sess.AddKeyword(req.Keyword); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(sess.Selection())
}

// RemoveKeywords handles DELETE /api/v1/selection/keywords
// @Summary Remove keywords
// @Description Remove the keyword given in the query, or all keywords when none is given
// @Tags selection
// @Produce json
// @Param keyword query string false "Keyword to remove"
// @Success 200 {object} models.Selection
// @Failure 404 {object} models.ErrorResponse
// @Router /selection/keywords [delete]
func (s *Server) RemoveKeywords(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	keyword := c.Query("keyword")
	if keyword == "" {
		sess.ClearKeywords()
		return c.JSON(sess.Selection())
	}

	if !sess.RemoveKeyword(keyword) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("keyword", keyword))
	}

	return c.JSON(sess.Selection())
}
