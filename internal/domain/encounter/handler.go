package encounter

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/soteria/soteria/internal/domain/activity"
	"github.com/soteria/soteria/internal/platform/auth"
	"github.com/soteria/soteria/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Clinician console endpoints
	clinGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleClinician))
	clinGroup.POST("/encounters", h.CreateEncounter)
	clinGroup.GET("/encounters", h.ListEncounters)
	clinGroup.DELETE("/encounters/:id", h.ArchiveEncounter)
	clinGroup.POST("/encounters/:id/activities", h.AssignActivities)
	clinGroup.POST("/encounters/:id/activities/:type/lock", h.LockActivity)
	clinGroup.POST("/encounters/:id/activities/:type/unlock", h.UnlockActivity)
	clinGroup.POST("/encounters/:id/session-lock", h.LockSession)
	clinGroup.GET("/encounters/:id/notes/narrative", h.NarrativeNote)
	clinGroup.GET("/encounters/:id/notes/stability-plan", h.StabilityPlanNote)

	// Shared endpoints, used by the patient device too
	bothGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleClinician, auth.RolePatient))
	bothGroup.GET("/encounters/:id", h.GetEncounter)
	bothGroup.GET("/encounters/:id/activities", h.ListActivities)
	bothGroup.GET("/encounters/:id/activities/:type", h.GetActivity)
	bothGroup.GET("/encounters/:id/activities/:type/answers", h.GetActivityAnswers)
	bothGroup.GET("/encounters/:id/answers", h.GetAnswers)
	bothGroup.GET("/encounters/:id/sections", h.Sections)
	bothGroup.POST("/encounters/:id/answers", h.SaveAnswers)
	bothGroup.POST("/encounters/:id/activities/:type/acknowledge", h.AcknowledgeLock)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func pathType(c echo.Context) (activity.Type, error) {
	t := activity.Type(c.Param("type"))
	if !t.Valid() {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid activity type")
	}
	return t, nil
}

func privileged(c echo.Context) bool {
	return auth.IsPrivileged(c.Request().Context())
}

// domainError maps domain failures onto HTTP statuses.
func domainError(err error) error {
	var ve *activity.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]string{
			"field": ve.Field, "code": ve.Code,
		})
	}
	var ise *activity.InvalidStateError
	if errors.As(err, &ise) {
		return echo.NewHTTPError(http.StatusConflict, ise.Reason)
	}
	switch {
	case errors.Is(err, activity.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, activity.ErrNotPermitted):
		return echo.NewHTTPError(http.StatusForbidden, "not permitted")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// -- Encounters --

func (h *Handler) CreateEncounter(c echo.Context) error {
	var req struct {
		PatientID uuid.UUID `json:"patient_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e, err := h.svc.CreateEncounter(c.Request().Context(), req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	e, err := h.svc.GetEncounter(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEncounters(c echo.Context) error {
	pid, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEncountersByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ArchiveEncounter(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.ArchiveEncounter(c.Request().Context(), id, privileged(c)); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Activities --

func (h *Handler) AssignActivities(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Types []activity.Type `json:"types"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Types) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "types is required")
	}
	added, err := h.svc.AssignActivities(c.Request().Context(), id, req.Types, privileged(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"assigned": added})
}

func (h *Handler) ListActivities(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListActivities(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetActivity(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := pathType(c)
	if err != nil {
		return err
	}
	aa, err := h.svc.GetActivity(c.Request().Context(), id, t)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, aa)
}

func (h *Handler) GetActivityAnswers(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := pathType(c)
	if err != nil {
		return err
	}
	out, err := h.svc.GetActivityAnswers(c.Request().Context(), id, t)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetAnswers(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.GetAnswers(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// -- Answers and sections --

func (h *Handler) SaveAnswers(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Answers     *activity.AnswerSet `json:"answers"`
		TakeawayKit bool                `json:"takeaway_kit"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.SaveAnswers(c.Request().Context(), id, req.Answers, req.TakeawayKit, privileged(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Sections(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sections, current, err := h.svc.Sections(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sections":            sections,
		"current_section_uid": current,
	})
}

// -- Locks --

func (h *Handler) LockActivity(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := pathType(c)
	if err != nil {
		return err
	}
	lock, err := h.svc.LockActivity(c.Request().Context(), id, t, privileged(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, lock)
}

func (h *Handler) UnlockActivity(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := pathType(c)
	if err != nil {
		return err
	}
	lock, err := h.svc.UnlockActivity(c.Request().Context(), id, t, privileged(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, lock)
}

func (h *Handler) AcknowledgeLock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := pathType(c)
	if err != nil {
		return err
	}
	lock, err := h.svc.AcknowledgeLock(c.Request().Context(), id, t)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, lock)
}

func (h *Handler) LockSession(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req struct {
		Locked bool `json:"locked"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.LockSession(c.Request().Context(), id, req.Locked, privileged(c)); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Notes --

func (h *Handler) NarrativeNote(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	note, err := h.svc.NarrativeNote(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"note": note})
}

func (h *Handler) StabilityPlanNote(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	note, err := h.svc.StabilityPlanNote(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"note": note})
}
