package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/core/ports"
	"github.com/issuetracker/issues-api/internal/pkg/validation"
)

const dateLayout = "2006-01-02"

// IssueHandler handles HTTP requests for issue operations. Every handler
// resolves the caller from the request context and passes it explicitly.
type IssueHandler struct {
	service  ports.IssueService
	renderer DescriptionRenderer
}

func NewIssueHandler(service ports.IssueService, renderer DescriptionRenderer) *IssueHandler {
	return &IssueHandler{service: service, renderer: renderer}
}

// Create handles POST /issues.
//
// @Summary      Create an issue
// @Tags         issues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createIssueRequest  true  "Issue title and markdown description"
// @Success      201   {object}  issueResponse
// @Failure      400   {object}  validationErrorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /issues [post]
func (h *IssueHandler) Create(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req createIssueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	issue, err := h.service.Create(c.Request().Context(), userID, toCreateIssueInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toIssueResponse(issue, h.renderer))
}

// List handles GET /issues.
//
// @Summary      List the caller's issues
// @Description  Filters are applied to the caller's full issue list.
// @Tags         issues
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Case-insensitive title substring"
// @Param        status     query     string  false  "OPEN, IN_PROGRESS or CLOSED"
// @Param        createdOn  query     string  false  "Creation day (YYYY-MM-DD, UTC)"
// @Param        updatedOn  query     string  false  "Last update day (YYYY-MM-DD, UTC)"
// @Success      200        {array}   issueResponse
// @Failure      400        {object}  validationErrorResponse
// @Failure      401        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /issues [get]
func (h *IssueHandler) List(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	filter, err := parseIssueFilter(c)
	if err != nil {
		return err
	}

	issues, err := h.service.List(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIssueResponses(issues, h.renderer))
}

// Get handles GET /issues/:id.
//
// @Summary      Get an issue
// @Tags         issues
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Issue ID"
// @Success      200  {object}  issueResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /issues/{id} [get]
func (h *IssueHandler) Get(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	id, err := domain.ParseIssueID(c.Param("id"))
	if err != nil {
		return err
	}

	issue, err := h.service.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIssueResponse(issue, h.renderer))
}

// Update handles PATCH /issues/:id.
//
// @Summary      Update an issue
// @Description  Only non-empty fields are applied; an empty string leaves the field unchanged.
// @Tags         issues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Issue ID"
// @Param        body  body      updateIssueRequest  true  "Fields to change"
// @Success      200   {object}  issueResponse
// @Failure      400   {object}  validationErrorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /issues/{id} [patch]
func (h *IssueHandler) Update(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	id, err := domain.ParseIssueID(c.Param("id"))
	if err != nil {
		return err
	}

	var req updateIssueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}

	issue, err := h.service.Update(c.Request().Context(), userID, id, toUpdateIssueInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIssueResponse(issue, h.renderer))
}

// Delete handles DELETE /issues/:id.
//
// @Summary      Delete an issue
// @Tags         issues
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Issue ID"
// @Success      200  {object}  deleteIssueResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /issues/{id} [delete]
func (h *IssueHandler) Delete(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	id, err := domain.ParseIssueID(c.Param("id"))
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteIssueResponse{Success: true})
}

// parseIssueFilter reads the optional list filters from the query string.
func parseIssueFilter(c echo.Context) (domain.IssueFilter, error) {
	filter := domain.IssueFilter{Search: strings.TrimSpace(c.QueryParam("search"))}
	errs := validation.Errors{}

	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		status := domain.IssueStatus(strings.ToUpper(raw))
		if !status.Valid() {
			errs["status"] = append(errs["status"], "status must be one of: OPEN IN_PROGRESS CLOSED")
		}
		filter.Status = status
	}

	for _, p := range []struct {
		key string
		dst *time.Time
	}{
		{"createdOn", &filter.CreatedOn},
		{"updatedOn", &filter.UpdatedOn},
	} {
		raw := strings.TrimSpace(c.QueryParam(p.key))
		if raw == "" {
			continue
		}
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			errs[p.key] = append(errs[p.key], p.key+" must be a date in YYYY-MM-DD format")
			continue
		}
		*p.dst = day
	}

	if len(errs) > 0 {
		return domain.IssueFilter{}, errs
	}
	return filter, nil
}
