package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"todotracker/internal/dto"
	"todotracker/internal/middleware"
	"todotracker/internal/service"
	"todotracker/internal/utils"

	"github.com/gin-gonic/gin"
)

const notFoundMessage = "Todo not Found"

type TodoHandler struct {
	svc *service.TodoService
}

func NewTodoHandler(svc *service.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// Health godoc
// @Summary      Service health
// @Tags         health
// @Produce      json
// @Success      200  {object}  dto.StatusResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// List godoc
// @Summary      List todos
// @Description  window replaces completed when both are given
// @Tags         todos
// @Produce      json
// @Param        completed  query     string  false  "true selects completed todos, anything else open ones"
// @Param        window     query     int     false  "Only todos with a deadline within this many days"
// @Success      200        {array}   dto.TodoResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Failure      500        {object}  dto.ErrorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	var q service.ListQuery
	if v, ok := c.GetQuery("completed"); ok {
		q.Completed = &v
	}
	if v, ok := c.GetQuery("window"); ok {
		q.Window = &v
	}
	list, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TodosToResponses(list))
}

// GetByID godoc
// @Summary      Get a todo by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [get]
func (h *TodoHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TodoToResponse(t))
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        body  body      object  true  "title (required), description, completed, deadline_at"
// @Success      201   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TodoToResponse(t))
}

// Update godoc
// @Summary      Update a todo
// @Description  Partial update: only fields present in the body change.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id    path      int     true  "Todo ID"
// @Param        body  body      object  true  "id, title, description, completed, deadline_at"
// @Success      200   {object}  dto.TodoResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /todos/{id} [put]
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	t, err := h.svc.Update(c.Request.Context(), id, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TodoToResponse(t))
}

// Delete godoc
// @Summary      Delete a todo
// @Description  Returns the deleted todo, or {} when it did not exist.
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, found, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, dto.TodoToResponse(t))
}

// parseID only accepts integer ids; anything else is a route miss.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: notFoundMessage})
		return 0, false
	}
	return id, true
}

func readBody(c *gin.Context) (dto.Body, bool) {
	var body dto.Body
	if err := c.ShouldBindJSON(&body); err != nil || !body.IsObject() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Request body must be a JSON object"})
		return dto.Body{}, false
	}
	return body, true
}

func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: notFoundMessage})
	case utils.IsPGDataException(err), utils.IsPGConstraintViolation(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid value in request"})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", middleware.RequestIDFromContext(c),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}
