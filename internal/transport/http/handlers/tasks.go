package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhmdrz22/enginner/internal/transport/http/middleware"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

// TaskHandler exposes CRUD over the caller's own tasks.
type TaskHandler struct {
	tasks *usecase.TaskService
}

// NewTaskHandler builds a TaskHandler.
func NewTaskHandler(tasks *usecase.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List returns the caller's tasks narrowed by the query filters.
func (h *TaskHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), owner, usecase.TaskQuery{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	now := h.tasks.Now()
	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, newTaskResponse(t, now))
	}
	c.JSON(http.StatusOK, resp)
}

// Create stores a task owned by the caller. A user field in the body is ignored.
func (h *TaskHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	if req.Title == nil {
		RespondWithMappedError(c, &usecase.ValidationError{Field: "title", Message: msgFieldIsRequired}, nil, http.StatusBadRequest, "")
		return
	}

	patch, err := req.patch()
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusBadRequest, "")
		return
	}

	in := usecase.TaskInput{
		Title:    *patch.Title,
		Status:   patch.Status,
		Priority: patch.Priority,
		DueDate:  patch.DueDate,
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}

	task, err := h.tasks.Create(c.Request.Context(), owner, in)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task, h.tasks.Now()))
}

// Get returns one of the caller's tasks. Tasks of other users are reported as missing.
func (h *TaskHandler) Get(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to load task")
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task, h.tasks.Now()))
}

// Update serves PUT with full and PATCH with partial semantics.
func (h *TaskHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	patch, err := req.patch()
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusBadRequest, "")
		return
	}

	full := c.Request.Method == http.MethodPut
	task, err := h.tasks.Update(c.Request.Context(), owner, c.Param("id"), patch, full)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to update task")
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task, h.tasks.Now()))
}

// Delete removes one of the caller's tasks.
func (h *TaskHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), owner, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

// ownerID returns the caller's user ID or writes a 401.
func ownerID(c *gin.Context) (string, bool) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		RespondWithMappedError(c, usecase.ErrUnauthenticated, nil, http.StatusUnauthorized, "")
		return "", false
	}
	return identity.UserID, true
}
