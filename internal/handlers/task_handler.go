package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/markup"
	"taskflow/internal/model"
	"taskflow/internal/service"
)

type TaskHandler struct {
	service *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{service: svc}
}

// GET /tasks
func (h *TaskHandler) List(c *gin.Context) {
	view, err := parseView(c)
	if err != nil {
		badRequest(c, "[task][list]", err)
		return
	}
	res := h.service.Query(view)
	log.Printf("[task][list][ok] filter=%s sort=%s order=%s n=%d", view.Bucket, view.SortBy, view.Order, len(res.Tasks))
	c.JSON(http.StatusOK, res)
}

// POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[task][create]", err)
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), req)
	if err != nil {
		respondError(c, "[task][create]", err)
		return
	}
	log.Printf("[task][create][ok] id=%s title=%q", task.ID, task.Title)
	c.JSON(http.StatusCreated, task)
}

// GET /tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	task, err := h.service.Resolve(c.Param("id"))
	if err != nil {
		respondError(c, "[task][get]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task, "notesHtml": markup.HTML(task.Notes)})
}

// PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req service.TaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[task][update]", err)
		return
	}

	ref, err := h.service.Resolve(c.Param("id"))
	if err != nil {
		respondError(c, "[task][update]", err)
		return
	}
	task, err := h.service.EditTask(c.Request.Context(), ref.ID, req)
	if err != nil {
		respondError(c, "[task][update]", err)
		return
	}
	log.Printf("[task][update][ok] id=%s", task.ID)
	c.JSON(http.StatusOK, task)
}

// DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	ref, err := h.service.Resolve(c.Param("id"))
	if err != nil {
		respondError(c, "[task][delete]", err)
		return
	}
	id := ref.ID
	if err := h.service.DeleteTask(c.Request.Context(), id); err != nil {
		respondError(c, "[task][delete]", err)
		return
	}
	log.Printf("[task][delete][ok] id=%s", id)
	c.Status(http.StatusNoContent)
}

// POST /tasks/:id/transition
func (h *TaskHandler) Transition(c *gin.Context) {
	var req struct {
		Status model.Status `json:"status" binding:"required"`
		Photo  string       `json:"photo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[task][transition]", err)
		return
	}

	ref, err := h.service.Resolve(c.Param("id"))
	if err != nil {
		respondError(c, "[task][transition]", err)
		return
	}
	id := ref.ID
	res, err := h.service.Move(c.Request.Context(), id, req.Status, req.Photo)
	if err != nil && res == nil {
		respondError(c, "[task][transition]", err)
		return
	}
	if err != nil {
		// The move itself is stored; only the follow-up failed.
		log.Printf("[task][transition][spawn][err] id=%s: %v", id, err)
	}
	log.Printf("[task][transition][ok] id=%s %s -> %s", id, res.From, res.To)
	c.JSON(http.StatusOK, res)
}

// POST /tasks/:id/advance
func (h *TaskHandler) Advance(c *gin.Context) {
	ref, err := h.service.Resolve(c.Param("id"))
	if err != nil {
		respondError(c, "[task][advance]", err)
		return
	}
	id := ref.ID
	res, err := h.service.Advance(c.Request.Context(), id)
	if err != nil && res == nil {
		respondError(c, "[task][advance]", err)
		return
	}
	if err != nil {
		log.Printf("[task][advance][spawn][err] id=%s: %v", id, err)
	}
	log.Printf("[task][advance][ok] id=%s %s -> %s", id, res.From, res.To)
	c.JSON(http.StatusOK, res)
}
