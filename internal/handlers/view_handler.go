package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

// ViewHandler serves derived views and backups.
type ViewHandler struct {
	service *service.TaskService
}

func NewViewHandler(svc *service.TaskService) *ViewHandler {
	return &ViewHandler{service: svc}
}

// GET /board
func (h *ViewHandler) Board(c *gin.Context) {
	view, err := parseView(c)
	if err != nil {
		badRequest(c, "[board]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": h.service.Board(view)})
}

// GET /calendar?month=YYYY-MM or /calendar?date=YYYY-MM-DD for one day
func (h *ViewHandler) Calendar(c *gin.Context) {
	if date := c.Query("date"); date != "" {
		tasks, err := h.service.TasksOn(date)
		if err != nil {
			respondError(c, "[calendar]", err)
			return
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "tasks": tasks})
		return
	}

	month := h.service.Now()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, h.service.Location())
		if err != nil {
			badRequest(c, "[calendar]", fmt.Errorf("month must be YYYY-MM"))
			return
		}
		month = parsed
	}
	c.JSON(http.StatusOK, h.service.Month(month.Year(), month.Month()))
}

// GET /analytics
func (h *ViewHandler) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Dashboard())
}

// GET /export
func (h *ViewHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Export(&buf); err != nil {
		respondError(c, "[export]", err)
		return
	}
	name := service.ExportFileName(h.service.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	log.Printf("[export][ok] file=%s bytes=%d", name, buf.Len())
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// POST /import
func (h *ViewHandler) Import(c *gin.Context) {
	res, err := h.service.Import(c.Request.Context(), c.Request.Body)
	if err != nil {
		if res.Created > 0 {
			log.Printf("[import][partial] created=%d: %v", res.Created, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "import stopped early", "created": res.Created})
			return
		}
		respondError(c, "[import]", err)
		return
	}
	log.Printf("[import][ok] created=%d", res.Created)
	c.JSON(http.StatusOK, res)
}
