package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskflow/internal/lifecycle"
	"taskflow/internal/model"
	"taskflow/internal/query"
	"taskflow/internal/service"
)

// respondError maps service errors onto HTTP statuses and logs under tag.
func respondError(c *gin.Context, tag string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Printf("%s[invalid] %v", tag, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, service.ErrMalformedImport), errors.Is(err, service.ErrAmbiguousRef):
		log.Printf("%s[invalid] %v", tag, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrTaskNotFound):
		log.Printf("%s[404] %v", tag, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		log.Printf("%s[conflict] %v", tag, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrPhotoRequired):
		log.Printf("%s[photo] %v", tag, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("%s[err] %v", tag, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, tag string, err error) {
	log.Printf("%s[bind][err] %v", tag, err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseView reads list parameters from the query string.
func parseView(c *gin.Context) (query.View, error) {
	bucket, err := query.ParseBucket(c.Query("filter"))
	if err != nil {
		return query.View{}, err
	}
	sortBy, err := query.ParseSortKey(c.Query("sort"))
	if err != nil {
		return query.View{}, err
	}
	order, err := query.ParseOrder(c.Query("order"))
	if err != nil {
		return query.View{}, err
	}

	var priority model.Priority
	if raw := strings.ToLower(strings.TrimSpace(c.Query("priority"))); raw != "" && raw != "all" {
		priority = model.Priority(raw)
		if !priority.Valid() {
			return query.View{}, fmt.Errorf("unknown priority %q", raw)
		}
	}

	category := strings.TrimSpace(c.Query("category"))
	if strings.EqualFold(category, "all") {
		category = ""
	}

	return query.View{
		Search:   c.Query("search"),
		Bucket:   bucket,
		Priority: priority,
		Category: category,
		SortBy:   sortBy,
		Order:    order,
	}, nil
}
