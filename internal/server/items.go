package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/items"
	"github.com/cuprum-acid/o11y-kit/internal/metrics"
	"github.com/gin-gonic/gin"
)

const detailNotFound = "Item not found"

func (s *Server) createItem(ctx *gin.Context) {
	var payload items.NewItem
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	item, err := s.store.Create(ctx.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, items.ErrInvalidItem) {
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create item"})
		return
	}

	ctx.JSON(http.StatusOK, item)
}

func (s *Server) listItems(ctx *gin.Context) {
	n := s.listCalls.Add(1)
	if s.opts.SlowEvery > 0 && n%uint64(s.opts.SlowEvery) == 0 {
		metrics.ItemsListDelayed.Inc()

		timer := time.NewTimer(s.opts.SlowDelay)
		select {
		case <-timer.C:
		case <-ctx.Request.Context().Done():
			timer.Stop()
			return
		}
	}

	result, err := s.store.List(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list items"})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (s *Server) getItem(ctx *gin.Context) {
	id, ok := itemID(ctx)
	if !ok {
		return
	}

	item, err := s.store.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, items.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"detail": detailNotFound})
			return
		}
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to get item"})
		return
	}

	ctx.JSON(http.StatusOK, item)
}

func (s *Server) deleteItem(ctx *gin.Context) {
	id, ok := itemID(ctx)
	if !ok {
		return
	}

	if err := s.store.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, items.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"detail": detailNotFound})
			return
		}
		ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to delete item"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Item deleted"})
}

// itemID parses the :id path parameter and answers 422 when it is not a number
func itemID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "item id must be an integer"})
		return 0, false
	}

	return id, true
}
