// Package http exposes the placement store over a gin REST API. The routes
// mirror what internal/remote.Client speaks: placement metadata as JSON,
// create/update as multipart (metadata field plus optional content file),
// and content bytes served under /api/v1/content/:key.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/holoboard/placesync/internal/placement/domain"
	"github.com/holoboard/placesync/internal/storeserver/repository"
)

// maxContentBytes bounds a single uploaded content file.
const maxContentBytes = 64 << 20

type Handler struct {
	repo repository.Repository
}

func NewHandler(repo repository.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	placements := rg.Group("/placements")
	placements.GET("", h.list)
	placements.POST("", h.create)
	placements.GET("/:id", h.get)
	placements.PUT("/:id", h.update)
	placements.DELETE("/:id", h.delete)
	placements.PUT("/:id/transform", h.updateTransform)

	rg.GET("/content/:key", h.getContent)
}

func (h *Handler) list(c *gin.Context) {
	metas, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if metas == nil {
		metas = []*domain.PlacementMeta{}
	}
	c.JSON(http.StatusOK, metas)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	meta, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		writeRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *Handler) create(c *gin.Context) {
	meta, content, ok := parseAssetForm(c)
	if !ok {
		return
	}

	if content != nil {
		key, err := h.storeContent(c, content)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		meta.ContentURL = "/api/v1/content/" + key
	}

	if err := h.repo.Create(c.Request.Context(), meta); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "placement already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, meta)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	meta, content, ok := parseAssetForm(c)
	if !ok {
		return
	}
	if meta.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id mismatch"})
		return
	}

	prev, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		writeRepoErr(c, err)
		return
	}

	if content != nil {
		key, err := h.storeContent(c, content)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		meta.ContentURL = "/api/v1/content/" + key
	} else {
		meta.ContentURL = prev.ContentURL
	}

	if err := h.repo.Update(c.Request.Context(), meta); err != nil {
		writeRepoErr(c, err)
		return
	}

	// old blob is unreachable once the URL changes
	if content != nil && prev.ContentURL != "" {
		if key, ok := contentKey(prev.ContentURL); ok {
			_ = h.repo.DeleteContent(c.Request.Context(), key)
		}
	}
	c.JSON(http.StatusOK, meta)
}

func (h *Handler) updateTransform(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var update domain.TransformUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if update.ID != 0 && update.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id mismatch"})
		return
	}

	meta, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		writeRepoErr(c, err)
		return
	}

	meta.SetPose(update.Pose())
	if err := h.repo.Update(c.Request.Context(), meta); err != nil {
		writeRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	meta, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		writeRepoErr(c, err)
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		writeRepoErr(c, err)
		return
	}
	if key, ok := contentKey(meta.ContentURL); ok {
		_ = h.repo.DeleteContent(c.Request.Context(), key)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) getContent(c *gin.Context) {
	key := c.Param("key")
	data, err := h.repo.GetContent(c.Request.Context(), key)
	if err != nil {
		writeRepoErr(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *Handler) storeContent(c *gin.Context, content []byte) (string, error) {
	key := uuid.NewString()
	if err := h.repo.PutContent(c.Request.Context(), key, content); err != nil {
		return "", err
	}
	return key, nil
}

// parseAssetForm reads the multipart body used by create and update: a
// "metadata" JSON field and an optional "content" file. Responds with 400 and
// returns ok=false when the form is unusable.
func parseAssetForm(c *gin.Context) (*domain.PlacementMeta, []byte, bool) {
	metaJSON := c.PostForm("metadata")
	if metaJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing metadata field"})
		return nil, nil, false
	}

	var meta domain.PlacementMeta
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata"})
		return nil, nil, false
	}
	if err := meta.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}

	var content []byte
	if file, err := c.FormFile("content"); err == nil {
		if file.Size > maxContentBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content too large"})
			return nil, nil, false
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable content"})
			return nil, nil, false
		}
		defer f.Close()
		content, err = io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable content"})
			return nil, nil, false
		}
	}
	return &meta, content, true
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid placement id"})
		return 0, false
	}
	return id, true
}

func contentKey(contentURL string) (string, bool) {
	const prefix = "/api/v1/content/"
	if len(contentURL) > len(prefix) && contentURL[:len(prefix)] == prefix {
		return contentURL[len(prefix):], true
	}
	return "", false
}

func writeRepoErr(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "placement not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
