package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dieworks-backend/internal/model"
	"dieworks-backend/internal/storage"
)

// UploadDieFile handles multipart POST /dies/:id/files with the file in
// the "file" field.
func (h *Handler) UploadDieFile(c *gin.Context) {
	if h.files == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage is not configured"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	die, err := h.store.GetDie(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
			return
		}
		badRequest(c, "file is required")
		return
	}

	src, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.ObjectKey(die.DieNumber, fh.Filename)
	if err := h.files.Put(c.Request.Context(), key, src, fh.Size, contentType); err != nil {
		h.log.Error("store die file", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not store file"})
		return
	}

	file := &model.DieFile{
		DieID:       die.ID,
		FileName:    fh.Filename,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   fh.Size,
		Kind:        storage.KindOf(fh.Filename),
	}
	if err := h.store.AddDieFile(c.Request.Context(), file); err != nil {
		h.removeObject(c, key)
		h.respondError(c, err)
		return
	}
	h.resolver.Decorate(file)
	c.JSON(http.StatusCreated, file)
}

func (h *Handler) ListDieFiles(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	files, err := h.store.ListDieFiles(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	for i := range files {
		h.resolver.Decorate(&files[i])
	}
	c.JSON(http.StatusOK, files)
}

// DeleteDieFile drops the row first; a leftover object is only logged.
func (h *Handler) DeleteDieFile(c *gin.Context) {
	dieID, ok := pathID(c, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(c, "fileId")
	if !ok {
		return
	}
	file, err := h.store.DeleteDieFile(c.Request.Context(), dieID, fileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.removeObject(c, file.ObjectKey)
	c.Status(http.StatusNoContent)
}
