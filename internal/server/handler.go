package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/pricelens/internal/analysis"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes bounds one multipart batch request.
const maxUploadBytes = 200 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pipeline *analysis.Pipeline
}

// NewHandler creates a new HTTP handler over an analysis pipeline.
func NewHandler(pipeline *analysis.Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// HealthCheck returns the health status of the API.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens",
	})
}

// AnalyzeBatch processes one multipart batch of images. The client drives
// cross-batch sequencing and owns cumulative aggregation; each request here
// is a full preprocess, recognize, enrich, normalize round trip for one
// batch.
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart request: %v", err)})
		return
	}

	uploads := form.File["images"]
	if len(uploads) == 0 {
		// Usage error: rejected before any backend call.
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files selected"})
		return
	}

	files, err := readUploads(uploads)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := h.pipeline.ProcessBatch(c.Request.Context(), files)
	if err != nil {
		// Fatal batch error: the recognition layer is unreachable or
		// erroring. Earlier batches' rows stay client-side.
		log.Error().Err(err).Int("fileCount", len(files)).Msg("batch analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

func readUploads(uploads []*multipart.FileHeader) ([]analysis.File, error) {
	files := make([]analysis.File, 0, len(uploads))
	for _, fh := range uploads {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		files = append(files, analysis.File{
			Name:      fh.Filename,
			MediaType: fh.Header.Get("Content-Type"),
			Data:      data,
		})
	}
	return files, nil
}
