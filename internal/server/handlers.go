// SPDX-License-Identifier: EPL-2.0

package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ik5/audclass"
	"github.com/ik5/audclass/inference"
)

const audioField = "audio"

func errorJSON(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}

// handleClassify implements POST /classify.
func (s *Server) handleClassify(c *gin.Context) {
	if c.Request.ContentLength > s.opts.MaxUploadBytes {
		errorJSON(c, http.StatusRequestEntityTooLarge, s.tooLarge())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	fh, err := c.FormFile(audioField)
	// Spooled parts live in temporary files until removed.
	defer func() {
		if form := c.Request.MultipartForm; form != nil {
			if err := form.RemoveAll(); err != nil {
				s.logger.Warn("failed to remove upload spool", slog.String("error", err.Error()))
			}
		}
	}()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			errorJSON(c, http.StatusRequestEntityTooLarge, s.tooLarge())
			return
		}
		errorJSON(c, http.StatusBadRequest, "No audio file provided")
		return
	}

	// Reject by name before reading a single byte of the body.
	svc := s.opts.Service
	if err := audclass.ValidateFilename(fh.Filename, svc.AllowedExtensions()); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	data, err := readUpload(fh)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err.Error())
		return
	}

	report, err := svc.Classify(c.Request.Context(), audclass.Upload{Filename: fh.Filename, Data: data})
	var verr *audclass.ValidationError
	switch {
	case errors.As(err, &verr):
		errorJSON(c, http.StatusBadRequest, verr.Error())
	case err != nil && report == nil:
		errorJSON(c, http.StatusInternalServerError, err.Error())
	case s.opts.Ensemble:
		s.ensembleResponse(c, report)
	default:
		s.singleResponse(c, report)
	}
}

func (s *Server) tooLarge() string {
	return fmt.Sprintf("File too large, limit is %d bytes", s.opts.MaxUploadBytes)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// singleResponse answers with the first model's prediction.
func (s *Server) singleResponse(c *gin.Context, report *inference.Report) {
	o := report.Outcomes[0]
	if o.Err != nil {
		errorJSON(c, http.StatusInternalServerError, o.Err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"prediction": o.Result.Label,
		"confidence": o.Result.Confidence,
	})
}

// ensembleResponse answers with one entry per model. It is 503 only when
// no model produced a result.
func (s *Server) ensembleResponse(c *gin.Context, report *inference.Report) {
	if report.Succeeded() == 0 {
		errorJSON(c, http.StatusServiceUnavailable, "No model produced a prediction")
		return
	}

	body := make(gin.H, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Err != nil {
			body[o.Model] = gin.H{"error": o.Err.Error()}
			continue
		}
		body[o.Model] = o.Result
	}
	c.JSON(http.StatusOK, body)
}

// handleHealth implements GET /health.
func (s *Server) handleHealth(c *gin.Context) {
	models := s.opts.Service.Models()
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"models": names,
	})
}

type modelInfo struct {
	Name       string `json:"name"`
	InputShape [2]int `json:"input_shape"`
}

// handleModels implements GET /models.
func (s *Server) handleModels(c *gin.Context) {
	models := s.opts.Service.Models()
	infos := make([]modelInfo, len(models))
	for i, m := range models {
		f, cf := m.InputShape()
		infos[i] = modelInfo{Name: m.Name(), InputShape: [2]int{f, cf}}
	}

	mode := "single"
	if s.opts.Ensemble {
		mode = "ensemble"
	}

	c.JSON(http.StatusOK, gin.H{
		"mode":       mode,
		"models":     infos,
		"labels":     inference.Labels(),
		"extensions": s.opts.Service.AllowedExtensions(),
	})
}
