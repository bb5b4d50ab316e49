package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"resume-screener/internal/extract"
	"resume-screener/internal/shared/server/middleware"
	"resume-screener/internal/shared/server/respond"
	"resume-screener/internal/shared/telemetry"
)

// Limits are the request-level checks applied before any extraction.
type Limits struct {
	MaxFileCount        int
	MaxFileSizeBytes    int64
	MaxTotalSizeBytes   int64
	AllowedExtensions   []string
	MaxResumeTextLength int
	GlobalTimeout       time.Duration
}

// Handler exposes analysis, extraction and screening endpoints.
type Handler struct {
	Analyzer   *Analyzer
	Screenings *ScreeningService
	Limits     Limits
}

func NewHandler(analyzer *Analyzer, screenings *ScreeningService, limits Limits) *Handler {
	return &Handler{Analyzer: analyzer, Screenings: screenings, Limits: limits}
}

// RegisterRoutes attaches routes to the group. Screening routes are only
// registered when a ScreeningService is configured.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.POST("/extract", h.extract)
	if h.Screenings != nil {
		rg.POST("/screenings", h.submitScreening)
		rg.GET("/screenings/:id", h.getScreening)
	}
}

type uploadForm struct {
	JobDescription string
	Files          []extract.Upload
	Texts          []string
}

type fieldIssue = map[string]string

func (h *Handler) analyze(c *gin.Context) {
	form, ok := h.bindForm(c, true)
	if !ok {
		return
	}

	ctx, cancel := h.withGlobalTimeout(c)
	defer cancel()

	report, err := h.Analyzer.Analyze(ctx, Request{
		JobDescription: form.JobDescription,
		Files:          form.Files,
		Texts:          form.Texts,
	})
	if h.timedOut(c, ctx) {
		respond.Error(c, http.StatusGatewayTimeout, ErrorCodeRequestTimeout, ErrRequestTimeout.Error(), nil)
		return
	}
	if err != nil {
		h.coreError(c, err, "failed to analyze candidates")
		return
	}
	respond.OK(c, report)
}

func (h *Handler) extract(c *gin.Context) {
	form, ok := h.bindForm(c, false)
	if !ok {
		return
	}

	ctx, cancel := h.withGlobalTimeout(c)
	defer cancel()

	items, err := h.Analyzer.Extract(ctx, form.Files, form.Texts)
	if h.timedOut(c, ctx) {
		respond.Error(c, http.StatusGatewayTimeout, ErrorCodeRequestTimeout, ErrRequestTimeout.Error(), nil)
		return
	}
	if err != nil {
		h.coreError(c, err, "failed to extract text")
		return
	}
	if items == nil {
		items = []extract.Item{}
	}
	respond.OK(c, gin.H{
		"items": items,
		"meta":  extract.Summarize(items),
	})
}

func (h *Handler) submitScreening(c *gin.Context) {
	form, ok := h.bindForm(c, true)
	if !ok {
		return
	}

	screening, err := h.Screenings.Submit(requestContext(c), Request{
		JobDescription: form.JobDescription,
		Files:          form.Files,
		Texts:          form.Texts,
	})
	if err != nil {
		telemetry.Error("screening.submit_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err,
		})
		respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to submit screening", nil)
		return
	}

	c.Set("screeningId", screening.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"screeningId": screening.ID,
		"status":      screening.Status,
	})
}

func (h *Handler) getScreening(c *gin.Context) {
	c.Set("screeningId", c.Param("id"))
	screening, err := h.Screenings.Get(requestContext(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "screening not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch screening", nil)
		}
		return
	}
	if c.Query("sort") == "score" {
		screening.Results = SortByScore(screening.Results)
	}
	respond.OK(c, screening)
}

// bindForm reads the multipart body and applies Limits. On failure it has
// already written the 400 response.
func (h *Handler) bindForm(c *gin.Context, requireJob bool) (uploadForm, bool) {
	mf, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "expected a multipart/form-data body", nil)
		return uploadForm{}, false
	}

	var form uploadForm
	if vals := mf.Value["jobDescription"]; len(vals) > 0 {
		form.JobDescription = strings.TrimSpace(vals[0])
	}
	for _, t := range mf.Value["texts"] {
		if strings.TrimSpace(t) != "" {
			form.Texts = append(form.Texts, t)
		}
	}
	headers := mf.File["files"]

	issues := h.validate(requireJob, form, headers)
	if len(issues) > 0 {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "request validation failed", issues)
		return uploadForm{}, false
	}

	for _, fh := range headers {
		up, err := readUpload(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "failed to read uploaded file", []fieldIssue{
				{"field": "files", "issue": fmt.Sprintf("%s: unreadable", fh.Filename)},
			})
			return uploadForm{}, false
		}
		form.Files = append(form.Files, up)
	}
	return form, true
}

func (h *Handler) validate(requireJob bool, form uploadForm, headers []*multipart.FileHeader) []fieldIssue {
	var issues []fieldIssue
	if requireJob && form.JobDescription == "" {
		issues = append(issues, fieldIssue{"field": "jobDescription", "issue": "required"})
	}
	if h.Limits.MaxFileCount > 0 && len(headers) > h.Limits.MaxFileCount {
		issues = append(issues, fieldIssue{"field": "files", "issue": fmt.Sprintf("at most %d files allowed", h.Limits.MaxFileCount)})
	}
	var total int64
	for _, fh := range headers {
		total += fh.Size
		if !h.extensionAllowed(fh.Filename) {
			issues = append(issues, fieldIssue{"field": "files", "issue": fmt.Sprintf("%s: file type not allowed", fh.Filename)})
		}
		if h.Limits.MaxFileSizeBytes > 0 && fh.Size > h.Limits.MaxFileSizeBytes {
			issues = append(issues, fieldIssue{"field": "files", "issue": fmt.Sprintf("%s: exceeds %d bytes", fh.Filename, h.Limits.MaxFileSizeBytes)})
		}
	}
	if h.Limits.MaxTotalSizeBytes > 0 && total > h.Limits.MaxTotalSizeBytes {
		issues = append(issues, fieldIssue{"field": "files", "issue": fmt.Sprintf("total upload size exceeds %d bytes", h.Limits.MaxTotalSizeBytes)})
	}
	if h.Limits.MaxResumeTextLength > 0 {
		for i, t := range form.Texts {
			if utf8.RuneCountInString(t) > h.Limits.MaxResumeTextLength {
				issues = append(issues, fieldIssue{"field": fmt.Sprintf("texts[%d]", i), "issue": fmt.Sprintf("exceeds %d characters", h.Limits.MaxResumeTextLength)})
			}
		}
	}
	return issues
}

func (h *Handler) extensionAllowed(name string) bool {
	if len(h.Limits.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range h.Limits.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func readUpload(fh *multipart.FileHeader) (extract.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return extract.Upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return extract.Upload{}, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = extract.ContentTypeFor(fh.Filename)
	}
	return extract.Upload{FileName: filepath.Base(fh.Filename), ContentType: contentType, Data: data}, nil
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func (h *Handler) withGlobalTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := requestContext(c)
	if h.Limits.GlobalTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.Limits.GlobalTimeout)
}

// timedOut reports whether the global deadline fired while the client was
// still connected.
func (h *Handler) timedOut(c *gin.Context, ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) && c.Request.Context().Err() == nil
}

func (h *Handler) coreError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrTooManyCandidates):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, context.Canceled):
		respond.Error(c, http.StatusRequestTimeout, ErrorCodeRequestTimeout, "request cancelled", nil)
	default:
		telemetry.Error("analysis.request_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err,
		})
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, message, nil)
	}
}
