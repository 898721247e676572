package controllers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ManuelReschke/ResumeFox/internal/pkg/analyzer"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/credits"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/middleware"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/resumestore"
	"github.com/ManuelReschke/ResumeFox/internal/pkg/usercontext"
)

// lowCreditThreshold triggers the low balance warning mail once the
// remaining balance can no longer pay for the cheapest costed operation.
const lowCreditThreshold int64 = 5

const maxResumeTextLen = 50_000

type resumeRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
	Format         string `json:"format"`
}

func parseResumeRequest(c *fiber.Ctx) (*resumeRequest, error) {
	var req resumeRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fmt.Errorf("malformed JSON body")
	}
	req.ResumeText = strings.TrimSpace(req.ResumeText)
	if req.ResumeText == "" {
		return nil, fmt.Errorf("resume_text is required")
	}
	if len(req.ResumeText) > maxResumeTextLen {
		return nil, fmt.Errorf("resume_text exceeds %d characters", maxResumeTextLen)
	}
	return &req, nil
}

// chargedCost reads the admission stored by the credit gate.
func chargedCost(c *fiber.Ctx) int64 {
	if admission, ok := c.Locals(middleware.AdmissionLocalKey).(*credits.Admission); ok {
		return admission.Cost
	}
	return 0
}

// maybeWarnLowCredits enqueues the low balance mail once the post-charge
// balance drops under the cheapest costed operation.
func maybeWarnLowCredits(c *fiber.Ctx) {
	admission, ok := c.Locals(middleware.AdmissionLocalKey).(*credits.Admission)
	if !ok || admission.Cost == 0 {
		return
	}
	if admission.Available >= lowCreditThreshold {
		return
	}
	userCtx := usercontext.GetUserContext(c)
	if err := jobqueue.EnqueueLowCreditEmail(userCtx.UserID, admission.Available); err != nil {
		log.Printf("low credit mail enqueue failed for user %d: %v", userCtx.UserID, err)
	}
}

// HandleResumeAnalyze runs the AI analysis. Credits were already charged by
// the gate; an upstream failure is reported as such, not refunded.
func HandleResumeAnalyze(c *fiber.Ctx) error {
	req, err := parseResumeRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	result, err := analyzer.NewClientFromEnv().Analyze(ctx, req.ResumeText)
	if err != nil {
		log.Printf("analysis failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "analysis_failed", "message": "The analysis service did not return a result"})
	}

	maybeWarnLowCredits(c)
	return c.JSON(fiber.Map{
		"result":          result,
		"credits_charged": chargedCost(c),
	})
}

// HandleResumeOptimize rewrites a resume for general impact.
func HandleResumeOptimize(c *fiber.Ctx) error {
	req, err := parseResumeRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	optimized, err := analyzer.NewClientFromEnv().Optimize(ctx, req.ResumeText)
	if err != nil {
		log.Printf("optimization failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "optimization_failed", "message": "The optimization service did not return a result"})
	}

	maybeWarnLowCredits(c)
	return c.JSON(fiber.Map{
		"optimized_text":  optimized,
		"credits_charged": chargedCost(c),
	})
}

// HandleResumeOptimizeJD rewrites a resume targeted at one job description.
func HandleResumeOptimizeJD(c *fiber.Ctx) error {
	req, err := parseResumeRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}
	jd := strings.TrimSpace(req.JobDescription)
	if jd == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "job_description is required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	optimized, err := analyzer.NewClientFromEnv().OptimizeForJob(ctx, req.ResumeText, jd)
	if err != nil {
		log.Printf("targeted optimization failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "optimization_failed", "message": "The optimization service did not return a result"})
	}

	maybeWarnLowCredits(c)
	return c.JSON(fiber.Map{
		"optimized_text":  optimized,
		"credits_charged": chargedCost(c),
	})
}

// HandleResumeExport renders the resume as a standalone HTML document and
// stores it. Export is free; it still passes the gate so a future price
// change is one table edit.
func HandleResumeExport(c *fiber.Ctx) error {
	req, err := parseResumeRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	document := renderExportHTML(req.ResumeText)

	cfg, err := resumestore.LoadConfig()
	if err != nil || !cfg.IsEnabled() {
		// No document store configured; hand the document back inline.
		return c.JSON(fiber.Map{
			"content":         document,
			"content_type":    "text/html",
			"credits_charged": chargedCost(c),
		})
	}

	store, err := resumestore.NewClient(cfg)
	if err != nil {
		log.Printf("document store unavailable: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Document store unavailable"})
	}

	userCtx := usercontext.GetUserContext(c)
	now := time.Now()
	objectKey := cfg.GetObjectKey(userCtx.UserID, uuid.New().String(), ".html", now.Year(), int(now.Month()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.UploadDocument(ctx, objectKey, []byte(document), "text/html"); err != nil {
		log.Printf("export upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Export upload failed"})
	}

	downloadURL, err := store.PresignDownload(ctx, objectKey, 24*time.Hour)
	if err != nil {
		log.Printf("export presign failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Export link generation failed"})
	}

	return c.JSON(fiber.Map{
		"download_url":    downloadURL,
		"expires_in":      int((24 * time.Hour).Seconds()),
		"credits_charged": chargedCost(c),
	})
}

// renderExportHTML wraps the resume text in a minimal printable document.
func renderExportHTML(resumeText string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(resumeText)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	b.WriteString("<title>Resume</title>")
	b.WriteString("<style>body{font-family:Georgia,serif;max-width:48rem;margin:2rem auto;line-height:1.5;white-space:pre-wrap}</style>")
	b.WriteString("</head><body>")
	b.WriteString(escaped)
	b.WriteString("</body></html>\n")
	return b.String()
}
