package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/planforge/api/internal/infra/llm"
	"github.com/planforge/api/internal/metrics"
	"github.com/planforge/api/pkg/domain/project"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

// PlanProgressNotifier pushes generation progress to connected clients. The
// websocket hub implements this; a nil notifier drops events.
type PlanProgressNotifier interface {
	NotifyPlanProgress(userID string, event PlanProgressEvent)
}

// PlanProgressEvent is one progress update during plan generation.
type PlanProgressEvent struct {
	ProjectID string `json:"projectId"`
	Stage     string `json:"stage"` // queued, generating, saving, done, failed
	Message   string `json:"message,omitempty"`
}

// PlanExporter stores an exported plan document and returns a download URL.
type PlanExporter interface {
	Export(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// PlanService generates, refines and exports project plan documents.
type PlanService struct {
	projects project.Repository
	access   *AccessService
	provider llm.Provider
	notifier PlanProgressNotifier
	exporter PlanExporter
	sem      *semaphore.Weighted
	logger   *logger.Logger
}

// PlanServiceOption configures optional PlanService dependencies.
type PlanServiceOption func(*PlanService)

// WithPlanProgressNotifier enables live generation progress events.
func WithPlanProgressNotifier(notifier PlanProgressNotifier) PlanServiceOption {
	return func(s *PlanService) {
		s.notifier = notifier
	}
}

// WithPlanExporter enables plan export to object storage.
func WithPlanExporter(exporter PlanExporter) PlanServiceOption {
	return func(s *PlanService) {
		s.exporter = exporter
	}
}

// WithMaxConcurrentGenerations caps in-flight LLM calls.
func WithMaxConcurrentGenerations(n int) PlanServiceOption {
	return func(s *PlanService) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewPlanService creates a new PlanService.
func NewPlanService(projects project.Repository, access *AccessService, provider llm.Provider, log *logger.Logger, opts ...PlanServiceOption) *PlanService {
	s := &PlanService{
		projects: projects,
		access:   access,
		provider: provider,
		sem:      semaphore.NewWeighted(10),
		logger:   log.With("service", "plan"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ====== GENERATION ======

// GeneratePlanInput contains data for generating a project plan.
type GeneratePlanInput struct {
	ProjectID    string `json:"projectId" validate:"required,uuid"`
	Requirements string `json:"requirements" validate:"required,min=10,max=20000"`
}

// GeneratePlan asks the model for a structured plan document and stores it
// on the project. The call blocks until generation finishes; progress events
// stream to the notifier along the way.
func (s *PlanService) GeneratePlan(ctx context.Context, actor *user.User, input GeneratePlanInput) (*project.Project, error) {
	id, err := shared.IDFromString(input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project id format", shared.ErrValidation)
	}
	requirements := strings.TrimSpace(input.Requirements)
	if requirements == "" {
		return nil, fmt.Errorf("%w: requirements are required", shared.ErrValidation)
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if err := s.access.RequirePermission(ctx, actor, "plan:create:own", id.String()); err != nil {
		return nil, err
	}

	s.notify(actor, PlanProgressEvent{ProjectID: id.String(), Stage: "queued"})

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("generation canceled while queued: %w", err)
	}
	defer s.sem.Release(1)

	metrics.PlanGenerationsInProgress.Inc()
	defer metrics.PlanGenerationsInProgress.Dec()

	s.notify(actor, PlanProgressEvent{ProjectID: id.String(), Stage: "generating"})

	start := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   buildPlanPrompt(p, requirements),
	})
	metrics.PlanGenerationDuration.WithLabelValues(s.provider.Model()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PlanGenerationsTotal.WithLabelValues(s.provider.Model(), "error").Inc()
		s.notify(actor, PlanProgressEvent{ProjectID: id.String(), Stage: "failed", Message: "generation failed"})
		s.logger.Error("plan generation failed",
			"project_id", id.String(),
			"error", err,
		)
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	metrics.PlanTokensUsed.WithLabelValues(resp.Model, "input").Add(float64(resp.PromptTokens))
	metrics.PlanTokensUsed.WithLabelValues(resp.Model, "output").Add(float64(resp.CompletionTokens))

	plan, err := extractPlanDocument(resp.Content)
	if err != nil {
		metrics.PlanGenerationsTotal.WithLabelValues(resp.Model, "invalid").Inc()
		s.notify(actor, PlanProgressEvent{ProjectID: id.String(), Stage: "failed", Message: "model returned an unusable document"})
		return nil, fmt.Errorf("%w: %s", llm.ErrInvalidResponse, err.Error())
	}

	s.notify(actor, PlanProgressEvent{ProjectID: id.String(), Stage: "saving"})

	p.SetPlan(plan, resp.Model)
	if err := s.projects.Update(ctx, p); err != nil {
		metrics.PlanGenerationsTotal.WithLabelValues(resp.Model, "error").Inc()
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	metrics.PlanGenerationsTotal.WithLabelValues(resp.Model, "success").Inc()
	s.notify(actor, PlanProgressEvent{ProjectID: id.String(), Stage: "done"})
	s.logger.Info("plan generated",
		"project_id", id.String(),
		"model", resp.Model,
		"tokens", resp.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return p, nil
}

// RefinePlanInput contains a refinement instruction for an existing plan.
type RefinePlanInput struct {
	ProjectID   string `json:"projectId" validate:"required,uuid"`
	Instruction string `json:"instruction" validate:"required,min=3,max=5000"`
}

// RefinePlan sends the stored plan back to the model with a refinement
// instruction and stores the revised document.
func (s *PlanService) RefinePlan(ctx context.Context, actor *user.User, input RefinePlanInput) (*project.Project, error) {
	id, err := shared.IDFromString(input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project id format", shared.ErrValidation)
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if !p.HasPlan() {
		return nil, project.ErrNoPlan
	}
	if err := s.access.RequirePermission(ctx, actor, "plan:update:own", id.String()); err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("refinement canceled while queued: %w", err)
	}
	defer s.sem.Release(1)

	metrics.PlanGenerationsInProgress.Inc()
	defer metrics.PlanGenerationsInProgress.Dec()

	start := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   buildRefinePrompt(p, strings.TrimSpace(input.Instruction)),
	})
	metrics.PlanGenerationDuration.WithLabelValues(s.provider.Model()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PlanGenerationsTotal.WithLabelValues(s.provider.Model(), "error").Inc()
		return nil, fmt.Errorf("plan refinement failed: %w", err)
	}

	metrics.PlanTokensUsed.WithLabelValues(resp.Model, "input").Add(float64(resp.PromptTokens))
	metrics.PlanTokensUsed.WithLabelValues(resp.Model, "output").Add(float64(resp.CompletionTokens))

	plan, err := extractPlanDocument(resp.Content)
	if err != nil {
		metrics.PlanGenerationsTotal.WithLabelValues(resp.Model, "invalid").Inc()
		return nil, fmt.Errorf("%w: %s", llm.ErrInvalidResponse, err.Error())
	}

	p.SetPlan(plan, resp.Model)
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	metrics.PlanGenerationsTotal.WithLabelValues(resp.Model, "success").Inc()
	s.logger.Info("plan refined",
		"project_id", id.String(),
		"model", resp.Model,
	)
	return p, nil
}

// ====== READ AND EXPORT ======

// GetPlan returns the stored plan document for a project the actor may read.
func (s *PlanService) GetPlan(ctx context.Context, actor *user.User, projectID string) (json.RawMessage, error) {
	id, err := shared.IDFromString(projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project id format", shared.ErrValidation)
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if !p.HasPlan() {
		return nil, project.ErrNoPlan
	}

	canRead := s.access.CheckPermissionForUser(ctx, actor, "plan:read:own", id.String()) ||
		s.access.CheckPermissionForUser(ctx, actor, "plan:read:shared", id.String())
	if !canRead {
		return nil, fmt.Errorf("%w: no access to this plan", shared.ErrForbidden)
	}

	return p.Plan, nil
}

// ExportPlan writes the plan document to object storage and returns a
// time-limited download URL. Supported formats are "json" and "markdown".
func (s *PlanService) ExportPlan(ctx context.Context, actor *user.User, projectID, format string) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("%w: export storage is not configured", shared.ErrInternal)
	}

	plan, err := s.GetPlan(ctx, actor, projectID)
	if err != nil {
		return "", err
	}

	var data []byte
	var contentType, ext string
	switch format {
	case "json", "":
		data, contentType, ext = plan, "application/json", "json"
		format = "json"
	case "markdown":
		md, err := planToMarkdown(plan)
		if err != nil {
			metrics.PlanExportsTotal.WithLabelValues(format, "error").Inc()
			return "", fmt.Errorf("failed to render plan: %w", err)
		}
		data, contentType, ext = []byte(md), "text/markdown", "md"
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", shared.ErrValidation, format)
	}

	key := fmt.Sprintf("%s/%s-%d.%s", actor.ID.String(), projectID, time.Now().UTC().Unix(), ext)
	url, err := s.exporter.Export(ctx, key, data, contentType)
	if err != nil {
		metrics.PlanExportsTotal.WithLabelValues(format, "error").Inc()
		return "", fmt.Errorf("failed to export plan: %w", err)
	}

	metrics.PlanExportsTotal.WithLabelValues(format, "success").Inc()
	s.logger.Info("plan exported",
		"project_id", projectID,
		"format", format,
	)
	return url, nil
}

// ====== HELPERS ======

func (s *PlanService) notify(actor *user.User, event PlanProgressEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyPlanProgress(actor.ID.String(), event)
}

const planSystemPrompt = `You are a senior technical project planner. Given product requirements, produce a complete project plan as a single JSON object with this shape:
{
  "summary": string,
  "phases": [{"name": string, "description": string, "durationWeeks": number,
              "tasks": [{"title": string, "description": string, "estimateHours": number}]}],
  "techStack": [{"area": string, "choice": string, "reason": string}],
  "risks": [{"description": string, "mitigation": string}]
}
Respond with the JSON object only, no prose and no code fences.`

func buildPlanPrompt(p *project.Project, requirements string) string {
	var b strings.Builder
	b.WriteString("Project: ")
	b.WriteString(p.Name)
	if p.Description != "" {
		b.WriteString("\nDescription: ")
		b.WriteString(p.Description)
	}
	b.WriteString("\n\nRequirements:\n")
	b.WriteString(requirements)
	return b.String()
}

func buildRefinePrompt(p *project.Project, instruction string) string {
	var b strings.Builder
	b.WriteString("Here is the current plan for project ")
	b.WriteString(p.Name)
	b.WriteString(":\n\n")
	b.Write(p.Plan)
	b.WriteString("\n\nRevise the plan according to this instruction and return the full updated JSON document:\n")
	b.WriteString(instruction)
	return b.String()
}

// extractPlanDocument pulls the JSON object out of a model response. Models
// occasionally wrap output in code fences despite instructions.
func extractPlanDocument(content string) (json.RawMessage, error) {
	text := strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	if !strings.HasPrefix(text, "{") {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return json.RawMessage(text), nil
}

// planToMarkdown renders a plan document for export. Unknown fields are
// ignored; the document shape is model output, not a strict schema.
func planToMarkdown(plan json.RawMessage) (string, error) {
	var doc struct {
		Summary string `json:"summary"`
		Phases  []struct {
			Name          string  `json:"name"`
			Description   string  `json:"description"`
			DurationWeeks float64 `json:"durationWeeks"`
			Tasks         []struct {
				Title         string  `json:"title"`
				Description   string  `json:"description"`
				EstimateHours float64 `json:"estimateHours"`
			} `json:"tasks"`
		} `json:"phases"`
		TechStack []struct {
			Area   string `json:"area"`
			Choice string `json:"choice"`
			Reason string `json:"reason"`
		} `json:"techStack"`
		Risks []struct {
			Description string `json:"description"`
			Mitigation  string `json:"mitigation"`
		} `json:"risks"`
	}
	if err := json.Unmarshal(plan, &doc); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Project Plan\n\n")
	if doc.Summary != "" {
		b.WriteString(doc.Summary)
		b.WriteString("\n\n")
	}
	for _, phase := range doc.Phases {
		fmt.Fprintf(&b, "## %s\n\n", phase.Name)
		if phase.Description != "" {
			b.WriteString(phase.Description)
			b.WriteString("\n\n")
		}
		if phase.DurationWeeks > 0 {
			fmt.Fprintf(&b, "Duration: %.0f weeks\n\n", phase.DurationWeeks)
		}
		for _, task := range phase.Tasks {
			fmt.Fprintf(&b, "- **%s**", task.Title)
			if task.EstimateHours > 0 {
				fmt.Fprintf(&b, " (%.0fh)", task.EstimateHours)
			}
			if task.Description != "" {
				b.WriteString(": ")
				b.WriteString(task.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(doc.TechStack) > 0 {
		b.WriteString("## Tech Stack\n\n")
		for _, item := range doc.TechStack {
			fmt.Fprintf(&b, "- %s: %s", item.Area, item.Choice)
			if item.Reason != "" {
				fmt.Fprintf(&b, " (%s)", item.Reason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(doc.Risks) > 0 {
		b.WriteString("## Risks\n\n")
		for _, risk := range doc.Risks {
			fmt.Fprintf(&b, "- %s", risk.Description)
			if risk.Mitigation != "" {
				fmt.Fprintf(&b, " (mitigation: %s)", risk.Mitigation)
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
