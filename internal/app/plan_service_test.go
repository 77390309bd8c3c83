package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/internal/infra/llm"
	"github.com/planforge/api/pkg/domain/project"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

// fakeProvider returns canned completions.
type fakeProvider struct {
	content string
	err     error
	calls   []llm.CompletionRequest
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{
		Content:          f.content,
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		Model:            "claude-sonnet-4-20250514",
		StopReason:       "end_turn",
	}, nil
}

func (f *fakeProvider) Name() string    { return "claude" }
func (f *fakeProvider) Model() string   { return "claude-sonnet-4-20250514" }
func (f *fakeProvider) Validate() error { return nil }

// fakeNotifier records progress events.
type fakeNotifier struct {
	events []PlanProgressEvent
}

func (f *fakeNotifier) NotifyPlanProgress(_ string, event PlanProgressEvent) {
	f.events = append(f.events, event)
}

// fakeExporter records exported documents.
type fakeExporter struct {
	keys []string
	data [][]byte
}

func (f *fakeExporter) Export(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.keys = append(f.keys, key)
	f.data = append(f.data, data)
	return "https://exports.test/" + key, nil
}

const validPlanJSON = `{"summary":"A todo app","phases":[{"name":"Foundation","durationWeeks":2,"tasks":[{"title":"Set up repo","estimateHours":4}]}],"techStack":[{"area":"backend","choice":"Go"}],"risks":[{"description":"Scope creep","mitigation":"Fixed milestones"}]}`

func testPlanService(provider llm.Provider, users ...*user.User) (*PlanService, *fakeProjectRepo, *fakeNotifier, *fakeExporter) {
	userRepo := newFakeUserRepo(users...)
	projectRepo := newFakeProjectRepo()
	resolver := role.NewResolver(role.Builtin())
	access := NewAccessService(userRepo, resolver, logger.NewNop())
	notifier := &fakeNotifier{}
	exporter := &fakeExporter{}
	svc := NewPlanService(projectRepo, access, provider, logger.NewNop(),
		WithPlanProgressNotifier(notifier),
		WithPlanExporter(exporter),
		WithMaxConcurrentGenerations(2),
	)
	return svc, projectRepo, notifier, exporter
}

func ownedProject(t *testing.T, repo *fakeProjectRepo, owner *user.User, name string) *project.Project {
	t.Helper()
	p := project.New(owner.ID, name, "")
	require.NoError(t, repo.Create(context.Background(), p))
	owner.OwnedResources.Add(project.ResourceType, p.ID.String())
	return p
}

func TestPlanService_GeneratePlan(t *testing.T) {
	owner := testUser(role.User)
	provider := &fakeProvider{content: validPlanJSON}
	svc, repo, notifier, _ := testPlanService(provider, owner)
	ctx := context.Background()

	p := ownedProject(t, repo, owner, "Todo App")

	got, err := svc.GeneratePlan(ctx, owner, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Build a todo app with reminders.",
	})
	require.NoError(t, err)

	assert.True(t, got.HasPlan())
	assert.JSONEq(t, validPlanJSON, string(got.Plan))
	assert.Equal(t, "claude-sonnet-4-20250514", got.PlanModel)
	assert.Equal(t, project.StatusPlanning, got.Status)
	assert.NotNil(t, got.PlanAt)

	require.Len(t, provider.calls, 1)
	assert.Contains(t, provider.calls[0].UserPrompt, "Todo App")
	assert.Contains(t, provider.calls[0].UserPrompt, "reminders")

	stages := make([]string, 0, len(notifier.events))
	for _, e := range notifier.events {
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []string{"queued", "generating", "saving", "done"}, stages)
}

func TestPlanService_GeneratePlan_FencedResponse(t *testing.T) {
	owner := testUser(role.User)
	provider := &fakeProvider{content: "```json\n" + validPlanJSON + "\n```"}
	svc, repo, _, _ := testPlanService(provider, owner)

	p := ownedProject(t, repo, owner, "Fenced")

	got, err := svc.GeneratePlan(context.Background(), owner, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Build something fenced.",
	})
	require.NoError(t, err)
	assert.JSONEq(t, validPlanJSON, string(got.Plan))
}

func TestPlanService_GeneratePlan_Denied(t *testing.T) {
	owner := testUser(role.User)
	stranger := testUser(role.User)
	provider := &fakeProvider{content: validPlanJSON}
	svc, repo, _, _ := testPlanService(provider, owner, stranger)

	p := ownedProject(t, repo, owner, "Private")

	_, err := svc.GeneratePlan(context.Background(), stranger, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Let me in please.",
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, provider.calls)
}

func TestPlanService_GeneratePlan_ModelGarbage(t *testing.T) {
	owner := testUser(role.User)
	provider := &fakeProvider{content: "Sorry, I cannot produce a plan."}
	svc, repo, notifier, _ := testPlanService(provider, owner)

	p := ownedProject(t, repo, owner, "Garbage")

	_, err := svc.GeneratePlan(context.Background(), owner, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Build a todo app.",
	})
	require.ErrorIs(t, err, llm.ErrInvalidResponse)

	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, "failed", last.Stage)

	stored, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasPlan())
}

func TestPlanService_GeneratePlan_ProviderError(t *testing.T) {
	owner := testUser(role.User)
	provider := &fakeProvider{err: errors.New("upstream exploded")}
	svc, repo, _, _ := testPlanService(provider, owner)

	p := ownedProject(t, repo, owner, "Unlucky")

	_, err := svc.GeneratePlan(context.Background(), owner, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Build a todo app.",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan generation failed")
}

func TestPlanService_RefinePlan(t *testing.T) {
	owner := testUser(role.User)
	provider := &fakeProvider{content: validPlanJSON}
	svc, repo, _, _ := testPlanService(provider, owner)
	ctx := context.Background()

	p := ownedProject(t, repo, owner, "Refinable")

	_, err := svc.RefinePlan(ctx, owner, RefinePlanInput{
		ProjectID:   p.ID.String(),
		Instruction: "Add a testing phase.",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GeneratePlan(ctx, owner, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Build a todo app.",
	})
	require.NoError(t, err)

	got, err := svc.RefinePlan(ctx, owner, RefinePlanInput{
		ProjectID:   p.ID.String(),
		Instruction: "Add a testing phase.",
	})
	require.NoError(t, err)
	assert.True(t, got.HasPlan())

	require.Len(t, provider.calls, 2)
	assert.Contains(t, provider.calls[1].UserPrompt, "Add a testing phase.")
	assert.Contains(t, provider.calls[1].UserPrompt, "current plan")
}

func TestPlanService_GetPlan(t *testing.T) {
	owner := testUser(role.User)
	provider := &fakeProvider{content: validPlanJSON}
	svc, repo, _, _ := testPlanService(provider, owner)
	ctx := context.Background()

	p := ownedProject(t, repo, owner, "Readable")

	_, err := svc.GetPlan(ctx, owner, p.ID.String())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GeneratePlan(ctx, owner, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Build a todo app.",
	})
	require.NoError(t, err)

	plan, err := svc.GetPlan(ctx, owner, p.ID.String())
	require.NoError(t, err)
	assert.JSONEq(t, validPlanJSON, string(plan))
}

func TestPlanService_ExportPlan(t *testing.T) {
	owner := testUser(role.User)
	provider := &fakeProvider{content: validPlanJSON}
	svc, repo, _, exporter := testPlanService(provider, owner)
	ctx := context.Background()

	p := ownedProject(t, repo, owner, "Exportable")
	_, err := svc.GeneratePlan(ctx, owner, GeneratePlanInput{
		ProjectID:    p.ID.String(),
		Requirements: "Build a todo app.",
	})
	require.NoError(t, err)

	t.Run("json export", func(t *testing.T) {
		url, err := svc.ExportPlan(ctx, owner, p.ID.String(), "json")
		require.NoError(t, err)
		assert.Contains(t, url, "https://exports.test/")
		assert.JSONEq(t, validPlanJSON, string(exporter.data[len(exporter.data)-1]))
	})

	t.Run("markdown export", func(t *testing.T) {
		_, err := svc.ExportPlan(ctx, owner, p.ID.String(), "markdown")
		require.NoError(t, err)

		md := string(exporter.data[len(exporter.data)-1])
		assert.Contains(t, md, "# Project Plan")
		assert.Contains(t, md, "## Foundation")
		assert.Contains(t, md, "Set up repo")
		assert.Contains(t, md, "Scope creep")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := svc.ExportPlan(ctx, owner, p.ID.String(), "pdf")
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}
