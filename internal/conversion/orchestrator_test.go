package conversion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"pdfgate/internal/domain"
	"pdfgate/internal/entitlement"
	"pdfgate/internal/ledger"
	"pdfgate/internal/precondition"
	"pdfgate/internal/registry"
	"pdfgate/internal/telemetry"
)

type memProfiles struct {
	profile    *domain.Profile
	readErr    error
	decrErr    error
	decrements int
}

func (m *memProfiles) ReadProfile(context.Context, string) (*domain.Profile, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.profile == nil {
		return nil, domain.ErrNotFound
	}
	p := *m.profile
	return &p, nil
}

func (m *memProfiles) DecrementCredit(context.Context, string) (int, error) {
	if m.decrErr != nil {
		return 0, m.decrErr
	}
	if m.profile.CreditsRemaining <= 0 {
		return 0, domain.ErrNoCreditsLeft
	}
	m.decrements++
	m.profile.CreditsRemaining--
	return m.profile.CreditsRemaining, nil
}

type memUsage struct {
	entries []*domain.UsageLogEntry
	err     error
}

func (m *memUsage) AppendUsage(_ context.Context, e *domain.UsageLogEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

type fakeExtractor struct {
	text   string
	images int
}

func (f fakeExtractor) ExtractText(context.Context, domain.File) (string, error) { return f.text, nil }

func (f fakeExtractor) CountEmbeddedImages(context.Context, domain.File) (int, error) {
	return f.images, nil
}

type fakeBackend struct {
	calls int
	err   error
	delay time.Duration
}

func (f *fakeBackend) SubmitConversion(ctx context.Context, toolID string, file domain.File) (*domain.Artifact, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Artifact{Filename: "out." + toolID, ContentType: "application/octet-stream", Data: []byte("converted")}, nil
}

type harness struct {
	profiles *memProfiles
	usage    *memUsage
	backend  *fakeBackend
	spans    *tracetest.InMemoryExporter
	orch     *Orchestrator
}

func newHarness(plan domain.PlanTier, credits int, extractor fakeExtractor) *harness {
	h := &harness{
		profiles: &memProfiles{profile: &domain.Profile{ID: "u1", Plan: plan, CreditsRemaining: credits}},
		usage:    &memUsage{},
		backend:  &fakeBackend{},
		spans:    tracetest.NewInMemoryExporter(),
	}
	tools := registry.Builtin()
	logger := zerolog.Nop()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(h.spans))
	h.orch = New(Options{
		Tools:       tools,
		Vector:      precondition.NewVectorChecker(extractor, time.Second, logger),
		Entitlement: entitlement.NewEvaluator(h.profiles, tools, time.Second, logger),
		Ledger:      ledger.New(h.usage, h.profiles, time.Second, logger),
		Backend:     h.backend,
		Logger:      logger,
		Metrics:     telemetry.NopMetrics(),
		Tracer:      tp.Tracer("test"),
	})
	return h
}

func pdfFile(name string) domain.File {
	return domain.File{Name: name, Data: []byte("%PDF-1.7 ...")}
}

func TestScenarioFreeUserWithoutCreditsOnUnregisteredTool(t *testing.T) {
	h := newHarness(domain.PlanFree, 0, fakeExtractor{})
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "Compress", File: pdfFile("a.pdf"), FileSizeMB: 1})
	require.ErrorIs(t, err, domain.ErrNoCredits)
	assert.Zero(t, h.profiles.decrements)
	assert.Empty(t, h.usage.entries)
	assert.Zero(t, h.backend.calls)
}

func TestScenarioFreeUserOnProTool(t *testing.T) {
	h := newHarness(domain.PlanFree, 3, fakeExtractor{})
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "dwg_to_pdf", File: domain.File{Name: "plan.dwg", Data: []byte("AC1032")}, FileSizeMB: 4})
	require.ErrorIs(t, err, domain.ErrPlanRequired)
	assert.Equal(t, 3, h.profiles.profile.CreditsRemaining)
	assert.Empty(t, h.usage.entries)
	assert.Zero(t, h.backend.calls)
}

func TestScenarioEnterpriseBadSignatureShortCircuits(t *testing.T) {
	h := newHarness(domain.PlanEnterprise, 0, fakeExtractor{})
	h.profiles.readErr = errors.New("must not be read")
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "bin_to_pdf", File: domain.File{Name: "x.bin", Data: []byte("MZ\x90\x00 not a cad file")}, FileSizeMB: 1})
	require.ErrorIs(t, err, domain.ErrUnsupportedBinFormat)
	assert.Empty(t, h.usage.entries)
	assert.Zero(t, h.backend.calls)
}

func TestScenarioProUserVectorTool(t *testing.T) {
	h := newHarness(domain.PlanPro, 0, fakeExtractor{text: strings.Repeat("t", 200), images: 2})
	res, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "pdf_to_dwg", File: pdfFile("Drawing.PDF"), FileSizeMB: 3.5})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, domain.PlanPro, res.Plan)
	require.NotNil(t, res.Artifact)
	assert.Zero(t, h.profiles.decrements)
	require.Len(t, h.usage.entries, 1)
	e := h.usage.entries[0]
	assert.Equal(t, domain.CategoryCAD, e.Category)
	assert.Equal(t, "pdf", e.InputFormat)
	assert.Equal(t, "dwg", e.OutputFormat)
	assert.Equal(t, "pdf_to_dwg", e.ToolID)
	assert.Equal(t, 3.5, e.FileSizeMB)
	assert.Equal(t, 1, h.backend.calls)
}

func TestScannedDocumentRejectedBeforeEntitlement(t *testing.T) {
	h := newHarness(domain.PlanPro, 0, fakeExtractor{text: "", images: 5})
	h.profiles.readErr = errors.New("must not be read")
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "PDF to DWG", File: pdfFile("scan.pdf"), FileSizeMB: 1})
	require.ErrorIs(t, err, domain.ErrVectorRequired)
	assert.Empty(t, h.usage.entries)
	assert.Zero(t, h.backend.calls)
}

func TestFreeUserIsChargedAndLogged(t *testing.T) {
	h := newHarness(domain.PlanFree, 2, fakeExtractor{})
	res, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "Merge PDF", File: pdfFile("a.pdf"), FileSizeMB: 0.5})
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, res.Plan)
	assert.Equal(t, 1, h.profiles.profile.CreditsRemaining)
	require.Len(t, h.usage.entries, 1)
	e := h.usage.entries[0]
	assert.Equal(t, "merge_pdf", e.ToolID)
	assert.Empty(t, e.OutputFormat)
	assert.Empty(t, e.Category)
}

func TestEnterpriseUserIsNotCharged(t *testing.T) {
	h := newHarness(domain.PlanEnterprise, 5, fakeExtractor{})
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "bin_to_pdf", File: domain.File{Name: "model.bin", Data: []byte("hdr CADBIN body")}, FileSizeMB: 1})
	require.NoError(t, err)
	assert.Zero(t, h.profiles.decrements)
	require.Len(t, h.usage.entries, 1)
	assert.Equal(t, domain.CategoryBinary, h.usage.entries[0].Category)
}

func TestProfileFailureIsUnattributedDenial(t *testing.T) {
	h := newHarness(domain.PlanPro, 0, fakeExtractor{})
	h.profiles.readErr = errors.New("timeout")
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "compress", File: pdfFile("a.pdf")})
	require.ErrorIs(t, err, domain.ErrAccessDenied)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindAccessDenied, kind)
}

func TestLedgerFailuresAreNonFatal(t *testing.T) {
	h := newHarness(domain.PlanFree, 1, fakeExtractor{})
	h.profiles.decrErr = errors.New("decrement failed")
	h.usage.err = errors.New("insert failed")
	res, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "compress", File: pdfFile("a.pdf")})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 1, h.backend.calls)
}

func TestExecutionFailureIsDistinct(t *testing.T) {
	h := newHarness(domain.PlanPro, 0, fakeExtractor{})
	backendErr := errors.New("converter exploded")
	h.backend.err = backendErr
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "compress", File: pdfFile("a.pdf")})
	require.ErrorIs(t, err, domain.ErrExecutionFailed)
	assert.ErrorIs(t, err, backendErr)
	require.Len(t, h.usage.entries, 1, "usage is recorded before execution")

	names := map[string]codes.Code{}
	for _, sp := range h.spans.GetSpans() {
		names[sp.Name] = sp.Status.Code
	}
	require.Len(t, names, 5)
	assert.Equal(t, codes.Error, names["conversion.execute"])
	assert.Equal(t, codes.Error, names["conversion.backend"])
	assert.Contains(t, names, "conversion.preconditions")
	assert.Contains(t, names, "conversion.entitlement")
	assert.Contains(t, names, "conversion.ledger")
}

func TestExecutionTimeout(t *testing.T) {
	h := newHarness(domain.PlanPro, 0, fakeExtractor{})
	h.backend.delay = time.Second
	h.orch.executeTimeout = 10 * time.Millisecond
	_, err := h.orch.Execute(context.Background(), Request{UserID: "u1", ToolID: "compress", File: pdfFile("a.pdf")})
	require.ErrorIs(t, err, domain.ErrExecutionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
