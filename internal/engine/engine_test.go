package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intynet/neti/internal/oracle"
	"github.com/intynet/neti/internal/reply"
	"github.com/intynet/neti/internal/session"
	"github.com/intynet/neti/internal/ticketing"
)

type fakeOracle struct {
	intent oracle.Intent
	text   string
}

func (f *fakeOracle) Classify(context.Context, string, session.State, string) oracle.Intent {
	return f.intent
}

func (f *fakeOracle) Generate(context.Context, string, string, string, bool) string {
	if f.text == "" {
		return "generated"
	}
	return f.text
}

type fakeValidator struct {
	result ticketing.ValidationResult
	calls  []string
}

func (f *fakeValidator) Validate(_ context.Context, refID string) ticketing.ValidationResult {
	f.calls = append(f.calls, refID)
	return f.result
}

type fakeReporter struct {
	result  ticketing.ReportResult
	reports []ticketing.Report
}

func (f *fakeReporter) CreateReport(_ context.Context, r ticketing.Report) ticketing.ReportResult {
	f.reports = append(f.reports, r)
	return f.result
}

func newTestEngine(intent oracle.Intent) (*Engine, *fakeValidator, *fakeReporter) {
	v := &fakeValidator{result: ticketing.ValidationResult{Valid: true, CustomerName: "BUDI SANTOSO", Source: "ticketing"}}
	r := &fakeReporter{result: ticketing.ReportResult{Success: true, ID: "42"}}
	return New(&fakeOracle{intent: intent}, v, r, reply.Defaults()), v, r
}

func process(e *Engine, s *session.Session, msg string) Result {
	return e.Process(context.Background(), "cust-1", "Budi", msg, s)
}

func TestDetectComplaintStartsTroubleshoot(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentComplaint)
	s := session.New()

	res := process(e, s, "internet saya mati dari pagi kak")

	assert.Equal(t, session.StateTroubleshoot, s.State)
	assert.Equal(t, "internet saya mati dari pagi kak", s.Data.InitialComplaint)
	assert.NotEmpty(t, res.Reply)
	assert.False(t, res.Stop)
}

func TestDetectProductAppendsPromo(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentProduct)
	s := session.New()

	res := process(e, s, "paket internet apa aja?")

	assert.Equal(t, session.StateProductInfo, s.State)
	assert.Contains(t, res.Reply, "PROMO SAAT INI")
}

func TestDetectThanksStaysPut(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentThanks)
	s := session.New()

	res := process(e, s, "oke makasih infonya")
	assert.Equal(t, session.StateDetect, s.State)
	assert.Equal(t, reply.Defaults().ThanksClosing, res.Reply)
}

func TestTroubleshootNotResolvedSendsForm(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentNotResolved)
	s := session.New()
	s.State = session.StateTroubleshoot

	res := process(e, s, "masih mati kak")

	assert.Equal(t, session.StateFormCollect, s.State)
	assert.Equal(t, reply.Defaults().ComplaintForm, res.Reply)
}

func TestTroubleshootResolvedClosesOut(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentResolved)
	s := session.New()
	s.State = session.StateTroubleshoot

	res := process(e, s, "sudah normal lagi kak")

	assert.Equal(t, session.StateDetect, s.State)
	assert.Equal(t, reply.Defaults().Resolved, res.Reply)
}

func TestFormCollectExtractionRunsValidationToConfirm(t *testing.T) {
	e, v, _ := newTestEngine(oracle.IntentFormData)
	s := session.New()
	s.State = session.StateFormCollect

	res := process(e, s, "ID: C650AD\nGangguan: internet mati dari pagi")

	require.Equal(t, []string{"C650AD"}, v.calls)
	assert.Equal(t, session.StateConfirm, s.State)
	assert.Equal(t, "C650AD", s.Data.ReferenceID)
	assert.Equal(t, "internet mati dari pagi", s.Data.Description)
	assert.Equal(t, "BUDI SANTOSO", s.Data.ValidatedName)
	assert.Contains(t, res.Reply, "BUDI SANTOSO")
	assert.Contains(t, res.Reply, "C650AD")
}

func TestFormCollectMissingIDAsksForIt(t *testing.T) {
	e, v, _ := newTestEngine(oracle.IntentFormData)
	s := session.New()
	s.State = session.StateFormCollect

	res := process(e, s, "internetnya mati total dari kemarin kak")

	assert.Empty(t, v.calls)
	assert.Equal(t, session.StateFormCollect, s.State)
	assert.Equal(t, reply.Defaults().AskMissingID, res.Reply)
}

func TestFormCollectTwoStepSubmission(t *testing.T) {
	e, v, _ := newTestEngine(oracle.IntentFormData)
	s := session.New()
	s.State = session.StateFormCollect

	res := process(e, s, "ID: C650AD")
	assert.Equal(t, session.StateFormCollect, s.State)
	assert.Equal(t, reply.Defaults().AskMissingDesc, res.Reply)

	res = process(e, s, "kendala: internet mati total dari kemarin")
	assert.Equal(t, session.StateConfirm, s.State)
	assert.Equal(t, []string{"C650AD"}, v.calls)
	assert.Contains(t, res.Reply, "internet mati total dari kemarin")
}

func TestFormCollectPlainDescriptionAfterID(t *testing.T) {
	e, v, _ := newTestEngine(oracle.IntentFormData)
	s := session.New()
	s.State = session.StateFormCollect

	res := process(e, s, "ID: C650AD")
	assert.Equal(t, session.StateFormCollect, s.State)
	assert.Equal(t, reply.Defaults().AskMissingDesc, res.Reply)

	// Unlabeled follow-up, exactly what AskMissingDesc invites.
	res = process(e, s, "internet mati sejak kemarin sore kak")
	assert.Equal(t, session.StateConfirm, s.State)
	assert.Equal(t, []string{"C650AD"}, v.calls)
	assert.Equal(t, "internet mati sejak kemarin sore kak", s.Data.Description)
	assert.Contains(t, res.Reply, "internet mati sejak kemarin sore kak")
}

func TestValidationNotFoundClearsIDAndRetries(t *testing.T) {
	e, v, _ := newTestEngine(oracle.IntentFormData)
	v.result = ticketing.ValidationResult{Valid: false}
	s := session.New()
	s.State = session.StateFormCollect

	res := process(e, s, "ID: WRONG1\nKendala: internet mati dari pagi")

	assert.Equal(t, session.StateFormCollect, s.State)
	assert.Empty(t, s.Data.ReferenceID)
	assert.Contains(t, res.Reply, "WRONG1")
	assert.Contains(t, res.Reply, "tidak ditemukan")
}

func TestConfirmYesSubmitsReportAndStops(t *testing.T) {
	e, _, r := newTestEngine(oracle.IntentOther)
	s := session.New()
	s.State = session.StateConfirm
	s.Data.CustomerName = "Budi"
	s.Data.Phone = "cust-1"
	s.Data.ReferenceID = "C650AD"
	s.Data.Description = "internet mati dari pagi"
	s.Data.ValidatedName = "BUDI SANTOSO"

	res := process(e, s, "ya benar")

	require.Len(t, r.reports, 1)
	report := r.reports[0]
	assert.Equal(t, "BUDI SANTOSO", report.CustomerName)
	assert.Equal(t, "cust-1", report.CustomerPhone)
	assert.Equal(t, "C650AD", report.CustomerReferencesNumber)
	assert.Equal(t, "internet mati dari pagi", report.Description)

	assert.Equal(t, session.StateEscalated, s.State)
	assert.True(t, s.Data.HasPendingReport)
	assert.True(t, res.Stop)
	assert.Empty(t, res.Reply)
}

func TestConfirmYesEscalatesEvenIfSubmissionFails(t *testing.T) {
	e, _, r := newTestEngine(oracle.IntentOther)
	r.result = ticketing.ReportResult{Success: false}
	s := session.New()
	s.State = session.StateConfirm
	s.Data.ReferenceID = "C650AD"
	s.Data.Description = "mati total"

	res := process(e, s, "iya")

	assert.Equal(t, session.StateEscalated, s.State)
	assert.True(t, res.Stop)
}

func TestConfirmNoClearsFormKeepsIdentity(t *testing.T) {
	e, _, r := newTestEngine(oracle.IntentOther)
	s := session.New()
	s.State = session.StateConfirm
	s.Data.CustomerName = "Budi"
	s.Data.InitialComplaint = "wifi lemot"
	s.Data.ReferenceID = "C650AD"
	s.Data.Description = "mati"

	res := process(e, s, "tidak, salah")

	assert.Empty(t, r.reports)
	assert.Equal(t, session.StateFormCollect, s.State)
	assert.Empty(t, s.Data.ReferenceID)
	assert.Equal(t, "Budi", s.Data.CustomerName)
	assert.Equal(t, "wifi lemot", s.Data.InitialComplaint)
	assert.Equal(t, reply.Defaults().FormReprompt, res.Reply)
}

func TestConfirmAmbiguousAsksAgain(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentOther)
	s := session.New()
	s.State = session.StateConfirm
	s.Data.ReferenceID = "C650AD"
	s.Data.Description = "mati"

	res := process(e, s, "hmm bentar kak saya cek dulu")

	assert.Equal(t, session.StateConfirm, s.State)
	assert.Equal(t, reply.Defaults().ConfirmClarify, res.Reply)
}

func TestEscalatedStatusInquiry(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentStatus)
	s := session.New()
	s.State = session.StateEscalated

	res := process(e, s, "gimana laporan saya?")

	assert.Equal(t, session.StateEscalated, s.State)
	assert.Equal(t, reply.Defaults().StatusInProgress, res.Reply)
}

func TestEscalatedReportRelatedComplaintStaysEscalated(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentComplaint)
	s := session.New()
	s.State = session.StateEscalated
	s.Data.HasPendingReport = true

	res := process(e, s, "internet masih mati nih")

	assert.Equal(t, session.StateEscalated, s.State)
	assert.Equal(t, reply.Defaults().ComplaintPending, res.Reply)
}

func TestEscalatedNewIssueReentersDetection(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentComplaint)
	s := session.New()
	s.State = session.StateEscalated
	s.Data.CustomerName = "Budi"
	s.Data.Phone = "cust-1"
	s.Data.HasPendingReport = true
	s.Data.ReferenceID = "C650AD"

	// Complaint intent but no report vocabulary: a distinct new issue.
	res := process(e, s, "tv transvision channelnya hilang semua")

	assert.Equal(t, session.StateTroubleshoot, s.State)
	assert.Equal(t, "Budi", s.Data.CustomerName)
	assert.Empty(t, s.Data.ReferenceID)
	assert.False(t, s.Data.HasPendingReport)
	assert.NotEmpty(t, res.Reply)
}

func TestInvalidTransitionsAreRejected(t *testing.T) {
	// Unlisted (state, target) pairs keep the current state.
	cases := []struct {
		from, to session.State
	}{
		{session.StateFormCollect, session.StateProductInfo},
		{session.StateValidating, session.StateEscalated},
		{session.StateConfirm, session.StateDetect},
		{session.StateDetect, session.StateEscalated},
	}
	e, _, _ := newTestEngine(oracle.IntentOther)
	for _, c := range cases {
		s := session.New()
		s.State = c.from
		assert.False(t, e.advance(s, c.to), "%s → %s", c.from, c.to)
		assert.Equal(t, c.from, s.State)
	}
}

func TestProcessRepairsUnknownState(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentGreeting)
	s := session.New()
	s.State = session.State("corrupted")

	process(e, s, "halo")
	assert.Equal(t, session.StateDetect, s.State)
}

func TestProcessRecordsIdentity(t *testing.T) {
	e, _, _ := newTestEngine(oracle.IntentGreeting)
	s := session.New()

	e.Process(context.Background(), "0812345", "Ani", "halo", s)
	assert.Equal(t, "Ani", s.Data.CustomerName)
	assert.Equal(t, "0812345", s.Data.Phone)
}
