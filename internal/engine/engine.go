// Package engine is the dialogue state machine. Each coalesced customer
// message is classified, routed through the current state's handler, and
// checked against the transition table before the new state is accepted.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/intynet/neti/internal/oracle"
	"github.com/intynet/neti/internal/reply"
	"github.com/intynet/neti/internal/session"
	"github.com/intynet/neti/internal/ticketing"
)

// Oracle classifies intents and generates persona replies.
type Oracle interface {
	Classify(ctx context.Context, message string, state session.State, context string) oracle.Intent
	Generate(ctx context.Context, instruction, message, context string, includeKB bool) string
}

// Validator looks up a customer reference id.
type Validator interface {
	Validate(ctx context.Context, referenceID string) ticketing.ValidationResult
}

// Reporter submits escalation reports.
type Reporter interface {
	CreateReport(ctx context.Context, r ticketing.Report) ticketing.ReportResult
}

// Result is the outcome of processing one message. Stop is set exactly on
// the confirm-to-escalated transition: the caller must tag the room and
// suppress the reply so the human queue takes over silently.
type Result struct {
	Reply   string
	Session *session.Session
	Stop    bool
}

// transitions lists the legal state moves. Anything else is rejected and
// the engine stays put.
var transitions = map[session.State]map[session.State]bool{
	session.StateDetect: {
		session.StateProductInfo:  true,
		session.StateTroubleshoot: true,
		session.StateDetect:       true,
	},
	session.StateProductInfo: {
		session.StateTroubleshoot: true,
		session.StateDetect:       true,
		session.StateProductInfo:  true,
	},
	session.StateTroubleshoot: {
		session.StateFormCollect:  true,
		session.StateDetect:       true,
		session.StateProductInfo:  true,
		session.StateTroubleshoot: true,
	},
	session.StateFormCollect: {
		session.StateValidating:  true,
		session.StateFormCollect: true,
	},
	session.StateValidating: {
		session.StateConfirm:     true,
		session.StateFormCollect: true,
		session.StateValidating:  true,
	},
	session.StateConfirm: {
		session.StateEscalated:   true,
		session.StateFormCollect: true,
		session.StateConfirm:     true,
	},
	session.StateEscalated: {
		session.StateEscalated: true,
		session.StateDetect:    true,
	},
}

// Engine drives the conversation state machine.
type Engine struct {
	oracle    Oracle
	validator Validator
	reporter  Reporter
	tpl       reply.Templates
}

// New creates an Engine.
func New(o Oracle, v Validator, r Reporter, tpl reply.Templates) *Engine {
	return &Engine{oracle: o, validator: v, reporter: r, tpl: tpl}
}

// advance moves the session to next if the transition table allows it.
// An illegal move is logged and the session stays in its current state.
func (e *Engine) advance(s *session.Session, next session.State) bool {
	if !transitions[s.State][next] {
		log.Printf("[Engine] ⚠️ invalid transition %s → %s, staying in %s", s.State, next, s.State)
		return false
	}
	s.State = next
	return true
}

// Process runs one customer message through the state machine. The session
// is mutated in place and also returned inside the result.
func (e *Engine) Process(ctx context.Context, customerID, customerName, message string, s *session.Session) Result {
	if !s.State.Valid() {
		s.State = session.StateDetect
	}
	if customerName != "" {
		s.Data.CustomerName = customerName
	}
	if customerID != "" && s.Data.Phone == "" {
		s.Data.Phone = customerID
	}

	log.Printf("[Engine] 📥 state=%s msg=%.40q", s.State, message)

	var res Result
	switch s.State {
	case session.StateFormCollect:
		res = e.handleFormCollect(ctx, message, s)
	case session.StateValidating:
		res = e.handleValidating(ctx, s)
	case session.StateConfirm:
		res = e.handleConfirm(ctx, customerID, message, s)
	default:
		intent := e.oracle.Classify(ctx, message, s.State, e.contextString(s))
		res = e.handleClassified(ctx, intent, message, s)
	}

	res.Session = s
	log.Printf("[Engine] 📤 state=%s stop=%v", s.State, res.Stop)
	return res
}

// contextString summarizes collected data for the classifier prompt.
func (e *Engine) contextString(s *session.Session) string {
	var parts []string
	if c := s.Data.InitialComplaint; c != "" {
		parts = append(parts, "Keluhan awal: "+truncate(c, 50))
	}
	if s.Data.HasPendingReport {
		parts = append(parts, "Ada laporan pending")
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

func (e *Engine) handleClassified(ctx context.Context, intent oracle.Intent, message string, s *session.Session) Result {
	switch s.State {
	case session.StateProductInfo:
		return e.handleProductInfo(ctx, intent, message, s)
	case session.StateTroubleshoot:
		return e.handleTroubleshoot(ctx, intent, message, s)
	case session.StateEscalated:
		return e.handleEscalated(ctx, intent, message, s)
	default:
		return e.handleDetect(ctx, intent, message, s)
	}
}

func (e *Engine) handleDetect(ctx context.Context, intent oracle.Intent, message string, s *session.Session) Result {
	switch intent {
	case oracle.IntentProduct:
		text := e.oracle.Generate(ctx,
			"Customer menanyakan produk/harga.\nBerikan info paket dengan jelas dan singkat.\nTanyakan apakah mau dibantu cek coverage area.",
			message, "", true)
		e.advance(s, session.StateProductInfo)
		return Result{Reply: text + "\n\n" + e.tpl.Promo}

	case oracle.IntentComplaint:
		return e.startTroubleshoot(ctx, message, s)

	case oracle.IntentGreeting:
		text := e.oracle.Generate(ctx,
			"Customer menyapa. Balas ramah, perkenalkan diri sebagai Neti dari Intynet, tanya ada yang bisa dibantu.",
			message, "", false)
		e.advance(s, session.StateDetect)
		return Result{Reply: text}

	case oracle.IntentThanks:
		e.advance(s, session.StateDetect)
		return Result{Reply: e.tpl.ThanksClosing}

	default:
		text := e.oracle.Generate(ctx,
			"Jawab pertanyaan customer. Jika di luar knowledge base, bilang akan dibantu tim terkait.",
			message, "", true)
		e.advance(s, session.StateDetect)
		return Result{Reply: text}
	}
}

// startTroubleshoot records the complaint and emits the troubleshooting
// steps. Shared by every state that can switch into the complaint flow.
func (e *Engine) startTroubleshoot(ctx context.Context, message string, s *session.Session) Result {
	s.Data.InitialComplaint = truncate(message, 200)
	text := e.oracle.Generate(ctx,
		"Customer melaporkan gangguan internet.\nTunjukkan empati singkat, lalu berikan langkah troubleshooting:\n\n"+
			e.tpl.TroubleshootSteps+
			"\n\nAkhiri dengan tanya \"Mau dicoba dulu langkah-langkahnya kak?\"",
		message, "", false)
	e.advance(s, session.StateTroubleshoot)
	return Result{Reply: text}
}

func (e *Engine) handleProductInfo(ctx context.Context, intent oracle.Intent, message string, s *session.Session) Result {
	switch intent {
	case oracle.IntentComplaint:
		return e.startTroubleshoot(ctx, message, s)

	case oracle.IntentThanks:
		e.advance(s, session.StateDetect)
		return Result{Reply: e.tpl.ThanksClosing}

	default:
		text := e.oracle.Generate(ctx,
			"Lanjutkan menjawab pertanyaan produk/harga. Tetap helpful dan informatif.",
			message, "", true)
		e.advance(s, session.StateProductInfo)
		return Result{Reply: text}
	}
}

func (e *Engine) handleTroubleshoot(ctx context.Context, intent oracle.Intent, message string, s *session.Session) Result {
	switch intent {
	case oracle.IntentNotResolved:
		e.advance(s, session.StateFormCollect)
		return Result{Reply: e.tpl.ComplaintForm}

	case oracle.IntentResolved:
		e.advance(s, session.StateDetect)
		return Result{Reply: e.tpl.Resolved}

	case oracle.IntentProduct:
		text := e.oracle.Generate(ctx, "Customer tanya produk. Jawab pertanyaannya.", message, "", true)
		e.advance(s, session.StateProductInfo)
		return Result{Reply: text + "\n\n" + e.tpl.Promo}

	case oracle.IntentComplaint:
		text := e.oracle.Generate(ctx,
			"Customer memberikan detail tambahan masalah.\nBerikan troubleshooting yang relevan:\n"+
				e.tpl.TroubleshootSteps+"\nTanya apakah mau dicoba.",
			message, "Keluhan awal: "+s.Data.InitialComplaint, false)
		e.advance(s, session.StateTroubleshoot)
		return Result{Reply: text}

	case oracle.IntentThanks:
		e.advance(s, session.StateTroubleshoot)
		return Result{Reply: e.tpl.TroubleshootAck}

	default:
		e.advance(s, session.StateTroubleshoot)
		return Result{Reply: e.tpl.TroubleshootClarif}
	}
}

func (e *Engine) handleFormCollect(ctx context.Context, message string, s *session.Session) Result {
	refID, desc := extractForm(message)
	if refID != "" && s.Data.ReferenceID == "" {
		s.Data.ReferenceID = refID
	}
	if desc != "" {
		s.Data.Description = desc
	} else if refID == "" && s.Data.ReferenceID != "" && s.Data.Description == "" {
		// The id is already collected and this message carries no id token,
		// so a plain reply is the complaint itself.
		if text := strings.TrimSpace(message); len(text) >= 8 {
			s.Data.Description = text
		}
	}

	switch {
	case s.Data.ReferenceID == "":
		e.advance(s, session.StateFormCollect)
		return Result{Reply: e.tpl.AskMissingID}
	case s.Data.Description == "":
		e.advance(s, session.StateFormCollect)
		return Result{Reply: e.tpl.AskMissingDesc}
	}

	s.Data.FormSubmitted = truncate(message, 500)
	if !e.advance(s, session.StateValidating) {
		return Result{Reply: e.tpl.AskMissingID}
	}
	return e.runValidation(ctx, s)
}

// runValidation checks the collected reference id against the backend and
// either asks for confirmation or clears the id and asks to retry.
func (e *Engine) runValidation(ctx context.Context, s *session.Session) Result {
	refID := s.Data.ReferenceID
	res := e.validator.Validate(ctx, refID)

	if !res.Valid {
		s.Data.ReferenceID = ""
		s.Data.ValidatedName = ""
		s.Data.ValidationSource = ""
		e.advance(s, session.StateFormCollect)
		return Result{Reply: fmt.Sprintf(e.tpl.RetryID, refID)}
	}

	s.Data.ValidatedName = res.CustomerName
	s.Data.ValidationSource = res.Source
	e.advance(s, session.StateConfirm)

	name := res.CustomerName
	if name == "" {
		name = s.Data.CustomerName
	}
	return Result{Reply: fmt.Sprintf(e.tpl.ConfirmSummary, name, refID, s.Data.Description)}
}

// handleValidating covers the rare case of a message landing while the
// session rested in validating. Re-running the lookup is idempotent.
func (e *Engine) handleValidating(ctx context.Context, s *session.Session) Result {
	if s.Data.ReferenceID == "" {
		e.advance(s, session.StateFormCollect)
		return Result{Reply: e.tpl.AskMissingID}
	}
	return e.runValidation(ctx, s)
}

func (e *Engine) handleConfirm(ctx context.Context, customerID, message string, s *session.Session) Result {
	switch parseConfirmation(message) {
	case confirmYes:
		e.submitReport(ctx, customerID, s)
		s.Data.HasPendingReport = true
		e.advance(s, session.StateEscalated)
		log.Println("[Engine] 🛑 report confirmed, escalating to human")
		return Result{Stop: true}

	case confirmNo:
		s.ClearForm()
		e.advance(s, session.StateFormCollect)
		return Result{Reply: e.tpl.FormReprompt}

	default:
		e.advance(s, session.StateConfirm)
		return Result{Reply: e.tpl.ConfirmClarify}
	}
}

// submitReport pushes the report to the ticketing backend. Best effort: a
// failed submission is logged, the escalation still proceeds so a human
// picks up the conversation.
func (e *Engine) submitReport(ctx context.Context, customerID string, s *session.Session) {
	name := s.Data.ValidatedName
	if name == "" {
		name = s.Data.CustomerName
	}
	res := e.reporter.CreateReport(ctx, ticketing.Report{
		CustomerName:             name,
		CustomerPhone:            s.Data.Phone,
		Description:              s.Data.Description,
		CustomerReferencesNumber: s.Data.ReferenceID,
		ProblemTime:              time.Now().Format("2006-01-02 15:04:05"),
		QiscusSessionID:          customerID,
	})
	if !res.Success {
		log.Printf("[Engine] ❌ report submission failed for %s", customerID)
	}
}

func (e *Engine) handleEscalated(ctx context.Context, intent oracle.Intent, message string, s *session.Session) Result {
	switch intent {
	case oracle.IntentStatus:
		e.advance(s, session.StateEscalated)
		return Result{Reply: e.tpl.StatusInProgress}

	case oracle.IntentComplaint:
		if IsReportRelated(message) {
			e.advance(s, session.StateEscalated)
			return Result{Reply: e.tpl.ComplaintPending}
		}
		// A genuinely new issue re-opens the conversation.
		s.ResetKeepIdentity()
		log.Println("[Engine] 🔄 new issue while escalated, re-entering detection")
		return e.handleDetect(ctx, intent, message, s)

	case oracle.IntentProduct:
		text := e.oracle.Generate(ctx, "Customer tanya produk. Jawab pertanyaannya.", message, "", true)
		e.advance(s, session.StateEscalated)
		return Result{Reply: text + "\n\n" + e.tpl.Promo}

	case oracle.IntentThanks:
		e.advance(s, session.StateEscalated)
		return Result{Reply: e.tpl.ThanksClosing}

	default:
		text := e.oracle.Generate(ctx, "Jawab pertanyaan customer. Tetap ramah.", message, "", true)
		e.advance(s, session.StateEscalated)
		return Result{Reply: text}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
