// Package session implements conversation session state with Redis
// persistence and sliding TTL expiry.
package session

import "encoding/json"

// State is a ConversationEngine dialogue state.
type State string

const (
	StateDetect       State = "detect"       // initial / topic-neutral
	StateProductInfo  State = "product_info" // answering product questions
	StateTroubleshoot State = "troubleshoot" // troubleshooting steps sent
	StateFormCollect  State = "form_collect" // waiting for report form data
	StateValidating   State = "validating"   // customer id lookup in flight
	StateConfirm      State = "confirm"      // waiting for yes/no confirmation
	StateEscalated    State = "escalated"    // human takeover, terminal until reset
)

var validStates = map[State]bool{
	StateDetect:       true,
	StateProductInfo:  true,
	StateTroubleshoot: true,
	StateFormCollect:  true,
	StateValidating:   true,
	StateConfirm:      true,
	StateEscalated:    true,
}

// Valid reports whether s is a member of the declared state set.
func (s State) Valid() bool { return validStates[s] }

// CollectedData is the per-conversation data bag accumulated across turns.
// Known fields are explicit; unknown JSON keys round-trip through Extra so
// readers stay forward-compatible.
type CollectedData struct {
	CustomerName     string
	Phone            string
	InitialComplaint string
	ReferenceID      string
	Description      string
	ValidatedName    string
	ValidationSource string
	HasPendingReport bool
	FormSubmitted    string

	Extra map[string]any
}

const (
	keyCustomerName     = "customer_name"
	keyPhone            = "phone"
	keyInitialComplaint = "initial_complaint"
	keyReferenceID      = "reference_id"
	keyDescription      = "description"
	keyValidatedName    = "validated_name"
	keyValidationSource = "validation_source"
	keyHasPendingReport = "has_pending_report"
	keyFormSubmitted    = "form_submitted"
)

// MarshalJSON flattens known fields and Extra into a single object.
func (d CollectedData) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Extra)+9)
	for k, v := range d.Extra {
		m[k] = v
	}
	if d.CustomerName != "" {
		m[keyCustomerName] = d.CustomerName
	}
	if d.Phone != "" {
		m[keyPhone] = d.Phone
	}
	if d.InitialComplaint != "" {
		m[keyInitialComplaint] = d.InitialComplaint
	}
	if d.ReferenceID != "" {
		m[keyReferenceID] = d.ReferenceID
	}
	if d.Description != "" {
		m[keyDescription] = d.Description
	}
	if d.ValidatedName != "" {
		m[keyValidatedName] = d.ValidatedName
	}
	if d.ValidationSource != "" {
		m[keyValidationSource] = d.ValidationSource
	}
	if d.HasPendingReport {
		m[keyHasPendingReport] = true
	}
	if d.FormSubmitted != "" {
		m[keyFormSubmitted] = d.FormSubmitted
	}
	return json.Marshal(m)
}

// UnmarshalJSON extracts known fields and keeps the rest in Extra.
func (d *CollectedData) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = CollectedData{}
	for k, v := range m {
		switch k {
		case keyCustomerName:
			d.CustomerName, _ = v.(string)
		case keyPhone:
			d.Phone, _ = v.(string)
		case keyInitialComplaint:
			d.InitialComplaint, _ = v.(string)
		case keyReferenceID:
			d.ReferenceID, _ = v.(string)
		case keyDescription:
			d.Description, _ = v.(string)
		case keyValidatedName:
			d.ValidatedName, _ = v.(string)
		case keyValidationSource:
			d.ValidationSource, _ = v.(string)
		case keyHasPendingReport:
			d.HasPendingReport, _ = v.(bool)
		case keyFormSubmitted:
			d.FormSubmitted, _ = v.(string)
		default:
			if d.Extra == nil {
				d.Extra = make(map[string]any)
			}
			d.Extra[k] = v
		}
	}
	return nil
}

// Session is the per-customer conversation record.
type Session struct {
	State        State         `json:"state"`
	Data         CollectedData `json:"collected_data"`
	MessageCount int           `json:"message_count"`
}

// New returns a fresh session in the default state.
func New() *Session {
	return &Session{State: StateDetect}
}

// Reset returns the session to its default state, discarding all data.
func (s *Session) Reset() {
	*s = Session{State: StateDetect}
}

// ResetKeepIdentity clears collected data except customer identity fields
// and re-enters the detection flow.
func (s *Session) ResetKeepIdentity() {
	name, phone := s.Data.CustomerName, s.Data.Phone
	s.State = StateDetect
	s.Data = CollectedData{CustomerName: name, Phone: phone}
}

// ClearForm drops report form fields while keeping customer identity and
// the initial complaint context.
func (s *Session) ClearForm() {
	s.Data.ReferenceID = ""
	s.Data.Description = ""
	s.Data.ValidatedName = ""
	s.Data.ValidationSource = ""
	s.Data.FormSubmitted = ""
}
