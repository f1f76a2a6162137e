// Package ticketing talks to the incoming-reports backend. It validates
// customer reference ids against the ticketing directory (with an Intynet
// fallback lookup) and submits escalation reports. Without a configured
// base URL it runs in mock mode and simulates success.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// ValidationResult is the outcome of a customer id lookup.
type ValidationResult struct {
	Valid              bool
	CustomerName       string
	ReferencesNumber   string
	Source             string // "ticketing", "intynet", "mock"
	CreatedInTicketing bool
	Customer           map[string]any
}

// Report is one escalation submitted to the backend.
type Report struct {
	CustomerName             string `json:"customer_name"`
	CustomerPhone            string `json:"customer_phone"`
	Description              string `json:"description"`
	CustomerReferencesNumber string `json:"customer_references_number,omitempty"`
	ProblemTime              string `json:"problem_time,omitempty"`
	QiscusSessionID          string `json:"qiscus_session_id,omitempty"`
}

// ReportResult is the outcome of a report submission.
type ReportResult struct {
	Success bool
	ID      string
	Mode    string // "production" or "mock"
}

// Client is the ticketing backend client.
type Client struct {
	baseURL string
	apiKey  string

	searchClient *http.Client
	submitClient *http.Client
}

// NewClient creates a ticketing client. An empty baseURL enables mock mode.
func NewClient(baseURL, apiKey string) *Client {
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		searchClient: &http.Client{Timeout: 15 * time.Second},
		submitClient: &http.Client{Timeout: 30 * time.Second},
	}
	if c.Enabled() {
		log.Println("[Ticketing] ✅ API enabled")
	} else {
		log.Println("[Ticketing] ⚠️ API not configured (mock mode)")
	}
	return c
}

// Enabled reports whether a real backend is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

func (c *Client) headers(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

type searchResponse struct {
	Data []map[string]any `json:"data"`
}

func (c *Client) search(ctx context.Context, path, query string) (map[string]any, bool, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, url.Values{"search": {query}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	c.headers(req)

	resp, err := c.searchClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("ticketing: search %s status %d", path, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, err
	}
	if len(parsed.Data) == 0 {
		return nil, false, nil
	}
	return parsed.Data[0], true, nil
}

// createCustomer syncs an Intynet customer record into the ticketing
// directory. Best effort; the customer is valid either way.
func (c *Client) createCustomer(ctx context.Context, customer map[string]any) bool {
	payload := map[string]any{
		"references_number": firstOf(customer, "references_number", "id"),
		"type":              orDefault(customer, "type", "personal"),
		"name":              orDefault(customer, "name", "Unknown"),
		"email":             customer["email"],
		"phone_number":      firstOf(customer, "phone", "phone_number"),
		"site_city":         orDefault(customer, "city", "Balikpapan"),
		"site_name":         firstOf(customer, "site_name", "name"),
		"site_address":      firstOf(customer, "address", "site_address"),
		"profile_name":      orDefault(customer, "profile_name", "Default"),
	}
	for k, v := range payload {
		if v == nil {
			delete(payload, k)
		}
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/customers", bytes.NewReader(body))
	if err != nil {
		return false
	}
	c.headers(req)

	resp, err := c.submitClient.Do(req)
	if err != nil {
		log.Printf("[Ticketing] ❌ create customer failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("[Ticketing] ❌ create customer status %d", resp.StatusCode)
		return false
	}
	log.Println("[Ticketing] ✅ customer synced from Intynet")
	return true
}

// Validate looks up a customer reference id. Order: ticketing directory,
// then the Intynet directory (syncing a hit back into ticketing). Lookup
// failures are treated as not found.
func (c *Client) Validate(ctx context.Context, referenceID string) ValidationResult {
	if !c.Enabled() {
		log.Printf("[Ticketing] 📋 MOCK: would validate %s", referenceID)
		return ValidationResult{
			Valid:            true,
			CustomerName:     "Mock Customer",
			ReferencesNumber: referenceID,
			Source:           "mock",
		}
	}

	log.Printf("[Ticketing] 🔍 validating customer id %s", referenceID)

	if customer, found, err := c.search(ctx, "/customers/search", referenceID); err != nil {
		log.Printf("[Ticketing] ❌ ticketing search failed: %v", err)
	} else if found {
		return ValidationResult{
			Valid:            true,
			CustomerName:     stringOf(customer, "name"),
			ReferencesNumber: stringOf(customer, "references_number"),
			Source:           "ticketing",
			Customer:         customer,
		}
	}

	customer, found, err := c.search(ctx, "/intynet/customers/search", referenceID)
	if err != nil {
		log.Printf("[Ticketing] ❌ intynet search failed: %v", err)
		return ValidationResult{Valid: false}
	}
	if !found {
		log.Printf("[Ticketing] ❌ customer id not found anywhere: %s", referenceID)
		return ValidationResult{Valid: false}
	}

	created := c.createCustomer(ctx, customer)
	return ValidationResult{
		Valid:              true,
		CustomerName:       stringOf(customer, "name"),
		ReferencesNumber:   stringOf(customer, "references_number"),
		Source:             "intynet",
		CreatedInTicketing: created,
		Customer:           customer,
	}
}

type reportResponse struct {
	Data struct {
		ID any `json:"id"`
	} `json:"data"`
}

// CreateReport submits an incoming report. In mock mode a synthetic report
// id is returned.
func (c *Client) CreateReport(ctx context.Context, r Report) ReportResult {
	if !c.Enabled() {
		id := "RPT" + time.Now().Format("20060102150405")
		log.Printf("[Ticketing] 📋 MOCK: would create report %s for %s", id, r.CustomerName)
		return ReportResult{Success: true, ID: id, Mode: "mock"}
	}

	body, err := json.Marshal(r)
	if err != nil {
		return ReportResult{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/incoming-reports", bytes.NewReader(body))
	if err != nil {
		return ReportResult{}
	}
	c.headers(req)

	resp, err := c.submitClient.Do(req)
	if err != nil {
		log.Printf("[Ticketing] ❌ create report failed: %v", err)
		return ReportResult{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("[Ticketing] ❌ create report status %d", resp.StatusCode)
		return ReportResult{}
	}

	var parsed reportResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("[Ticketing] ⚠️ report created but response unreadable: %v", err)
		return ReportResult{Success: true, Mode: "production"}
	}

	id := fmt.Sprint(parsed.Data.ID)
	log.Printf("[Ticketing] ✅ incoming report created: %s", id)
	return ReportResult{Success: true, ID: id, Mode: "production"}
}

func stringOf(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func orDefault(m map[string]any, key string, def any) any {
	if v := firstOf(m, key); v != nil {
		return v
	}
	return def
}
