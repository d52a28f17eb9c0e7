package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/xavierca1/cohort-nurture/internal/config"
	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/pkg/logger"
)

const (
	TagPaymentComplete   = "payment_complete"
	TagAutomationStopped = "automation_stopped"

	cohortName = "Consulting Cohort 101"
)

var ErrNotConfigured = errors.New("kommo: api token not configured")

// APIError is a response outside the expected statuses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type Client struct {
	apiToken string
	baseURL  string
	http     *http.Client
	log      zerolog.Logger
}

func NewClient(cfg config.KommoConfig) *Client {
	return &Client{
		apiToken: cfg.APIToken,
		baseURL:  cfg.BaseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      logger.Component("kommo"),
	}
}

// SyncLeadEvent records a conversion or a dropped lead as a tagged deal.
func (c *Client) SyncLeadEvent(ctx context.Context, evt entity.LeadEvent, tag string) error {
	_, err := c.CreateLead(ctx, CreateLeadInput{
		Name:  evt.Name,
		Email: evt.Email,
		Phone: evt.Phone,
		Tags:  []string{tag},
	})
	return err
}

func (c *Client) CreateLead(ctx context.Context, input CreateLeadInput) (int, error) {
	if c.apiToken == "" {
		return 0, ErrNotConfigured
	}

	contactID, err := c.findOrCreateContact(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("kommo contact: %w", err)
	}

	tags := make([]map[string]any, 0, len(input.Tags))
	for _, t := range input.Tags {
		tags = append(tags, map[string]any{"name": t})
	}

	leadData := []map[string]any{
		{
			"name": fmt.Sprintf("%s - %s", input.Name, cohortName),
			"_embedded": map[string]any{
				"tags":     tags,
				"contacts": []map[string]any{{"id": contactID}},
			},
		},
	}

	var result embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/leads", leadData, &result, http.StatusOK); err != nil {
		return 0, fmt.Errorf("kommo create lead: %w", err)
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, errors.New("kommo create lead: empty response")
	}

	leadID := result.Embedded.Leads[0].ID
	c.log.Info().Int("kommo_lead", leadID).Str(logger.EMAIL, logger.RedactEmail(input.Email)).Strs("tags", input.Tags).Msg("crm lead created")
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, input CreateLeadInput) (int, error) {
	id, err := c.findContact(ctx, input.Email)
	if err != nil {
		return 0, err
	}
	if id > 0 {
		return id, nil
	}
	return c.createContact(ctx, input)
}

// findContact returns 0 when no contact matches.
func (c *Client) findContact(ctx context.Context, query string) (int, error) {
	var result embeddedIDs
	path := "/contacts?query=" + url.QueryEscape(query)
	err := c.do(ctx, http.MethodGet, path, nil, &result, http.StatusOK, http.StatusNoContent)
	if err != nil {
		return 0, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, nil
	}
	return result.Embedded.Contacts[0].ID, nil
}

func (c *Client) createContact(ctx context.Context, input CreateLeadInput) (int, error) {
	contactData := []map[string]any{
		{
			"name": input.Name,
			"custom_fields_values": []map[string]any{
				{
					"field_code": "PHONE",
					"values":     []map[string]any{{"value": input.Phone, "enum_code": "WORK"}},
				},
				{
					"field_code": "EMAIL",
					"values":     []map[string]any{{"value": input.Email, "enum_code": "WORK"}},
				},
			},
		},
	}

	var result embeddedIDs
	if err := c.do(ctx, http.MethodPost, "/contacts", contactData, &result, http.StatusOK, http.StatusCreated); err != nil {
		return 0, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, errors.New("contact id missing from response")
	}
	return result.Embedded.Contacts[0].ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, okStatus ...int) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	ok := false
	for _, s := range okStatus {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
