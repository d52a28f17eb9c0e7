package kommo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/cohort-nurture/internal/config"
	"github.com/xavierca1/cohort-nurture/internal/entity"
)

func TestSyncLeadEventCreatesContactAndLead(t *testing.T) {
	var leadBody []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/contacts":
			assert.Equal(t, "ana@example.com", r.URL.Query().Get("query"))
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/contacts":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"_embedded":{"contacts":[{"id":77}]}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/leads":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&leadBody))
			w.Write([]byte(`{"_embedded":{"leads":[{"id":901}]}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(config.KommoConfig{APIToken: "token-123", BaseURL: srv.URL})
	err := c.SyncLeadEvent(context.Background(), entity.LeadEvent{
		Type:  entity.EventLeadCompleted,
		Name:  "Ana",
		Email: "ana@example.com",
		Phone: "+5511999999999",
	}, TagPaymentComplete)
	require.NoError(t, err)

	require.Len(t, leadBody, 1)
	assert.Equal(t, "Ana - Consulting Cohort 101", leadBody[0]["name"])
	embedded := leadBody[0]["_embedded"].(map[string]any)
	tags := embedded["tags"].([]any)
	assert.Equal(t, "payment_complete", tags[0].(map[string]any)["name"])
	contacts := embedded["contacts"].([]any)
	assert.EqualValues(t, 77, contacts[0].(map[string]any)["id"])
}

func TestCreateLeadReusesContact(t *testing.T) {
	createdContact := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contacts":
			if r.Method == http.MethodPost {
				createdContact = true
			}
			w.Write([]byte(`{"_embedded":{"contacts":[{"id":12}]}}`))
		case "/leads":
			w.Write([]byte(`{"_embedded":{"leads":[{"id":5}]}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(config.KommoConfig{APIToken: "t", BaseURL: srv.URL})
	id, err := c.CreateLead(context.Background(), CreateLeadInput{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 5, id)
	assert.False(t, createdContact)
}

func TestCreateLeadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/contacts" {
			w.Write([]byte(`{"_embedded":{"contacts":[{"id":12}]}}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := NewClient(config.KommoConfig{APIToken: "t", BaseURL: srv.URL})
	_, err := c.CreateLead(context.Background(), CreateLeadInput{Name: "Ana", Email: "ana@example.com"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, apiErr.Temporary())
}

func TestAPIErrorTemporary(t *testing.T) {
	for code, want := range map[int]bool{
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
	} {
		assert.Equal(t, want, (&APIError{StatusCode: code}).Temporary(), code)
	}
}

func TestCreateLeadNotConfigured(t *testing.T) {
	c := NewClient(config.KommoConfig{})
	_, err := c.CreateLead(context.Background(), CreateLeadInput{Name: "Ana"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
