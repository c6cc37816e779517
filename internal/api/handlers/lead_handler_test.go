package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/AmityBot/internal/core/crm"
	"github.com/markdave123-py/AmityBot/internal/models"
)

func leadRouter() (http.Handler, *crm.MemoryStore) {
	store := crm.NewMemoryStore(crm.SeedLeads())
	h := NewLeadHandler(store, quietLogger())
	r := chi.NewRouter()
	r.Get("/leads", h.ListLeads)
	r.Get("/leads/{id}", h.GetLead)
	r.Patch("/leads/{id}", h.UpdateLead)
	return r, store
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetLead(t *testing.T) {
	h, _ := leadRouter()

	rec := get(h, "/leads/123")
	require.Equal(t, http.StatusOK, rec.Code)
	var lead models.LeadRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	assert.Equal(t, "123", lead.ID)
	assert.NotEmpty(t, lead.Name)

	rec = get(h, "/leads/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No lead found with ID: 999")
}

func TestListLeads(t *testing.T) {
	h, store := leadRouter()
	first, err := store.GetLead(t.Context(), "123")
	require.NoError(t, err)

	rec := get(h, "/leads?status="+first.Status)
	require.Equal(t, http.StatusOK, rec.Code)
	var leads []models.LeadRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	assert.NotEmpty(t, leads)
	for _, l := range leads {
		assert.True(t, strings.EqualFold(first.Status, l.Status))
	}

	rec = get(h, "/leads?name=nobody-by-this-name")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = get(h, "/leads")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateLead(t *testing.T) {
	h, store := leadRouter()
	before, err := store.GetLead(t.Context(), "456")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/leads/456", strings.NewReader(`{"status":"Enrolled","notes":"Paid deposit"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got updateLeadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, before.Status, got.OldStatus)
	assert.Equal(t, "Enrolled", got.Status)

	after, err := store.GetLead(t.Context(), "456")
	require.NoError(t, err)
	assert.Equal(t, "Enrolled", after.Status)
	assert.Contains(t, after.Notes, "Paid deposit")

	req = httptest.NewRequest(http.MethodPatch, "/leads/456", strings.NewReader(`{"status":"  "}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/leads/000", strings.NewReader(`{"status":"Lost"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
