package crmapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	defaultPatientLimit = 50
	minSearchRunes      = 2
	anonymousOrgID      = "00000000-0000-0000-0000-000000000000"
)

// UpsertPatient creates or updates a patient record.
func (c *Client) UpsertPatient(ctx context.Context, p Patient) (*Patient, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" && strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("crmapi: upsert patient: %w: name is required", ErrInvalidInput)
	}
	if p.OrgID == "" {
		p.OrgID = anonymousOrgID
	}
	raw, err := c.do(ctx, "patients.upsert", http.MethodPost, c.URL("/patient/upsert"), p, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: upsert patient: %w", err)
	}
	saved := p
	if err := decodeObject(raw, &saved); err != nil {
		return nil, fmt.Errorf("crmapi: upsert patient: %w", err)
	}
	return &saved, nil
}

// ListPatients returns up to limit patients (50 when limit <= 0).
func (c *Client) ListPatients(ctx context.Context, limit int) ([]Patient, error) {
	if limit <= 0 {
		limit = defaultPatientLimit
	}
	path := "/patients" + query(map[string]string{"limit": strconv.Itoa(limit)})
	raw, err := c.do(ctx, "patients.list", http.MethodGet, c.URL(path), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: list patients: %w", err)
	}
	patients, err := DecodeList[Patient](raw)
	if err != nil {
		return nil, fmt.Errorf("crmapi: list patients: %w", err)
	}
	return patients, nil
}

// SearchPatients looks patients up by name. Queries shorter than two
// characters return no results without calling the backend.
func (c *Client) SearchPatients(ctx context.Context, q string) ([]Patient, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minSearchRunes {
		return []Patient{}, nil
	}
	path := "/patients/search" + query(map[string]string{"q": q})
	raw, err := c.do(ctx, "patients.search", http.MethodGet, c.URL(path), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: search patients: %w", err)
	}
	patients, err := DecodeList[Patient](raw)
	if err != nil {
		return nil, fmt.Errorf("crmapi: search patients: %w", err)
	}
	return patients, nil
}
