package crmapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ListProcedures returns the clinic's procedure catalog.
func (c *Client) ListProcedures(ctx context.Context) ([]Procedure, error) {
	raw, err := c.do(ctx, "procedures.list", http.MethodGet, c.URL("/procedures"), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: list procedures: %w", err)
	}
	procs, err := DecodeList[Procedure](raw)
	if err != nil {
		return nil, fmt.Errorf("crmapi: list procedures: %w", err)
	}
	return procs, nil
}

// CreateProcedure adds a procedure to the catalog.
func (c *Client) CreateProcedure(ctx context.Context, p Procedure) (*Procedure, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("crmapi: create procedure: %w: name is required", ErrInvalidInput)
	}
	if p.Duration <= 0 {
		p.Duration = DefaultProcedureMinutes
	}
	raw, err := c.do(ctx, "procedures.create", http.MethodPost, c.URL("/procedures"), p, nil)
	if err != nil {
		return nil, fmt.Errorf("crmapi: create procedure: %w", err)
	}
	created := p
	if err := decodeObject(raw, &created); err != nil {
		return nil, fmt.Errorf("crmapi: create procedure: %w", err)
	}
	return &created, nil
}

// DeleteProcedure removes a procedure by id.
func (c *Client) DeleteProcedure(ctx context.Context, id ID) error {
	if strings.TrimSpace(string(id)) == "" {
		return fmt.Errorf("crmapi: delete procedure: %w: id is required", ErrInvalidInput)
	}
	body := map[string]ID{"id": id}
	if err := c.doJSON(ctx, "procedures.delete", http.MethodPost, "/procedures/delete", body, nil); err != nil {
		return fmt.Errorf("crmapi: delete procedure: %w", err)
	}
	return nil
}

// FindProcedure returns the procedure with the given id or name.
func FindProcedure(procs []Procedure, key string) (Procedure, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Procedure{}, false
	}
	for _, p := range procs {
		if string(p.ID) == key {
			return p, true
		}
	}
	for _, p := range procs {
		if strings.EqualFold(p.Name, key) {
			return p, true
		}
	}
	return Procedure{}, false
}
