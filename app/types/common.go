package types

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/vibast-solutions/ms-go-memberships/app/repository"
)

var strictPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup from free text a user or operator typed. The
// result is stored as plain text, so entities the policy emits are decoded.
func sanitizeText(value string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(strings.TrimSpace(value))))
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type pagination struct {
	Limit  int32
	Offset int32
}

func (p pagination) GetLimit() int32 {
	return p.Limit
}

func (p pagination) GetOffset() int32 {
	return p.Offset
}

func paginationFromContext(ctx echo.Context) (pagination, error) {
	page := pagination{Limit: repository.DefaultListLimit}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return page, err
		}
		page.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return page, err
		}
		page.Offset = int32(offset)
	}

	return page, nil
}

func (p *pagination) validate() error {
	if p.Limit == 0 {
		p.Limit = repository.DefaultListLimit
	}
	if p.Limit <= 0 || p.Limit > repository.MaxListLimit {
		return fmt.Errorf("limit must be between 1 and %d", repository.MaxListLimit)
	}
	if p.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}
