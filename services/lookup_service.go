// services/lookup_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/models"
	"github.com/gewnthar/ulsync/utils"
)

// ErrInvalidQuery marks lookups rejected before touching the store.
var ErrInvalidQuery = errors.New("invalid query")

// LookupService answers read-only queries. Results are restricted to active
// licenses unless the caller asks for all statuses.
type LookupService struct {
	store        *database.Store
	activeStatus string
	maxResults   int
}

func NewLookupService(cfg *config.Config, store *database.Store) *LookupService {
	return &LookupService{store: store, activeStatus: cfg.Load.ActiveStatus, maxResults: cfg.Lookup.MaxResults}
}

// ByCallSign returns the license for callSign, or nil when there is none.
// With detail set, dependent history, comments and conditions are included.
func (s *LookupService) ByCallSign(ctx context.Context, callSign string, all, detail bool) (*models.LicenseDetail, error) {
	cs := utils.NormalizeCallSign(callSign)
	if cs == "" {
		return nil, fmt.Errorf("%w: empty call sign", ErrInvalidQuery)
	}
	view, err := s.store.LicenseByCallSign(ctx, cs, !all, s.activeStatus)
	if err != nil || view == nil {
		return nil, err
	}
	if !detail {
		return &models.LicenseDetail{License: *view}, nil
	}
	return s.store.LicenseDetail(ctx, *view)
}

// SearchRequest is a name and/or region search.
type SearchRequest struct {
	Name   string
	Region string
	All    bool
}

func (s *LookupService) Search(ctx context.Context, req SearchRequest) ([]models.LicenseView, error) {
	q := database.SearchQuery{
		ActiveOnly:   !req.All,
		ActiveStatus: s.activeStatus,
		Limit:        s.maxResults,
	}
	if req.Name != "" {
		q.NamePattern = utils.NamePattern(req.Name)
		if q.NamePattern == "%%" {
			q.NamePattern = ""
		}
	}
	if req.Region != "" {
		q.Region = utils.NormalizeRegion(req.Region)
		if !utils.ValidRegion(q.Region) {
			return nil, fmt.Errorf("%w: region %q is not a two-letter code", ErrInvalidQuery, req.Region)
		}
	}
	if q.NamePattern == "" && q.Region == "" {
		return nil, fmt.Errorf("%w: a name or a region is required", ErrInvalidQuery)
	}
	return s.store.SearchLicenses(ctx, q)
}
