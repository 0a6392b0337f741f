// services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recycle-rewards-system/models"
	"recycle-rewards-system/store"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// CatalogService reads prize listings and guards their stock.
type CatalogService struct {
	Store store.Store
	Log   *zap.SugaredLogger
}

func NewCatalogService(st store.Store, log *zap.SugaredLogger) *CatalogService {
	return &CatalogService{Store: st, Log: loggerOrNop(log)}
}

// ListListings returns every listing. No ordering is promised.
func (s *CatalogService) ListListings(ctx context.Context) ([]models.PrizeListing, error) {
	return s.Store.ListPrizes(ctx)
}

func (s *CatalogService) GetListing(ctx context.Context, name string) (*models.PrizeListing, error) {
	p, err := s.Store.GetPrize(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPrizeNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) GetListingBySlug(ctx context.Context, key string) (*models.PrizeListing, error) {
	p, err := s.Store.GetPrizeBySlug(ctx, slug.Make(key))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPrizeNotFound
		}
		return nil, err
	}
	return p, nil
}

// DecrementStock takes one unit of the listing, failing with ErrOutOfStock
// when none is left at the moment of the update.
func (s *CatalogService) DecrementStock(ctx context.Context, name string) error {
	if err := s.Store.DecrementStock(ctx, name); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrPrizeNotFound
		case errors.Is(err, store.ErrConditionFailed):
			return ErrOutOfStock
		default:
			return fmt.Errorf("decrement stock %q: %w", name, err)
		}
	}
	return nil
}

// SeedListings inserts listings that are not in the catalog yet. Existing
// listings only get their description and image refreshed. Returns the
// number of new listings.
func (s *CatalogService) SeedListings(ctx context.Context, listings []models.PrizeListing) (int, error) {
	created := 0
	for i := range listings {
		p := listings[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" || p.PointsRequired < 0 || p.Stock < 0 {
			s.Log.Warnf("⚠️ Skipping invalid listing %q (cost=%d, stock=%d)", p.Name, p.PointsRequired, p.Stock)
			continue
		}
		p.Slug = slug.Make(p.Name)

		isNew, err := s.Store.UpsertPrize(ctx, &p)
		if err != nil {
			return created, fmt.Errorf("seed listing %q: %w", p.Name, err)
		}
		if isNew {
			created++
			s.Log.Infof("🎁 New prize listed: %s (%d pts, stock %d)", p.Name, p.PointsRequired, p.Stock)
		}
	}
	return created, nil
}

// LowStock returns listings whose stock is at or below threshold.
func (s *CatalogService) LowStock(ctx context.Context, threshold int64) ([]models.PrizeListing, error) {
	all, err := s.Store.ListPrizes(ctx)
	if err != nil {
		return nil, err
	}
	var low []models.PrizeListing
	for _, p := range all {
		if p.Stock <= threshold {
			low = append(low, p)
		}
	}
	return low, nil
}
