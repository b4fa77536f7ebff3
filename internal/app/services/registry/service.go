// Package registry implements data submission, verification, and the
// category catalog.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/data_ledger/internal/app/auth"
	"github.com/R3E-Network/data_ledger/internal/app/domain/category"
	"github.com/R3E-Network/data_ledger/internal/app/domain/datapoint"
	"github.com/R3E-Network/data_ledger/internal/app/events"
	"github.com/R3E-Network/data_ledger/internal/app/metrics"
	"github.com/R3E-Network/data_ledger/internal/app/storage"
	"github.com/R3E-Network/data_ledger/pkg/logger"
)

var (
	// ErrEmptyFingerprint indicates a submission without a content reference.
	ErrEmptyFingerprint = errors.New("fingerprint must not be empty")
	// ErrInvalidCategory indicates a submission against an uncataloged category.
	ErrInvalidCategory = errors.New("category does not exist")
	// ErrInvalidID indicates an id outside the range of assigned datapoints.
	ErrInvalidID = errors.New("datapoint id out of range")
	// ErrEmptyCategory indicates a blank category name on catalog insert.
	ErrEmptyCategory = errors.New("category name must not be empty")
)

// Service coordinates the datapoint registry and the category catalog.
type Service struct {
	datapoints storage.DataPointStore
	categories storage.CategoryStore
	rewards    storage.RewardStore
	authority  *auth.Authority
	bus        *events.Bus
	log        *logger.Logger
}

// New builds the registry service.
func New(store storage.LedgerStore, authority *auth.Authority, bus *events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	if bus == nil {
		bus = events.NewBus()
	}
	return &Service{
		datapoints: store,
		categories: store,
		rewards:    store,
		authority:  authority,
		bus:        bus,
		log:        log,
	}
}

// Submit validates and records a new datapoint. The reward is computed once,
// from the multiplier in effect now, and never changes afterwards.
func (s *Service) Submit(ctx context.Context, contributor, fingerprint, cat string) (datapoint.DataPoint, error) {
	if strings.TrimSpace(fingerprint) == "" {
		return datapoint.DataPoint{}, ErrEmptyFingerprint
	}

	exists, err := s.categories.CategoryExists(ctx, cat)
	if err != nil {
		return datapoint.DataPoint{}, fmt.Errorf("check category: %w", err)
	}
	if !exists {
		return datapoint.DataPoint{}, ErrInvalidCategory
	}

	dp := datapoint.DataPoint{
		Contributor: contributor,
		Fingerprint: fingerprint,
		Category:    cat,
		Reward:      category.Reward(cat),
		SubmittedAt: time.Now().UTC(),
	}
	dp, err = s.datapoints.InsertDataPoint(ctx, dp)
	if err != nil {
		return datapoint.DataPoint{}, fmt.Errorf("insert datapoint: %w", err)
	}

	metrics.RecordSubmission(dp.Category)
	s.bus.Publish(events.TopicDataSubmitted, events.DataSubmitted{
		ID:          dp.ID,
		Contributor: dp.Contributor,
		Category:    dp.Category,
		Reward:      dp.Reward,
	})
	s.log.WithFields(map[string]any{
		"id":          dp.ID,
		"contributor": dp.Contributor,
		"category":    dp.Category,
		"reward":      dp.Reward,
	}).Info("datapoint submitted")

	return dp, nil
}

// Verify marks a datapoint verified and credits its fixed reward to the
// contributor. Owner-gated; a datapoint verifies exactly once.
func (s *Service) Verify(ctx context.Context, caller string, id int64) (datapoint.DataPoint, error) {
	if err := s.authority.RequireOwner(caller); err != nil {
		return datapoint.DataPoint{}, err
	}

	total, err := s.datapoints.CountDataPoints(ctx)
	if err != nil {
		return datapoint.DataPoint{}, fmt.Errorf("count datapoints: %w", err)
	}
	if id < 1 || id > total {
		return datapoint.DataPoint{}, ErrInvalidID
	}

	dp, err := s.datapoints.MarkVerified(ctx, id, caller)
	if err != nil {
		return datapoint.DataPoint{}, err
	}

	metrics.RecordVerification()
	s.bus.Publish(events.TopicDataVerified, events.DataVerified{
		ID:       dp.ID,
		Verifier: caller,
	})
	s.log.WithFields(map[string]any{
		"id":       dp.ID,
		"verifier": caller,
		"reward":   dp.Reward,
	}).Info("datapoint verified")

	return dp, nil
}

// DataPoint returns the full record for an assigned id.
func (s *Service) DataPoint(ctx context.Context, id int64) (datapoint.DataPoint, error) {
	dp, err := s.datapoints.GetDataPoint(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return datapoint.DataPoint{}, ErrInvalidID
	}
	return dp, err
}

// ContributorData returns the contributor's submission ids in append order.
func (s *Service) ContributorData(ctx context.Context, contributor string) ([]int64, error) {
	return s.datapoints.ContributorDataPoints(ctx, contributor)
}

// RewardBalance returns the contributor's accrued, unclaimed balance.
func (s *Service) RewardBalance(ctx context.Context, contributor string) (int64, error) {
	return s.rewards.RewardBalance(ctx, contributor)
}

// AddCategory catalogs a new category. Owner-gated; names are never removed.
func (s *Service) AddCategory(ctx context.Context, caller, name string) error {
	if err := s.authority.RequireOwner(caller); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return ErrEmptyCategory
	}

	if err := s.categories.AddCategory(ctx, name); err != nil {
		return err
	}
	s.log.WithField("category", name).Info("category added")
	return nil
}

// Categories lists the catalog, sorted by name.
func (s *Service) Categories(ctx context.Context) ([]category.Category, error) {
	names, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]category.Category, 0, len(names))
	for _, name := range names {
		result = append(result, category.Category{Name: name, Multiplier: category.Multiplier(name)})
	}
	return result, nil
}
