package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Corroboration boost applied per citation for domains not in the authority
// table.
const defaultDomainBoost = 0.02

// Fixed authority table. Configuration data: look up, do not extend by rule.
var authorityDomainBoosts = map[string]float64{
	"wikipedia.org":     0.10,
	"github.com":        0.08,
	"arxiv.org":         0.10,
	"stackoverflow.com": 0.05,
	"nature.com":        0.10,
	"acm.org":           0.08,
	"ieee.org":          0.08,
	"nih.gov":           0.10,
	"docs.google.com":   0.03,
	"linkedin.com":      0.05,
}

// DomainBoost returns the corroboration boost for a citation domain,
// matching registered suffixes so subdomains inherit the parent's authority.
func DomainBoost(domain string) float64 {
	d := strings.ToLower(strings.TrimPrefix(domain, "www."))
	if boost, ok := authorityDomainBoosts[d]; ok {
		return boost
	}
	for suffix, boost := range authorityDomainBoosts {
		if strings.HasSuffix(d, "."+suffix) {
			return boost
		}
	}
	return defaultDomainBoost
}

// CitationService maintains the citation log and feeds corroboration boosts
// into entity belief scores.
type CitationService struct {
	citationStore domain.CitationStore
	entityStore   domain.EntityStore
	logger        *zap.Logger

	now func() time.Time
}

func NewCitationService(cs domain.CitationStore, es domain.EntityStore, logger *zap.Logger) *CitationService {
	return &CitationService{
		citationStore: cs,
		entityStore:   es,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *CitationService) SetClock(now func() time.Time) { s.now = now }

// Record folds one observed citation into the log. Citations sharing a URL
// collapse into a single record: counts are summed and the related entity
// sets are unioned. The related entities then receive the domain's
// corroboration boost, capped in total.
func (s *CitationService) Record(ctx context.Context, rawURL string, conversationID uuid.UUID, relatedEntityIDs []uuid.UUID) (*domain.CitationReference, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid citation url %q", rawURL)
	}

	existing, err := s.citationStore.GetByURL(ctx, rawURL)
	if err != nil && !errors.Is(err, domain.ErrCitationNotFound) {
		return nil, err
	}

	var citation *domain.CitationReference
	if existing != nil {
		existing.CitedCount++
		for _, id := range relatedEntityIDs {
			if !existing.HasRelatedEntity(id) {
				existing.RelatedEntityIDs = append(existing.RelatedEntityIDs, id)
			}
		}
		if err := s.citationStore.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update citation: %w", err)
		}
		citation = existing
	} else {
		citation = &domain.CitationReference{
			ID:                    uuid.New(),
			URL:                   rawURL,
			Domain:                strings.ToLower(parsed.Host),
			CitedInConversationID: conversationID,
			RelatedEntityIDs:      relatedEntityIDs,
			CitedCount:            1,
			CreatedAt:             s.now(),
		}
		if err := s.citationStore.Create(ctx, citation); err != nil {
			return nil, fmt.Errorf("create citation: %w", err)
		}
	}

	s.boostEntities(ctx, citation.Domain, relatedEntityIDs)
	return citation, nil
}

// ReconcileAll deduplicates the whole citation log by URL. Needed after
// imports that wrote citations concurrently; Record already keeps the common
// path collapsed.
func (s *CitationService) ReconcileAll(ctx context.Context) error {
	all, err := s.citationStore.ListAll(ctx)
	if err != nil {
		return err
	}

	byURL := make(map[string]*domain.CitationReference)
	for i := range all {
		c := &all[i]
		keeper, ok := byURL[c.URL]
		if !ok {
			byURL[c.URL] = c
			continue
		}
		keeper.CitedCount += c.CitedCount
		for _, id := range c.RelatedEntityIDs {
			if !keeper.HasRelatedEntity(id) {
				keeper.RelatedEntityIDs = append(keeper.RelatedEntityIDs, id)
			}
		}
		if err := s.citationStore.Update(ctx, keeper); err != nil {
			return fmt.Errorf("merge citation %s: %w", keeper.URL, err)
		}
		if err := s.citationStore.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("delete duplicate citation %s: %w", c.ID, err)
		}
	}
	return nil
}

// boostEntities raises externalCorroboration for each related entity by the
// domain's boost, never past the cap. Per-entity failures are logged and
// skipped; corroboration is an enrichment, not a required write.
func (s *CitationService) boostEntities(ctx context.Context, citedDomain string, entityIDs []uuid.UUID) {
	boost := DomainBoost(citedDomain)
	now := s.now()
	for _, id := range entityIDs {
		entity, err := s.entityStore.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("citation references unknown entity",
				zap.String("entity_id", id.String()), zap.Error(err))
			continue
		}
		next := entity.Belief.ExternalCorroboration + boost
		if next > domain.MaxExternalCorroboration {
			next = domain.MaxExternalCorroboration
		}
		if next == entity.Belief.ExternalCorroboration {
			continue
		}
		entity.Belief.ExternalCorroboration = next
		entity.Belief.CurrentScore = ComputeScore(&entity.Belief, now)
		entity.Belief.LastCalculated = now
		if err := s.entityStore.UpdateBelief(ctx, entity.ID, entity.Belief); err != nil {
			s.logger.Warn("failed to persist corroboration boost",
				zap.String("entity_id", id.String()), zap.Error(err))
		}
	}
}
