package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/distillkit/distill/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultReconcileBatchSize = 50

	// Tier B promotion bar: a generic reference co-occurring with the same
	// named entity this many times auto-merges.
	AliasPromotionCount = 2

	// Tier C surfacing cap per day.
	DailySuggestionCap = 2

	DefaultSnoozeDays = 7
)

// Generic self-referential phrases that trigger Tier B co-occurrence
// detection. Configuration data, not an algorithm: override via
// SetGenericPhrases rather than extending in place.
var defaultGenericPhrases = []string{
	"my app", "this app", "the app",
	"my project", "this project", "the project",
	"my startup", "my company",
	"it", "this thing",
}

// Entity type pairs that are never merge-compatible, in either order.
var incompatibleTypePairs = [][2]domain.EntityType{
	{domain.EntityTypeSkill, domain.EntityTypeIdentity},
	{domain.EntityTypeProject, domain.EntityTypeIdentity},
	{domain.EntityTypeTool, domain.EntityTypeGoal},
	{domain.EntityTypeProject, domain.EntityTypeCompany},
}

// MergeCompatible reports whether entities of the two types may ever be
// merged or suggested for merging.
func MergeCompatible(a, b domain.EntityType) bool {
	for _, pair := range incompatibleTypePairs {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return false
		}
	}
	return true
}

var roleSuffixes = []string{
	"er", "or", "manager", "founder", "director", "lead", "head", "chief",
	"engineer", "designer", "developer", "analyst", "scientist", "consultant",
}

// ClassifyEntityType assigns a type to an untyped candidate: named-entity
// shape first, then pattern rules in order, defaulting to preference.
func ClassifyEntityType(text string) domain.EntityType {
	if t, ok := classifyByEntityShape(text); ok {
		return t
	}

	if strings.ContainsFunc(text, unicode.IsDigit) {
		return domain.EntityTypeSkill
	}

	letters := strings.TrimSpace(text)
	if len(letters) >= 2 && isAllUpperLetters(letters) {
		return domain.EntityTypeDomain
	}

	fields := strings.Fields(text)
	if len(fields) > 0 {
		last := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,!?"))
		for _, suffix := range roleSuffixes {
			if last == suffix || (len(suffix) <= 2 && strings.HasSuffix(last, suffix) && len(last) > 4) {
				return domain.EntityTypeIdentity
			}
		}
	}

	return domain.EntityTypePreference
}

// classifyByEntityShape maps person/organization/place cues onto types:
// person -> identity, organization -> company, place -> context.
func classifyByEntityShape(text string) (domain.EntityType, bool) {
	fields := strings.Fields(text)
	for i, w := range fields {
		if honorifics[w] {
			return domain.EntityTypeIdentity, true
		}
		if orgSuffixes[strings.Trim(w, ".,")] {
			return domain.EntityTypeCompany, true
		}
		if i > 0 && placePrepositions[strings.ToLower(fields[i-1])] && isCapitalized(w) {
			return domain.EntityTypeContext, true
		}
	}
	return "", false
}

func isAllUpperLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// ReconcileResult summarizes one reconciliation call.
type ReconcileResult struct {
	EntitiesCreated   int `json:"entities_created"`
	EntitiesLinked    int `json:"entities_linked"`
	PendingRecorded   int `json:"pending_recorded"`
	AutoMerged        int `json:"auto_merged"`
	SuggestionsQueued int `json:"suggestions_queued"`
	PendingDropped    int `json:"pending_dropped"`
}

// ReconcilerService merges filtered extractions into the canonical entity set
// using the three matching tiers. One reconciliation call must hold exclusive
// access to the entity set; the corpus is a single-writer resource.
type ReconcilerService struct {
	entityStore     domain.EntityStore
	extractionStore domain.ExtractionStore
	mergeStore      domain.MergeStore
	logger          *zap.Logger

	BatchSize      int
	genericPhrases []string
	now            func() time.Time
}

func NewReconcilerService(es domain.EntityStore, xs domain.ExtractionStore, ms domain.MergeStore, logger *zap.Logger) *ReconcilerService {
	return &ReconcilerService{
		entityStore:     es,
		extractionStore: xs,
		mergeStore:      ms,
		logger:          logger,
		BatchSize:       DefaultReconcileBatchSize,
		genericPhrases:  defaultGenericPhrases,
		now:             time.Now,
	}
}

func (s *ReconcilerService) SetClock(now func() time.Time) { s.now = now }

// SetGenericPhrases overrides the Tier B trigger phrase list.
func (s *ReconcilerService) SetGenericPhrases(phrases []string) {
	s.genericPhrases = phrases
}

// isGeneric matches single-word phrases exactly and multi-word phrases as
// substrings.
func (s *ReconcilerService) isGeneric(text string) bool {
	norm := domain.NormalizeText(text)
	for _, p := range s.genericPhrases {
		if norm == p {
			return true
		}
		if strings.Contains(p, " ") && strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// entityIndex is the per-call in-memory view of the live entity set, keyed by
// normalized canonical text and aliases.
type entityIndex struct {
	byKey map[string]*domain.CanonicalEntity
	byID  map[uuid.UUID]*domain.CanonicalEntity
}

func newEntityIndex(entities []domain.CanonicalEntity) *entityIndex {
	idx := &entityIndex{
		byKey: make(map[string]*domain.CanonicalEntity),
		byID:  make(map[uuid.UUID]*domain.CanonicalEntity),
	}
	for i := range entities {
		idx.add(&entities[i])
	}
	return idx
}

func (idx *entityIndex) add(e *domain.CanonicalEntity) {
	idx.byID[e.ID] = e
	idx.byKey[domain.NormalizeText(e.CanonicalText)] = e
	for _, a := range e.Aliases {
		idx.byKey[domain.NormalizeText(a)] = e
	}
}

func (idx *entityIndex) remove(e *domain.CanonicalEntity) {
	delete(idx.byID, e.ID)
	delete(idx.byKey, domain.NormalizeText(e.CanonicalText))
	for _, a := range e.Aliases {
		delete(idx.byKey, domain.NormalizeText(a))
	}
}

// Reconcile links each extraction to an existing entity (Tier A), records
// generic co-occurrences (Tier B), then runs the promotion pass. Extractions
// are processed in fixed-size batches; the entity index is rebuilt from the
// store at each batch boundary so a long call never works against a view
// older than one batch. Re-reconciling identical text is idempotent: it
// increments support instead of duplicating entities.
func (s *ReconcilerService) Reconcile(ctx context.Context, extractions []domain.RawExtraction) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	entities, err := s.entityStore.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	idx := newEntityIndex(entities)

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultReconcileBatchSize
	}

	// extraction id -> resolved entity, for the Tier B pass.
	resolved := make(map[uuid.UUID]*domain.CanonicalEntity)

	for start := 0; start < len(extractions); start += batchSize {
		if start > 0 {
			entities, err = s.entityStore.ListActive(ctx)
			if err != nil {
				return result, fmt.Errorf("refresh entities: %w", err)
			}
			idx = newEntityIndex(entities)
		}
		end := start + batchSize
		if end > len(extractions) {
			end = len(extractions)
		}
		for i := start; i < end; i++ {
			x := &extractions[i]
			entity, created, err := s.linkOrCreate(ctx, idx, x)
			if err != nil {
				s.logger.Warn("failed to reconcile extraction",
					zap.String("extraction_id", x.ID.String()),
					zap.Error(err))
				continue
			}
			resolved[x.ID] = entity
			if created {
				result.EntitiesCreated++
			} else {
				result.EntitiesLinked++
			}
		}
	}

	// Tier B: record co-occurrences of generic references with named
	// entities from the same conversation.
	pending, err := s.recordCoOccurrences(ctx, extractions, resolved)
	if err != nil {
		return result, err
	}
	result.PendingRecorded = pending

	// Promotion pass runs once per reconciliation call.
	if err := s.promotePending(ctx, idx, result); err != nil {
		return result, err
	}

	s.logger.Info("reconciliation complete",
		zap.Int("extractions", len(extractions)),
		zap.Int("entities_created", result.EntitiesCreated),
		zap.Int("entities_linked", result.EntitiesLinked),
		zap.Int("auto_merged", result.AutoMerged),
		zap.Int("suggestions_queued", result.SuggestionsQueued))

	return result, nil
}

// linkOrCreate is Tier A plus new-entity creation. Returns the resolved
// entity and whether it was created.
func (s *ReconcilerService) linkOrCreate(ctx context.Context, idx *entityIndex, x *domain.RawExtraction) (*domain.CanonicalEntity, bool, error) {
	if x.Type == "" {
		x.Type = ClassifyEntityType(x.Text)
	}

	if entity, ok := idx.byKey[domain.NormalizeText(x.Text)]; ok {
		if err := s.linkExtraction(ctx, entity, x); err != nil {
			return nil, false, err
		}
		return entity, false, nil
	}

	entity, err := s.createEntity(ctx, x)
	if err != nil {
		return nil, false, err
	}
	idx.add(entity)
	return entity, true, nil
}

func (s *ReconcilerService) linkExtraction(ctx context.Context, entity *domain.CanonicalEntity, x *domain.RawExtraction) error {
	entity.SupportingExtractionIDs = append(entity.SupportingExtractionIDs, x.ID)
	entity.Belief.SupportCount++
	if x.ConversationTimestamp.After(entity.Belief.LastCorroborated) {
		entity.Belief.LastCorroborated = x.ConversationTimestamp
	}
	if x.ConversationTimestamp.After(entity.LastSeen) {
		entity.LastSeen = x.ConversationTimestamp
	}
	if entity.Belief.SupportCount >= domain.StabilityFloorSupport {
		entity.Belief.StabilityFloorActive = true
	}
	now := s.now()
	entity.Belief.CurrentScore = ComputeScore(&entity.Belief, now)
	entity.Belief.LastCalculated = now

	if err := s.entityStore.Update(ctx, entity); err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	if err := s.extractionStore.SetCanonicalEntity(ctx, x.ID, entity.ID); err != nil {
		return fmt.Errorf("link extraction: %w", err)
	}
	eid := entity.ID
	x.CanonicalEntityID = &eid
	return nil
}

func (s *ReconcilerService) createEntity(ctx context.Context, x *domain.RawExtraction) (*domain.CanonicalEntity, error) {
	now := s.now()
	entity := &domain.CanonicalEntity{
		ID:                      uuid.New(),
		CanonicalText:           strings.TrimSpace(x.Text),
		Type:                    x.Type,
		FirstSeen:               x.ConversationTimestamp,
		LastSeen:                x.ConversationTimestamp,
		SupportingExtractionIDs: []uuid.UUID{x.ID},
		Belief: domain.BeliefScore{
			SupportCount:      1,
			LastCorroborated:  x.ConversationTimestamp,
			AttributionWeight: x.Attribution.Weight(),
			HalfLifeDays:      x.Type.HalfLifeDays(),
			LastCalculated:    now,
		},
	}
	entity.Belief.CurrentScore = ComputeScore(&entity.Belief, now)

	if err := s.entityStore.Create(ctx, entity); err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	if err := s.extractionStore.SetCanonicalEntity(ctx, x.ID, entity.ID); err != nil {
		return nil, fmt.Errorf("link extraction: %w", err)
	}
	eid := entity.ID
	x.CanonicalEntityID = &eid
	return entity, nil
}

// recordCoOccurrences is the Tier B pass: for each generic extraction, every
// merge-compatible named entity resolved from the same conversation gets a
// pending alias candidate keyed by the generic's own entity.
func (s *ReconcilerService) recordCoOccurrences(ctx context.Context, extractions []domain.RawExtraction, resolved map[uuid.UUID]*domain.CanonicalEntity) (int, error) {
	recorded := 0
	for i := range extractions {
		generic := &extractions[i]
		if !s.isGeneric(generic.Text) {
			continue
		}
		genericEntity, ok := resolved[generic.ID]
		if !ok {
			continue
		}

		for j := range extractions {
			if i == j {
				continue
			}
			named := &extractions[j]
			if named.SourceConversationID != generic.SourceConversationID {
				continue
			}
			if s.isGeneric(named.Text) {
				continue
			}
			host, ok := resolved[named.ID]
			if !ok || host.ID == genericEntity.ID {
				continue
			}
			if !MergeCompatible(host.Type, genericEntity.Type) {
				continue
			}

			p := &domain.PendingAlias{
				HostEntityID: host.ID,
				PendingAliasCandidate: domain.PendingAliasCandidate{
					ExtractionID:      generic.ID,
					CandidateEntityID: genericEntity.ID,
					CoOccurrenceCount: 1,
					FirstSeen:         s.now(),
				},
			}
			if err := s.mergeStore.UpsertPending(ctx, p); err != nil {
				s.logger.Warn("failed to record pending alias", zap.Error(err))
				continue
			}
			recorded++
		}
	}
	return recorded, nil
}

// promotePending walks the pending log once: rejected pairs are dropped
// permanently, pairs at the promotion count auto-merge, single co-occurrences
// between same-type entities become Tier C suggestions.
func (s *ReconcilerService) promotePending(ctx context.Context, idx *entityIndex, result *ReconcileResult) error {
	pending, err := s.mergeStore.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending aliases: %w", err)
	}
	decisions, err := s.mergeStore.ListDecisions(ctx)
	if err != nil {
		return fmt.Errorf("list merge decisions: %w", err)
	}
	suggestions, err := s.mergeStore.ListSuggestions(ctx)
	if err != nil {
		return fmt.Errorf("list merge suggestions: %w", err)
	}

	rejected := func(a, b uuid.UUID) bool {
		for i := range decisions {
			if decisions[i].Outcome == domain.MergeOutcomeKeptSeparate && decisions[i].Covers(a, b) {
				return true
			}
		}
		return false
	}
	decided := func(a, b uuid.UUID) bool {
		for i := range decisions {
			if decisions[i].Covers(a, b) {
				return true
			}
		}
		return false
	}
	suggested := func(a, b uuid.UUID) bool {
		for i := range suggestions {
			if suggestions[i].SamePair(a, b) {
				return true
			}
		}
		return false
	}

	for i := range pending {
		p := &pending[i]
		host := idx.byID[p.HostEntityID]
		candidate := idx.byID[p.CandidateEntityID]
		if host == nil || candidate == nil {
			// One side is gone (merged away or deleted); drop the entry.
			_ = s.mergeStore.DeletePending(ctx, p.HostEntityID, p.CandidateEntityID)
			continue
		}

		if rejected(host.ID, candidate.ID) {
			if err := s.mergeStore.DeletePending(ctx, p.HostEntityID, p.CandidateEntityID); err == nil {
				result.PendingDropped++
			}
			continue
		}

		if p.CoOccurrenceCount >= AliasPromotionCount {
			if err := s.mergeEntities(ctx, idx, host, candidate, false); err != nil {
				s.logger.Warn("auto-merge failed",
					zap.String("host", host.ID.String()),
					zap.String("candidate", candidate.ID.String()),
					zap.Error(err))
				continue
			}
			result.AutoMerged++
			continue
		}

		if p.CoOccurrenceCount == 1 && host.Type == candidate.Type &&
			!suggested(host.ID, candidate.ID) && !decided(host.ID, candidate.ID) {
			sug := &domain.MergeSuggestion{
				ID:        uuid.New(),
				EntityAID: host.ID,
				EntityBID: candidate.ID,
				Reason:    fmt.Sprintf("%q may refer to %q", candidate.CanonicalText, host.CanonicalText),
				CreatedAt: s.now(),
			}
			if err := s.mergeStore.CreateSuggestion(ctx, sug); err != nil {
				s.logger.Warn("failed to queue merge suggestion", zap.Error(err))
				continue
			}
			suggestions = append(suggestions, *sug)
			result.SuggestionsQueued++
		}
	}
	return nil
}

// mergeEntities absorbs candidate into host: aliases and supporting
// extraction ids move over, extraction back-references are repointed, a
// permanent decision is recorded, pending aliases and suggestions naming the
// absorbed entity are cleared, and the absorbed entity is deleted.
func (s *ReconcilerService) mergeEntities(ctx context.Context, idx *entityIndex, host, candidate *domain.CanonicalEntity, userInitiated bool) error {
	if !host.HasAlias(candidate.CanonicalText) && domain.NormalizeText(host.CanonicalText) != domain.NormalizeText(candidate.CanonicalText) {
		host.Aliases = append(host.Aliases, candidate.CanonicalText)
	}
	for _, a := range candidate.Aliases {
		if !host.HasAlias(a) {
			host.Aliases = append(host.Aliases, a)
		}
	}
	host.SupportingExtractionIDs = append(host.SupportingExtractionIDs, candidate.SupportingExtractionIDs...)
	host.Belief.SupportCount += candidate.Belief.SupportCount
	if candidate.Belief.LastCorroborated.After(host.Belief.LastCorroborated) {
		host.Belief.LastCorroborated = candidate.Belief.LastCorroborated
	}
	if candidate.LastSeen.After(host.LastSeen) {
		host.LastSeen = candidate.LastSeen
	}
	if candidate.FirstSeen.Before(host.FirstSeen) {
		host.FirstSeen = candidate.FirstSeen
	}
	if host.Belief.SupportCount >= domain.StabilityFloorSupport {
		host.Belief.StabilityFloorActive = true
	}
	now := s.now()
	host.Belief.CurrentScore = ComputeScore(&host.Belief, now)
	host.Belief.LastCalculated = now

	if err := s.entityStore.Update(ctx, host); err != nil {
		return fmt.Errorf("update host entity: %w", err)
	}
	for _, xid := range candidate.SupportingExtractionIDs {
		if err := s.extractionStore.SetCanonicalEntity(ctx, xid, host.ID); err != nil {
			s.logger.Warn("failed to repoint extraction",
				zap.String("extraction_id", xid.String()), zap.Error(err))
		}
	}

	decision := &domain.MergeDecision{
		ID:               uuid.New(),
		SurvivorEntityID: host.ID,
		AbsorbedEntityID: candidate.ID,
		Outcome:          domain.MergeOutcomeMerged,
		UserInitiated:    userInitiated,
		DecidedAt:        now,
	}
	if err := s.mergeStore.CreateDecision(ctx, decision); err != nil {
		return fmt.Errorf("record merge decision: %w", err)
	}

	if err := s.mergeStore.DeletePendingForEntity(ctx, candidate.ID); err != nil {
		s.logger.Warn("failed to clear pending aliases for absorbed entity", zap.Error(err))
	}
	if err := s.mergeStore.DeleteSuggestionsForEntity(ctx, candidate.ID); err != nil {
		s.logger.Warn("failed to clear suggestions for absorbed entity", zap.Error(err))
	}
	if err := s.entityStore.Delete(ctx, candidate.ID); err != nil {
		return fmt.Errorf("delete absorbed entity: %w", err)
	}
	idx.remove(candidate)
	idx.add(host)
	return nil
}

// PendingSuggestions returns at most DailySuggestionCap unsnoozed Tier C
// suggestions.
func (s *ReconcilerService) PendingSuggestions(ctx context.Context) ([]domain.MergeSuggestion, error) {
	all, err := s.mergeStore.ListSuggestions(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []domain.MergeSuggestion
	for _, sug := range all {
		if sug.SnoozedUntil != nil && sug.SnoozedUntil.After(now) {
			continue
		}
		out = append(out, sug)
		if len(out) == DailySuggestionCap {
			break
		}
	}
	return out, nil
}

// Decide resolves a Tier C suggestion. merged absorbs B into A the same way
// auto-promotion does, but user-initiated; kept_separate records a permanent
// decision so the pair is never suggested again in either order.
func (s *ReconcilerService) Decide(ctx context.Context, suggestionID uuid.UUID, outcome domain.MergeOutcome) error {
	sug, err := s.mergeStore.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return err
	}

	switch outcome {
	case domain.MergeOutcomeMerged:
		host, err := s.entityStore.GetByID(ctx, sug.EntityAID)
		if err != nil {
			return fmt.Errorf("load host entity: %w", err)
		}
		candidate, err := s.entityStore.GetByID(ctx, sug.EntityBID)
		if err != nil {
			return fmt.Errorf("load candidate entity: %w", err)
		}
		idx := newEntityIndex(nil)
		idx.add(host)
		idx.add(candidate)
		// mergeEntities clears every suggestion naming the absorbed entity,
		// including this one.
		return s.mergeEntities(ctx, idx, host, candidate, true)

	case domain.MergeOutcomeKeptSeparate:
		decision := &domain.MergeDecision{
			ID:               uuid.New(),
			SurvivorEntityID: sug.EntityAID,
			AbsorbedEntityID: sug.EntityBID,
			Outcome:          domain.MergeOutcomeKeptSeparate,
			UserInitiated:    true,
			DecidedAt:        s.now(),
		}
		if err := s.mergeStore.CreateDecision(ctx, decision); err != nil {
			return fmt.Errorf("record decision: %w", err)
		}
		if err := s.mergeStore.DeletePending(ctx, sug.EntityAID, sug.EntityBID); err != nil {
			s.logger.Warn("failed to clear pending alias after rejection", zap.Error(err))
		}

	default:
		return fmt.Errorf("invalid merge outcome: %s", outcome)
	}

	return s.mergeStore.DeleteSuggestion(ctx, suggestionID)
}

// Snooze defers a suggestion without resolving it.
func (s *ReconcilerService) Snooze(ctx context.Context, suggestionID uuid.UUID) error {
	until := s.now().AddDate(0, 0, DefaultSnoozeDays)
	return s.mergeStore.SnoozeSuggestion(ctx, suggestionID, until)
}

// DeleteEntity is the explicit user deletion path: supporting extractions are
// deactivated, merge state referencing the entity is cleared, and the entity
// is removed.
func (s *ReconcilerService) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	entity, err := s.entityStore.GetByID(ctx, id)
	if err != nil {
		return err
	}
	for _, xid := range entity.SupportingExtractionIDs {
		if err := s.extractionStore.Deactivate(ctx, xid); err != nil {
			s.logger.Warn("failed to deactivate extraction",
				zap.String("extraction_id", xid.String()), zap.Error(err))
		}
	}
	if err := s.mergeStore.DeletePendingForEntity(ctx, id); err != nil {
		s.logger.Warn("failed to clear pending aliases", zap.Error(err))
	}
	if err := s.mergeStore.DeleteSuggestionsForEntity(ctx, id); err != nil {
		s.logger.Warn("failed to clear suggestions", zap.Error(err))
	}
	return s.entityStore.Delete(ctx, id)
}
