package configstore

import (
	"fmt"
	"sync"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"
)

// Persister is the subset of a SQLStore's behavior the in-memory Store
// needs to stay durable: load the whole document on startup, persist it
// whole on every mutation. A nil Persister makes Store purely in-memory.
type Persister interface {
	Load() (Document, bool, error)
	Save(Document) error
}

// Store holds the live administrative configuration in memory, guarded by
// a RWMutex so routing/budget/rate-limit reads never block on an admin
// write, and mirrors every mutation to an optional Persister.
type Store struct {
	mu      sync.RWMutex
	doc     Document
	persist Persister
}

// New creates a Store. If persist is non-nil, its persisted document (if
// any) is loaded immediately.
func New(persist Persister) (*Store, error) {
	s := &Store{persist: persist}
	if persist != nil {
		doc, ok, err := persist.Load()
		if err != nil {
			return nil, fmt.Errorf("load persisted config: %w", err)
		}
		if ok {
			s.doc = doc
		}
	}
	return s, nil
}

func (s *Store) save() error {
	if s.persist == nil {
		return nil
	}
	return s.persist.Save(s.doc)
}

// Document returns a snapshot of the whole configuration.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// ListModels returns every configured model.
func (s *Store) ListModels() []ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ModelConfig, len(s.doc.Models))
	copy(out, s.doc.Models)
	return out
}

// AddModel inserts or replaces a model by ModelID.
func (s *Store) AddModel(m ModelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Models {
		if existing.ModelID == m.ModelID {
			s.doc.Models[i] = m
			return s.save()
		}
	}
	s.doc.Models = append(s.doc.Models, m)
	return s.save()
}

// ToggleModel flips a model's Active flag.
func (s *Store) ToggleModel(modelID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.doc.Models {
		if m.ModelID == modelID {
			s.doc.Models[i].Active = active
			return s.save()
		}
	}
	return fmt.Errorf("model %q not found", modelID)
}

// AddRoutingRule inserts or replaces a routing rule by RuleID.
func (s *Store) AddRoutingRule(r router.RoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.RoutingRules {
		if existing.RuleID == r.RuleID {
			s.doc.RoutingRules[i] = r
			return s.save()
		}
	}
	s.doc.RoutingRules = append(s.doc.RoutingRules, r)
	return s.save()
}

// CreateABTest inserts or replaces an A/B test by TestID.
func (s *Store) CreateABTest(t router.ABTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.ABTests {
		if existing.TestID == t.TestID {
			s.doc.ABTests[i] = t
			return s.save()
		}
	}
	s.doc.ABTests = append(s.doc.ABTests, t)
	return s.save()
}

// CreateBudget inserts or replaces a budget by BudgetID.
func (s *Store) CreateBudget(b budget.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.Budgets {
		if existing.BudgetID == b.BudgetID {
			s.doc.Budgets[i] = b
			return s.save()
		}
	}
	s.doc.Budgets = append(s.doc.Budgets, b)
	return s.save()
}

// AddUserTier inserts or replaces a user tier by TierID.
func (s *Store) AddUserTier(t UserTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.doc.UserTiers {
		if existing.TierID == t.TierID {
			s.doc.UserTiers[i] = t
			return s.save()
		}
	}
	s.doc.UserTiers = append(s.doc.UserTiers, t)
	return s.save()
}

// SetCaching replaces the gateway-wide cache policy.
func (s *Store) SetCaching(c CachingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Caching = c
	return s.save()
}

// SetRateLimit replaces the gateway-wide rate-limit policy.
func (s *Store) SetRateLimit(c RateLimitConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.RateLimit = c
	return s.save()
}

// Replace overwrites the whole document, used by Import after schema
// validation has already passed.
func (s *Store) Replace(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	return s.save()
}
