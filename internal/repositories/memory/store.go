// Package memory is a process-local implementation of the repository
// contracts, used for offline tagging and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
	"github.com/TomMcIver/Stock-Port/pkg/models"
)

type associationKey struct {
	documentID string
	securityID string
}

// Store keeps securities and associations in maps guarded by one mutex
type Store struct {
	mu           sync.RWMutex
	securities   map[string]*models.SecurityRecord // by symbol
	associations map[associationKey]*models.Association
	order        []associationKey
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		securities:   make(map[string]*models.SecurityRecord),
		associations: make(map[associationKey]*models.Association),
	}
}

// AsStore exposes s through the repository bundle
func (s *Store) AsStore() repositories.Store {
	return repositories.Store{
		Securities:   s,
		Associations: &associationView{s},
		Close:        func() error { return nil },
	}
}

// Put stores rec as-is, replacing any record with the same symbol. It lets
// tests plant records that the public API would reject.
func (s *Store) Put(rec models.SecurityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	s.securities[rec.Symbol] = &rec
}

// clone returns a copy safe to hand to callers
func clone(rec *models.SecurityRecord) *models.SecurityRecord {
	out := *rec
	out.Aliases = append([]string(nil), rec.Aliases...)
	return &out
}

func (s *Store) ListActive(_ context.Context) ([]models.SecurityRecord, error) {
	return s.list(true), nil
}

func (s *Store) List(_ context.Context) ([]models.SecurityRecord, error) {
	return s.list(false), nil
}

func (s *Store) list(activeOnly bool) []models.SecurityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SecurityRecord, 0, len(s.securities))
	for _, rec := range s.securities {
		if activeOnly && !rec.Active {
			continue
		}
		out = append(out, *clone(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (s *Store) GetBySymbol(_ context.Context, symbol string) (*models.SecurityRecord, error) {
	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.securities[symbol]
	if !ok {
		return nil, repositories.NotFound("security %s does not exist", symbol)
	}
	return clone(rec), nil
}

func (s *Store) GetOrCreate(_ context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, bool, error) {
	rec, created, err := s.insert(req)
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

func (s *Store) Create(_ context.Context, req models.CreateSecurityRequest) (*models.SecurityRecord, error) {
	rec, created, err := s.insert(req)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, repositories.Conflict("security %s already exists", rec.Symbol)
	}
	return rec, nil
}

func (s *Store) insert(req models.CreateSecurityRequest) (*models.SecurityRecord, bool, error) {
	if _, err := repositories.ValidateSymbol(req.Symbol); err != nil {
		return nil, false, err
	}
	rec := models.NewSecurityRecord(req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.securities[rec.Symbol]; ok {
		return clone(existing), false, nil
	}

	now := time.Now().UTC()
	rec.ID = uuid.New().String()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.securities[rec.Symbol] = rec
	return clone(rec), true, nil
}

func (s *Store) AddAliases(_ context.Context, symbol string, aliases []string) (*models.SecurityRecord, error) {
	return s.update(symbol, func(rec *models.SecurityRecord) {
		current := rec.Aliases
		if len(current) == 0 {
			current, _ = rec.ParseAliases()
		}
		rec.Aliases = models.MergeAliases(current, aliases)
		rec.AliasesJSON = models.EncodeAliases(rec.Aliases)
	})
}

func (s *Store) SetActive(_ context.Context, symbol string, active bool) (*models.SecurityRecord, error) {
	return s.update(symbol, func(rec *models.SecurityRecord) {
		rec.Active = active
	})
}

func (s *Store) update(symbol string, fn func(rec *models.SecurityRecord)) (*models.SecurityRecord, error) {
	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.securities[symbol]
	if !ok {
		return nil, repositories.NotFound("security %s does not exist", symbol)
	}
	fn(rec)
	rec.UpdatedAt = time.Now().UTC()
	return clone(rec), nil
}

// associationView implements the association contract over the same store
type associationView struct {
	s *Store
}

// Associations returns the association repository backed by this store
func (s *Store) Associations() repositories.AssociationRepo {
	return &associationView{s}
}

func (v *associationView) InsertIgnore(_ context.Context, a *models.Association) (bool, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := associationKey{documentID: a.DocumentID, securityID: a.SecurityID}
	if _, ok := s.associations[key]; ok {
		return false, nil
	}

	stored := *a
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now().UTC()
	stored.Contexts = append([]string(nil), a.Contexts...)
	s.associations[key] = &stored
	s.order = append(s.order, key)

	a.ID = stored.ID
	a.CreatedAt = stored.CreatedAt
	return true, nil
}

func (v *associationView) ListByDocument(_ context.Context, documentID string) ([]models.Association, error) {
	return v.filter(func(a *models.Association) bool { return a.DocumentID == documentID }, 0), nil
}

func (v *associationView) ListBySymbol(_ context.Context, symbol string, limit int) ([]models.Association, error) {
	symbol, err := repositories.ValidateSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return v.filter(func(a *models.Association) bool { return a.Symbol == symbol }, repositories.Limit(limit)), nil
}

// filter returns matches ordered by confidence descending, then insertion
func (v *associationView) filter(keep func(a *models.Association) bool, limit int) []models.Association {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySecurity := make(map[string]string, len(s.securities))
	for symbol, rec := range s.securities {
		bySecurity[rec.ID] = symbol
	}

	out := make([]models.Association, 0)
	for _, key := range s.order {
		a := *s.associations[key]
		a.Symbol = bySecurity[a.SecurityID]
		if keep(&a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
