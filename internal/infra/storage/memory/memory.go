package memory

import (
	"cmp"
	"context"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/infra/storage"
)

type MemoryStorage struct {
	labs        map[int64]*domain.Lab
	deposits    []*domain.Deposit
	redemptions []*domain.Redemption
	claims      []*domain.FaucetClaim
	analytics   map[string]*domain.Analytics
	txHashes    map[string]struct{}
	nextID      int64
	now         func() time.Time
	mu          sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		labs:      make(map[int64]*domain.Lab),
		analytics: make(map[string]*domain.Analytics),
		txHashes:  make(map[string]struct{}),
		now:       time.Now,
	}
}

// NewStore returns every repository backed by a fresh MemoryStorage.
func NewStore() *storage.Store {
	s := NewMemoryStorage()
	return &storage.Store{
		Labs:        NewLabRepo(s),
		Deposits:    NewDepositRepo(s),
		Redemptions: NewRedemptionRepo(s),
		Analytics:   NewAnalyticsRepo(s),
		Faucet:      NewFaucetRepo(s),
	}
}

func (s *MemoryStorage) id() int64 {
	s.nextID++
	return s.nextID
}

func parseAmount(v string) (*big.Int, error) {
	if v == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	return n, nil
}

func paginate[T any](items []T, page storage.Page) []T {
	n := page.Normalize()
	off := page.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := min(off+n.Size, len(items))
	return items[off:end]
}

// -----------------------------------------------------------------------------
// Lab Repository
// -----------------------------------------------------------------------------

type LabRepo struct {
	store *MemoryStorage
}

func NewLabRepo(store *MemoryStorage) *LabRepo {
	return &LabRepo{store: store}
}

func (r *LabRepo) Upsert(ctx context.Context, lab *domain.Lab) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	if existing, ok := r.store.labs[lab.ID]; ok {
		lab.TVL = existing.TVL
		lab.CreatedAt = existing.CreatedAt
	} else {
		lab.TVL = "0"
		lab.CreatedAt = now
	}
	lab.UpdatedAt = now

	cp := *lab
	r.store.labs[lab.ID] = &cp
	return nil
}

func (r *LabRepo) GetByID(ctx context.Context, id int64) (*domain.Lab, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	lab, ok := r.store.labs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *lab
	return &cp, nil
}

func (r *LabRepo) List(ctx context.Context, filter domain.LabFilter, page storage.Page) ([]*domain.Lab, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*domain.Lab
	for _, lab := range r.store.labs {
		if filter.Owner != "" && !strings.EqualFold(lab.Owner, filter.Owner) {
			continue
		}
		if len(filter.Domains) > 0 && !slices.Contains(filter.Domains, lab.Domain) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(lab.Name), search) &&
			!strings.Contains(strings.ToLower(lab.Symbol), search) &&
			!strings.Contains(strings.ToLower(lab.Description), search) {
			continue
		}
		cp := *lab
		matched = append(matched, &cp)
	}
	slices.SortFunc(matched, func(a, b *domain.Lab) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(matched, page), int64(len(matched)), nil
}

// -----------------------------------------------------------------------------
// Deposit Repository
// -----------------------------------------------------------------------------

type DepositRepo struct {
	store *MemoryStorage
}

func NewDepositRepo(store *MemoryStorage) *DepositRepo {
	return &DepositRepo{store: store}
}

func (r *DepositRepo) Record(ctx context.Context, d *domain.Deposit) error {
	amount, err := parseAmount(d.Amount)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, dup := r.store.txHashes[d.TxHash]; dup {
		return fmt.Errorf("%w: tx %s", storage.ErrConflict, d.TxHash)
	}
	lab, ok := r.store.labs[d.LabID]
	if !ok {
		return storage.ErrNotFound
	}
	tvl, err := parseAmount(lab.TVL)
	if err != nil {
		return err
	}
	lab.TVL = tvl.Add(tvl, amount).String()
	lab.UpdatedAt = r.store.now()

	d.ID = r.store.id()
	d.CreatedAt = r.store.now()
	if d.SharesOut == "" {
		d.SharesOut = "0"
	}
	cp := *d
	r.store.deposits = append(r.store.deposits, &cp)
	r.store.txHashes[d.TxHash] = struct{}{}
	return nil
}

func (r *DepositRepo) ListByLab(ctx context.Context, labID int64, page storage.Page) ([]*domain.Deposit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Deposit
	for i := len(r.store.deposits) - 1; i >= 0; i-- {
		if d := r.store.deposits[i]; d.LabID == labID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return paginate(out, page), nil
}

// -----------------------------------------------------------------------------
// Redemption Repository
// -----------------------------------------------------------------------------

type RedemptionRepo struct {
	store *MemoryStorage
}

func NewRedemptionRepo(store *MemoryStorage) *RedemptionRepo {
	return &RedemptionRepo{store: store}
}

func (r *RedemptionRepo) Record(ctx context.Context, rd *domain.Redemption) error {
	assets, err := parseAmount(rd.AssetsOut)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, dup := r.store.txHashes[rd.TxHash]; dup {
		return fmt.Errorf("%w: tx %s", storage.ErrConflict, rd.TxHash)
	}
	lab, ok := r.store.labs[rd.LabID]
	if !ok {
		return storage.ErrNotFound
	}
	tvl, err := parseAmount(lab.TVL)
	if err != nil {
		return err
	}
	if tvl.Cmp(assets) < 0 {
		return storage.ErrInsufficientTVL
	}
	lab.TVL = tvl.Sub(tvl, assets).String()
	lab.UpdatedAt = r.store.now()

	rd.ID = r.store.id()
	rd.CreatedAt = r.store.now()
	if rd.AssetsOut == "" {
		rd.AssetsOut = "0"
	}
	cp := *rd
	r.store.redemptions = append(r.store.redemptions, &cp)
	r.store.txHashes[rd.TxHash] = struct{}{}
	return nil
}

func (r *RedemptionRepo) List(ctx context.Context, filter domain.RedemptionFilter, page storage.Page) ([]*domain.Redemption, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Redemption
	for i := len(r.store.redemptions) - 1; i >= 0; i-- {
		rd := r.store.redemptions[i]
		if filter.User != "" && !strings.EqualFold(rd.User, filter.User) {
			continue
		}
		if filter.LabID > 0 && rd.LabID != filter.LabID {
			continue
		}
		cp := *rd
		out = append(out, &cp)
	}
	return paginate(out, page), nil
}

// -----------------------------------------------------------------------------
// Analytics Repository
// -----------------------------------------------------------------------------

type AnalyticsRepo struct {
	store *MemoryStorage
}

func NewAnalyticsRepo(store *MemoryStorage) *AnalyticsRepo {
	return &AnalyticsRepo{store: store}
}

func (r *AnalyticsRepo) Compute(ctx context.Context) (*domain.Analytics, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	total := new(big.Int)
	for _, lab := range r.store.labs {
		tvl, err := parseAmount(lab.TVL)
		if err != nil {
			return nil, err
		}
		total.Add(total, tvl)
	}
	depositors := make(map[string]struct{})
	for _, d := range r.store.deposits {
		depositors[strings.ToLower(d.User)] = struct{}{}
	}

	return &domain.Analytics{
		TotalLabs:        int64(len(r.store.labs)),
		TotalTVL:         total.String(),
		TotalDeposits:    int64(len(r.store.deposits)),
		TotalRedemptions: int64(len(r.store.redemptions)),
		UniqueDepositors: int64(len(depositors)),
		FaucetClaims:     int64(len(r.store.claims)),
		ComputedAt:       r.store.now(),
	}, nil
}

func (r *AnalyticsRepo) GetCached(ctx context.Context, key string) (*domain.Analytics, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.analytics[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AnalyticsRepo) PutCached(ctx context.Context, key string, a *domain.Analytics) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *a
	r.store.analytics[key] = &cp
	return nil
}

// -----------------------------------------------------------------------------
// Faucet Repository
// -----------------------------------------------------------------------------

type FaucetRepo struct {
	store *MemoryStorage
}

func NewFaucetRepo(store *MemoryStorage) *FaucetRepo {
	return &FaucetRepo{store: store}
}

func (r *FaucetRepo) Save(ctx context.Context, c *domain.FaucetClaim) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if c.ClaimedAt.IsZero() {
		c.ClaimedAt = r.store.now()
	}
	cp := *c
	r.store.claims = append(r.store.claims, &cp)
	return nil
}

func (r *FaucetRepo) ListByAddress(ctx context.Context, address string, page storage.Page) ([]*domain.FaucetClaim, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.FaucetClaim
	for i := len(r.store.claims) - 1; i >= 0; i-- {
		if c := r.store.claims[i]; strings.EqualFold(c.Address, address) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return paginate(out, page), nil
}
