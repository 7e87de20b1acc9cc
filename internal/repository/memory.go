package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"legaldesk/internal/domain"
)

// MemoryStore объединённое in-memory хранилище пользователей, услуг и заказов
type MemoryStore struct {
	mu           sync.RWMutex
	seq          int64
	now          func() time.Time
	usersByID    map[string]memUser
	emailIndex   map[string]string
	productsByID map[string]memProduct
	ordersByID   map[string]memOrder
}

// seq фиксирует порядок вставки для записей с одинаковым CreatedAt
type memUser struct {
	domain.User
	seq int64
}

type memProduct struct {
	domain.Product
	seq int64
}

type memOrder struct {
	domain.Order
	seq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          func() time.Time { return time.Now().UTC() },
		usersByID:    make(map[string]memUser),
		emailIndex:   make(map[string]string),
		productsByID: make(map[string]memProduct),
		ordersByID:   make(map[string]memOrder),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

func (m *MemoryStore) nextSeq() int64 {
	m.seq++
	return m.seq
}

func newestFirst(ai, bi time.Time, as, bs int64) bool {
	if !ai.Equal(bi) {
		return ai.After(bi)
	}
	return as > bs
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	cp := *p
	cp.WhatsIncluded = cloneList(p.WhatsIncluded)
	m.productsByID[p.ID] = memProduct{Product: cp, seq: m.nextSeq()}
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p.Product
	cp.WhatsIncluded = cloneList(cp.WhatsIncluded)
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Product = patch.Apply(p.Product)
	m.productsByID[id] = p
	cp := p.Product
	cp.WhatsIncluded = cloneList(cp.WhatsIncluded)
	return &cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	rows := make([]memProduct, 0, len(m.productsByID))
	for _, p := range m.productsByID {
		if !f.match(p.Product) {
			continue
		}
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		return newestFirst(rows[i].CreatedAt, rows[j].CreatedAt, rows[i].seq, rows[j].seq)
	})
	out := make([]domain.Product, 0, len(rows))
	for _, p := range rows {
		cp := p.Product
		cp.WhatsIncluded = cloneList(cp.WhatsIncluded)
		out = append(out, cp)
	}
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	return len(m.productsByID), nil
}

// UserRepository implementation on wrapper type
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (mu *MemoryUsers) Create(ctx context.Context, u *domain.User) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	key := strings.ToLower(u.Email)
	if _, taken := mu.store.emailIndex[key]; taken {
		return ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = mu.store.now()
	}
	mu.store.usersByID[u.ID] = memUser{User: *u, seq: mu.store.nextSeq()}
	mu.store.emailIndex[key] = u.ID
	return nil
}

func (mu *MemoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u.User
	return &cp, nil
}

func (mu *MemoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	id, ok := mu.store.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := mu.store.usersByID[id].User
	return &cp, nil
}

func (mu *MemoryUsers) List(ctx context.Context) ([]domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	rows := make([]memUser, 0, len(mu.store.usersByID))
	for _, u := range mu.store.usersByID {
		rows = append(rows, u)
	}
	sort.Slice(rows, func(i, j int) bool {
		return newestFirst(rows[i].CreatedAt, rows[j].CreatedAt, rows[i].seq, rows[j].seq)
	})
	out := make([]domain.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, u.User)
	}
	return out, nil
}

func (mu *MemoryUsers) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Role = role
	mu.store.usersByID[id] = u
	cp := u.User
	return &cp, nil
}

func (mu *MemoryUsers) Delete(ctx context.Context, id string) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return ErrNotFound
	}
	delete(mu.store.emailIndex, strings.ToLower(u.Email))
	delete(mu.store.usersByID, id)
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	// emulate foreign keys
	if _, ok := mo.store.usersByID[o.UserID]; !ok {
		return ErrNotFound
	}
	if _, ok := mo.store.productsByID[o.ProductID]; !ok {
		return ErrNotFound
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = mo.store.now()
	o.UpdatedAt = o.CreatedAt
	mo.store.ordersByID[o.ID] = memOrder{Order: cloneOrder(*o), seq: mo.store.nextSeq()}
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o.Order)
	return &cp, nil
}

func (mo *MemoryOrders) GetDetails(ctx context.Context, id string) (*domain.OrderDetails, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	d := mo.details(o.Order, true, true)
	return &d, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Order = patch.Apply(o.Order)
	o.UpdatedAt = mo.store.now()
	mo.store.ordersByID[id] = o
	cp := cloneOrder(o.Order)
	return &cp, nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id string) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[id]; !ok {
		return ErrNotFound
	}
	delete(mo.store.ordersByID, id)
	return nil
}

func (mo *MemoryOrders) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	return mo.deleteWhere(ctx, func(o domain.Order) bool { return o.ProductID == productID }), nil
}

func (mo *MemoryOrders) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return mo.deleteWhere(ctx, func(o domain.Order) bool { return o.UserID == userID }), nil
}

func (mo *MemoryOrders) deleteWhere(ctx context.Context, pred func(domain.Order) bool) int {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	n := 0
	for id, o := range mo.store.ordersByID {
		if pred(o.Order) {
			delete(mo.store.ordersByID, id)
			n++
		}
	}
	return n
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.OrderDetails, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	rows := make([]memOrder, 0)
	for _, o := range mo.store.ordersByID {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		rows = append(rows, o)
	}
	sort.Slice(rows, func(i, j int) bool {
		return newestFirst(rows[i].CreatedAt, rows[j].CreatedAt, rows[i].seq, rows[j].seq)
	})
	out := make([]domain.OrderDetails, 0, len(rows))
	for _, o := range rows {
		out = append(out, mo.details(o.Order, false, f.IncludeUser))
	}
	return out, nil
}

func (mo *MemoryOrders) Stats(ctx context.Context) (OrderStats, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	st := newOrderStats()
	clients := make(map[string]struct{})
	for _, o := range mo.store.ordersByID {
		st.Total++
		st.ByStatus[o.Status]++
		clients[o.UserID] = struct{}{}
		if p, ok := mo.store.productsByID[o.ProductID]; ok {
			st.Revenue += p.Price
		}
	}
	st.Clients = len(clients)
	return st, nil
}

// details собирает представление заказа; вызывается под блокировкой
func (mo *MemoryOrders) details(o domain.Order, withDescription, withUser bool) domain.OrderDetails {
	d := domain.OrderDetails{Order: cloneOrder(o), Progress: o.Status.Progress()}
	if p, ok := mo.store.productsByID[o.ProductID]; ok {
		d.Product = productSummary(p.Product, withDescription)
	}
	if withUser {
		if u, ok := mo.store.usersByID[o.UserID]; ok {
			d.User = userSummary(u.User)
		}
	}
	return d
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

// WithTransaction держит запись на всё время fn; при ошибке или панике состояние откатывается к снимку
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	snap := tx.store.snapshot()
	committed := false
	defer func() {
		if !committed {
			tx.store.restore(snap)
		}
	}()

	ctx = context.WithValue(ctx, txKey{}, true)
	if err := fn(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// записи в картах заменяются целиком, поэтому поверхностной копии достаточно
type memSnapshot struct {
	seq      int64
	users    map[string]memUser
	emails   map[string]string
	products map[string]memProduct
	orders   map[string]memOrder
}

func (s *MemoryStore) snapshot() memSnapshot {
	return memSnapshot{
		seq:      s.seq,
		users:    maps.Clone(s.usersByID),
		emails:   maps.Clone(s.emailIndex),
		products: maps.Clone(s.productsByID),
		orders:   maps.Clone(s.ordersByID),
	}
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.seq = snap.seq
	s.usersByID = snap.users
	s.emailIndex = snap.emails
	s.productsByID = snap.products
	s.ordersByID = snap.orders
}

func cloneList(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneOrder(o domain.Order) domain.Order {
	if o.PaymentMethod != nil {
		v := *o.PaymentMethod
		o.PaymentMethod = &v
	}
	if o.InvoiceURL != nil {
		v := *o.InvoiceURL
		o.InvoiceURL = &v
	}
	return o
}
