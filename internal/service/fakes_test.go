package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
)

// memStore is an in-memory stand-in for the database. WithTx holds mu for the
// whole transaction, which gives the same serialization as row locks, and
// only copies the working state back when fn succeeds.
type memStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]model.Product
	batches   map[uuid.UUID]model.ProductBatch
	movements []model.InventoryMovement
	sales     []model.Sale
	orders    map[uuid.UUID]model.PurchaseOrder

	failCreateSale error
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[uuid.UUID]model.Product),
		batches:  make(map[uuid.UUID]model.ProductBatch),
		orders:   make(map[uuid.UUID]model.PurchaseOrder),
	}
}

func (s *memStore) addProduct(name string, reorder int) model.Product {
	p := model.Product{Name: name, ReorderLevel: reorder}
	p.ID = uuid.New()
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return p
}

func (s *memStore) addBatch(productID uuid.UUID, number string, qty int, price string, expiry time.Time) model.ProductBatch {
	b := model.ProductBatch{
		ProductID:    productID,
		BatchNumber:  number,
		ExpiryDate:   expiry,
		CostPrice:    decimal.RequireFromString(price),
		SellingPrice: decimal.RequireFromString(price),
		Quantity:     qty,
	}
	b.ID = uuid.New()
	s.mu.Lock()
	s.batches[b.ID] = b
	s.mu.Unlock()
	return b
}

func (s *memStore) batch(id uuid.UUID) model.ProductBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[id]
}

func (s *memStore) allMovements() []model.InventoryMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.InventoryMovement(nil), s.movements...)
}

func (s *memStore) allSales() []model.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Sale(nil), s.sales...)
}

func (s *memStore) onHand(productID uuid.UUID) int {
	total := 0
	for _, b := range s.batches {
		if b.ProductID == productID {
			total += b.Quantity
		}
	}
	return total
}

// memTx works on a private copy of the store.
type memTx struct {
	store     *memStore
	batches   map[uuid.UUID]model.ProductBatch
	movements []model.InventoryMovement
	sales     []model.Sale
	orders    map[uuid.UUID]model.PurchaseOrder
}

func (s *memStore) begin() *memTx {
	tx := &memTx{
		store:     s,
		batches:   make(map[uuid.UUID]model.ProductBatch, len(s.batches)),
		movements: append([]model.InventoryMovement(nil), s.movements...),
		sales:     append([]model.Sale(nil), s.sales...),
		orders:    make(map[uuid.UUID]model.PurchaseOrder, len(s.orders)),
	}
	for id, b := range s.batches {
		tx.batches[id] = b
	}
	for id, po := range s.orders {
		po.Items = append([]model.PurchaseOrderItem(nil), po.Items...)
		tx.orders[id] = po
	}
	return tx
}

func (tx *memTx) commit() {
	tx.store.batches = tx.batches
	tx.store.movements = tx.movements
	tx.store.sales = tx.sales
	tx.store.orders = tx.orders
}

func (tx *memTx) LockBatches(ids []uuid.UUID) ([]model.ProductBatch, error) {
	out := make([]model.ProductBatch, 0, len(ids))
	for _, id := range ids {
		if b, ok := tx.batches[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (tx *memTx) AdjustBatchQuantity(id uuid.UUID, delta int, updatedBy string) error {
	b, ok := tx.batches[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if b.Quantity+delta < 0 {
		return repository.ErrNegativeStock
	}
	b.Quantity += delta
	b.UpdatedBy = updatedBy
	tx.batches[id] = b
	return nil
}

func (tx *memTx) FindBatchByNumber(productID uuid.UUID, batchNumber string) (*model.ProductBatch, error) {
	for _, b := range tx.batches {
		if b.ProductID == productID && b.BatchNumber == batchNumber {
			return &b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (tx *memTx) CreateBatch(batch *model.ProductBatch) error {
	if _, err := tx.FindBatchByNumber(batch.ProductID, batch.BatchNumber); err == nil {
		return gorm.ErrDuplicatedKey
	}
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	tx.batches[batch.ID] = *batch
	return nil
}

func (tx *memTx) AppendMovements(movements []model.InventoryMovement) error {
	for i := range movements {
		if movements[i].ID == uuid.Nil {
			movements[i].ID = uuid.New()
		}
		tx.movements = append(tx.movements, movements[i])
	}
	return nil
}

func (tx *memTx) CreateSale(sale *model.Sale) error {
	if tx.store.failCreateSale != nil {
		return tx.store.failCreateSale
	}
	tx.sales = append(tx.sales, *sale)
	return nil
}

func (tx *memTx) LockPurchaseOrder(id uuid.UUID) (*model.PurchaseOrder, error) {
	po, ok := tx.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	po.Items = append([]model.PurchaseOrderItem(nil), po.Items...)
	return &po, nil
}

func (tx *memTx) UpdatePurchaseOrder(po *model.PurchaseOrder) error {
	if _, ok := tx.orders[po.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	tx.orders[po.ID] = *po
	return nil
}

type memLedger struct{ *memStore }

func (l memLedger) WithTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx := l.begin()
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (l memLedger) FindBatch(ctx context.Context, id uuid.UUID) (*model.ProductBatch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (l memLedger) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]model.ProductBatch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.ProductBatch
	for _, b := range l.batches {
		if filter.ProductID != nil && b.ProductID != *filter.ProductID {
			continue
		}
		if filter.InStockOnly && b.Quantity == 0 {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (l memLedger) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.InventoryMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.InventoryMovement
	for _, m := range l.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.BatchID != nil && m.BatchID != *filter.BatchID {
			continue
		}
		if filter.MovementType != "" && m.MovementType != filter.MovementType {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (l memLedger) StockLevels(ctx context.Context, productIDs ...uuid.UUID) ([]model.StockLevel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := productIDs
	if len(ids) == 0 {
		for id := range l.products {
			ids = append(ids, id)
		}
	}
	levels := make([]model.StockLevel, 0, len(ids))
	for _, id := range ids {
		p := l.products[id]
		levels = append(levels, model.StockLevel{ProductID: id, ProductName: p.Name, OnHand: l.onHand(id), ReorderLevel: p.ReorderLevel})
	}
	return levels, nil
}

type memSales struct{ *memStore }

func (r memSales) FindAll(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, error) {
	var out []model.Sale
	for _, s := range r.allSales() {
		if filter.CashierID != nil && s.CashierID != *filter.CashierID {
			continue
		}
		if filter.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *filter.CustomerID) {
			continue
		}
		if filter.From != nil && s.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.CreatedAt.Before(*filter.To) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r memSales) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	for _, s := range r.allSales() {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type memOrders struct{ *memStore }

func (r memOrders) Create(ctx context.Context, po *model.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	po.ID = uuid.New()
	for i := range po.Items {
		po.Items[i].ID = uuid.New()
		po.Items[i].PurchaseOrderID = po.ID
	}
	stored := *po
	stored.Items = append([]model.PurchaseOrderItem(nil), po.Items...)
	r.orders[po.ID] = stored
	return nil
}

func (r memOrders) FindAll(ctx context.Context, status model.PurchaseOrderStatus) ([]model.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PurchaseOrder
	for _, po := range r.orders {
		if status == "" || po.Status == status {
			out = append(out, po)
		}
	}
	return out, nil
}

func (r memOrders) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	po, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &po, nil
}

type memProducts struct{ *memStore }

func (r memProducts) Create(ctx context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Barcode != nil {
		for _, existing := range r.products {
			if existing.Barcode != nil && *existing.Barcode == *p.Barcode {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = *p
	return nil
}

func (r memProducts) FindAll(ctx context.Context, filter repository.ProductFilter) ([]model.ProductWithStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ProductWithStock
	for _, p := range r.products {
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		row := model.ProductWithStock{Product: p, OnHand: r.onHand(p.ID)}
		if filter.LowStockOnly && row.OnHand > p.ReorderLevel {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r memProducts) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r memProducts) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Barcode != nil && *p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memProducts) Update(ctx context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.products[p.ID] = *p
	return nil
}

func (r memProducts) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.products, id)
	return nil
}

func (r memProducts) OnHand(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onHand(id), nil
}

func (r memProducts) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.products {
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// memCrud is a map-backed CrudRepository.
type memCrud[T any] struct {
	mu    sync.Mutex
	items map[uuid.UUID]T
	base  func(*T) *model.BaseModel
}

func newMemCrud[T any](base func(*T) *model.BaseModel) *memCrud[T] {
	return &memCrud[T]{items: make(map[uuid.UUID]T), base: base}
}

func (r *memCrud[T]) Create(ctx context.Context, item *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.base(item)
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.items[b.ID] = *item
	return nil
}

func (r *memCrud[T]) FindAll(ctx context.Context, search string) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out, nil
}

func (r *memCrud[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &it, nil
}

func (r *memCrud[T]) Update(ctx context.Context, item *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.base(item).ID
	if _, ok := r.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.items[id] = *item
	return nil
}

func (r *memCrud[T]) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.items, id)
	return nil
}

// memRoles holds the three default roles with their policy grants.
type memRoles struct {
	roles []model.Role
}

func newMemRoles() *memRoles {
	r := &memRoles{}
	for i, def := range model.DefaultRoles {
		role := def
		role.ID = uint(i + 1)
		for _, code := range access.GrantsFor(role.Code) {
			role.Privileges = append(role.Privileges, model.Privilege{Code: code})
		}
		r.roles = append(r.roles, role)
	}
	return r
}

func (r *memRoles) FindAll(ctx context.Context) ([]model.Role, error) { return r.roles, nil }

func (r *memRoles) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	for _, role := range r.roles {
		if role.ID == id {
			return &role, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRoles) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	for _, role := range r.roles {
		if role.Code == code {
			return &role, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRoles) SeedDefaults(ctx context.Context) error { return nil }

func (r *memRoles) ReplacePrivileges(ctx context.Context, role *model.Role, privileges []model.Privilege) error {
	for i := range r.roles {
		if r.roles[i].ID == role.ID {
			r.roles[i].Privileges = privileges
		}
	}
	return nil
}

func (r *memRoles) id(code string) uint {
	role, _ := r.FindByCode(context.Background(), code)
	return role.ID
}

// memUsers mimics the user table plus the profile-creating AfterCreate hook.
type memUsers struct {
	mu         sync.Mutex
	roles      *memRoles
	users      map[uuid.UUID]model.User
	calls      int
	accountErr error
}

func newMemUsers(roles *memRoles) *memUsers {
	return &memUsers{roles: roles, users: make(map[uuid.UUID]model.User)}
}

func (r *memUsers) load(u model.User) *model.User {
	if u.Profile != nil {
		profile := *u.Profile
		profile.Role, _ = r.roles.FindByID(context.Background(), profile.RoleID)
		u.Profile = &profile
	}
	return &u
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, u := range r.users {
		if u.Email == email {
			return r.load(u), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.load(u), nil
}

func (r *memUsers) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	roleID := r.roles.id(model.DefaultSignupRole)
	if user.InitialRoleID != nil {
		roleID = *user.InitialRoleID
	}
	user.Profile = &model.Profile{UserID: user.ID, FullName: user.InitialFullName, Phone: user.InitialPhone, RoleID: roleID, IsActive: true}
	user.Profile.ID = uuid.New()
	r.users[user.ID] = *user
	return nil
}

// UpdateProfile replaces the stored profile. Tests use it to arrange state.
func (r *memUsers) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[profile.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p := *profile
	p.Role = nil
	u.Profile = &p
	r.users[u.ID] = u
	return nil
}

func (r *memUsers) UpdateAccount(ctx context.Context, profile *model.Profile, hashedPassword, tokenVersion *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.accountErr != nil {
		return r.accountErr
	}
	u, ok := r.users[profile.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p := *profile
	p.Role = nil
	u.Profile = &p
	if hashedPassword != nil {
		u.Password = *hashedPassword
	}
	if tokenVersion != nil {
		u.TokenVersion = *tokenVersion
	}
	r.users[u.ID] = u
	return nil
}

func (r *memUsers) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUsers) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword, tokenVersion string) error {
	return r.update(userID, func(u *model.User) {
		u.Password = hashedPassword
		u.TokenVersion = tokenVersion
	})
}

func (r *memUsers) FindAll(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *r.load(u))
	}
	return out, nil
}

func (r *memUsers) UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error {
	return r.update(userID, func(u *model.User) { u.TokenVersion = version })
}

func (r *memUsers) UpdateLastSeen(ctx context.Context, userID uuid.UUID) error {
	return r.update(userID, func(u *model.User) {
		now := time.Now()
		u.LastSeenAt = &now
	})
}

func (r *memUsers) update(id uuid.UUID, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}

// addUser stores an active user with the given role and password.
func (r *memUsers) addUser(t *testing.T, email, password, role string) *model.User {
	t.Helper()
	roleID := r.roles.id(role)
	u := &model.User{Email: email, InitialFullName: strings.Split(email, "@")[0], InitialRoleID: &roleID}
	if err := u.SetPassword(password); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

type published struct {
	Type    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type countingInvalidator struct {
	mu    sync.Mutex
	bumps int
}

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumps++
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bumps
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

func sessionFor(role string) *session.Session {
	return &session.Session{
		UserID:     uuid.New(),
		Role:       role,
		Privileges: access.GrantsFor(role),
		Screens:    access.ScreensFor(role),
	}
}

func inAMonth() time.Time {
	return time.Now().AddDate(0, 0, 30)
}
