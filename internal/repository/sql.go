package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"legaldesk/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// OpenDB открывает подключение к postgres или sqlite
func OpenDB(ctx context.Context, driverName, dsn string) (*sqlx.DB, error) {
	switch driverName {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driverName)
	}
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if driverName == DriverSQLite {
		// single writer; keeps transactions from hitting SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return db, nil
}

// SQLiteDSN строит DSN для файла sqlite с включёнными внешними ключами
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// StringList хранит упорядоченный список строк в JSON-колонке
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported whats_included type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID: r.ID, Name: r.Name, Email: r.Email, PasswordHash: r.PasswordHash,
		Role: domain.Role(r.Role), CreatedAt: r.CreatedAt.UTC(),
	}
}

type productRow struct {
	ID             string     `db:"id"`
	Title          string     `db:"title"`
	Description    string     `db:"description"`
	Price          int64      `db:"price"`
	Category       string     `db:"category"`
	ProcessingTime string     `db:"processing_time"`
	WhatsIncluded  StringList `db:"whats_included"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID: r.ID, Title: r.Title, Description: r.Description, Price: r.Price,
		Category: r.Category, ProcessingTime: r.ProcessingTime,
		WhatsIncluded: []string(r.WhatsIncluded), CreatedAt: r.CreatedAt.UTC(),
	}
}

type orderRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	ProductID     string    `db:"product_id"`
	Status        string    `db:"status"`
	PaymentMethod *string   `db:"payment_method"`
	InvoiceURL    *string   `db:"invoice_url"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r orderRow) toDomain() domain.Order {
	return domain.Order{
		ID: r.ID, UserID: r.UserID, ProductID: r.ProductID, Status: domain.OrderStatus(r.Status),
		PaymentMethod: r.PaymentMethod, InvoiceURL: r.InvoiceURL,
		CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type orderDetailsRow struct {
	orderRow
	ProductTitle       string `db:"product_title"`
	ProductDescription string `db:"product_description"`
	ProductPrice       int64  `db:"product_price"`
	ProductCategory    string `db:"product_category"`
	UserName           string `db:"user_name"`
	UserEmail          string `db:"user_email"`
}

func (r orderDetailsRow) toDomain(withDescription, withUser bool) domain.OrderDetails {
	o := r.orderRow.toDomain()
	d := domain.OrderDetails{Order: o, Progress: o.Status.Progress()}
	d.Product = productSummary(domain.Product{
		ID: r.ProductID, Title: r.ProductTitle, Description: r.ProductDescription,
		Price: r.ProductPrice, Category: r.ProductCategory,
	}, withDescription)
	if withUser {
		d.User = &domain.UserSummary{ID: r.UserID, Name: r.UserName, Email: r.UserEmail}
	}
	return d
}

const (
	userColumns    = `id, name, email, password_hash, role, created_at`
	productColumns = `id, title, description, price, category, processing_time, whats_included, created_at`
	orderColumns   = `id, user_id, product_id, status, payment_method, invoice_url, created_at, updated_at`
)

const orderDetailsQuery = `SELECT o.id, o.user_id, o.product_id, o.status, o.payment_method, o.invoice_url,
	o.created_at, o.updated_at,
	p.title AS product_title, p.description AS product_description, p.price AS product_price,
	p.category AS product_category, u.name AS user_name, u.email AS user_email
FROM orders o
JOIN products p ON p.id = o.product_id
JOIN users u ON u.id = o.user_id`

// SQLStore хранилище услуг поверх postgres или sqlite
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type sqlTxKey struct{}

// ext возвращает транзакцию из контекста либо само подключение
func (s *SQLStore) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

func (s *SQLStore) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, s.ext(ctx), dest, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return translate(err)
}

func (s *SQLStore) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return translate(sqlx.SelectContext(ctx, s.ext(ctx), dest, s.db.Rebind(query), args...))
}

// exec возвращает количество затронутых строк
func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (int, error) {
	res, err := s.ext(ctx).ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLStore) execOne(ctx context.Context, query string, args ...any) error {
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure interfaces
var _ ProductRepository = (*SQLStore)(nil)

func (s *SQLStore) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	_, err := s.exec(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.Price, p.Category, p.ProcessingTime, StringList(p.WhatsIncluded), p.CreatedAt)
	return err
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	if err := s.get(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = ?`, id); err != nil {
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Title.Set {
		set("title", derefString(patch.Title.Value))
	}
	if patch.Description.Set {
		set("description", derefString(patch.Description.Value))
	}
	if patch.Price.Value != nil {
		set("price", *patch.Price.Value)
	}
	if patch.Category.Set {
		set("category", derefString(patch.Category.Value))
	}
	if patch.ProcessingTime.Set {
		set("processing_time", derefString(patch.ProcessingTime.Value))
	}
	if patch.WhatsIncluded.Set {
		var list StringList
		if patch.WhatsIncluded.Value != nil {
			list = StringList(*patch.WhatsIncluded.Value)
		}
		set("whats_included", list)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if err := s.execOne(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM products WHERE id = ?`, id)
}

func (s *SQLStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1 = 1`
	var args []any
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query += ` AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?)`
		args = append(args, like, like, like)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	var rows []productRow
	if err := s.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.get(ctx, &n, `SELECT COUNT(*) FROM products`)
	return n, err
}

// SQLUsers репозиторий пользователей поверх SQLStore
type SQLUsers struct{ store *SQLStore }

func NewSQLUsers(store *SQLStore) *SQLUsers { return &SQLUsers{store: store} }

var _ UserRepository = (*SQLUsers)(nil)

func (su *SQLUsers) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = su.store.now()
	}
	_, err := su.store.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt)
	return err
}

func (su *SQLUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := su.store.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	u := row.toDomain()
	return &u, nil
}

func (su *SQLUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	if err := su.store.get(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)); err != nil {
		return nil, err
	}
	u := row.toDomain()
	return &u, nil
}

func (su *SQLUsers) List(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := su.store.selectAll(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (su *SQLUsers) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	if err := su.store.execOne(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id); err != nil {
		return nil, err
	}
	return su.GetByID(ctx, id)
}

func (su *SQLUsers) Delete(ctx context.Context, id string) error {
	return su.store.execOne(ctx, `DELETE FROM users WHERE id = ?`, id)
}

// SQLOrders репозиторий заказов поверх SQLStore
type SQLOrders struct{ store *SQLStore }

func NewSQLOrders(store *SQLStore) *SQLOrders { return &SQLOrders{store: store} }

var _ OrderRepository = (*SQLOrders)(nil)

func (so *SQLOrders) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = so.store.now()
	o.UpdatedAt = o.CreatedAt
	_, err := so.store.exec(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.ProductID, string(o.Status), o.PaymentMethod, o.InvoiceURL, o.CreatedAt, o.UpdatedAt)
	return err
}

func (so *SQLOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	if err := so.store.get(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id); err != nil {
		return nil, err
	}
	o := row.toDomain()
	return &o, nil
}

func (so *SQLOrders) GetDetails(ctx context.Context, id string) (*domain.OrderDetails, error) {
	var row orderDetailsRow
	if err := so.store.get(ctx, &row, orderDetailsQuery+` WHERE o.id = ?`, id); err != nil {
		return nil, err
	}
	d := row.toDomain(true, true)
	return &d, nil
}

// Update пишет только переданные колонки, поэтому параллельные правки
// разных полей не затирают друг друга
func (so *SQLOrders) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	sets := []string{"updated_at = ?"}
	args := []any{so.store.now()}
	if patch.Status.Value != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status.Value)
	}
	if patch.PaymentMethod.Set {
		sets = append(sets, "payment_method = ?")
		args = append(args, patch.PaymentMethod.Value)
	}
	if patch.InvoiceURL.Set {
		sets = append(sets, "invoice_url = ?")
		args = append(args, patch.InvoiceURL.Value)
	}
	args = append(args, id)
	if err := so.store.execOne(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, err
	}
	return so.GetByID(ctx, id)
}

func (so *SQLOrders) Delete(ctx context.Context, id string) error {
	return so.store.execOne(ctx, `DELETE FROM orders WHERE id = ?`, id)
}

func (so *SQLOrders) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	return so.store.exec(ctx, `DELETE FROM orders WHERE product_id = ?`, productID)
}

func (so *SQLOrders) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return so.store.exec(ctx, `DELETE FROM orders WHERE user_id = ?`, userID)
}

func (so *SQLOrders) List(ctx context.Context, f OrderFilter) ([]domain.OrderDetails, error) {
	query := orderDetailsQuery
	var args []any
	if f.UserID != "" {
		query += ` WHERE o.user_id = ?`
		args = append(args, f.UserID)
	}
	query += ` ORDER BY o.created_at DESC, o.id DESC`
	var rows []orderDetailsRow
	if err := so.store.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.OrderDetails, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain(false, f.IncludeUser))
	}
	return out, nil
}

func (so *SQLOrders) Stats(ctx context.Context) (OrderStats, error) {
	st := newOrderStats()
	var byStatus []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := so.store.selectAll(ctx, &byStatus, `SELECT status, COUNT(*) AS n FROM orders GROUP BY status`); err != nil {
		return st, err
	}
	for _, r := range byStatus {
		st.ByStatus[domain.OrderStatus(r.Status)] = r.N
		st.Total += r.N
	}
	var totals struct {
		Revenue int64 `db:"revenue"`
		Clients int   `db:"clients"`
	}
	err := so.store.get(ctx, &totals, `SELECT COALESCE(SUM(p.price), 0) AS revenue, COUNT(DISTINCT o.user_id) AS clients
FROM orders o JOIN products p ON p.id = o.product_id`)
	if err != nil {
		return st, err
	}
	st.Revenue = totals.Revenue
	st.Clients = totals.Clients
	return st, nil
}

// SQLTx кладёт *sqlx.Tx в контекст; репозитории берут его через ext
type SQLTx struct{ store *SQLStore }

func NewSQLTx(store *SQLStore) *SQLTx { return &SQLTx{store: store} }

func (t *SQLTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(sqlTxKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := t.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// translate приводит ошибки ограничений драйверов к ErrDuplicate/ErrNotFound
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		}
		return err
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	// primary result codes only carry SQLITE_CONSTRAINT
	switch msg := err.Error(); {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
