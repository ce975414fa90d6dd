package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mada-pay/mada_pay/internal/domain"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists wallets, transactions and investments in PostgreSQL.
type PostgresStore struct {
	pgQueries
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgQueries: pgQueries{q: db}, db: db}
}

// Atomic runs fn inside one database transaction. Rows read through the Lock
// methods are held with SELECT ... FOR UPDATE until commit or rollback.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgTx{pgQueries: pgQueries{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const walletColumns = `id, owner_id, class, name, currency, balance::text, locked_balance::text,
        status, account_number, created_at, updated_at`

const transactionColumns = `id, uuid, from_wallet_id, to_wallet_id, type, amount::text, currency, fee::text,
        status, mobile_money_number, mobile_money_provider, mobile_money_reference, description,
        metadata, completed_at, failure_reason, created_at, updated_at`

const investmentColumns = `id, owner_id, wallet_id, funding_wallet_id, asset, quantity::text,
        purchase_price::text, purchase_price_usd::text, total_invested::text, total_invested_usd::text,
        current_price::text, current_price_usd::text, current_value::text, current_value_usd::text,
        unrealized_pnl::text, unrealized_pnl_usd::text, pnl_percentage::text, status, sold_at,
        sell_price::text, sell_price_usd::text, realized_pnl::text, realized_pnl_usd::text,
        purchase_transaction_id, sell_transaction_id, notes, price_updated_at, created_at, updated_at`

type pgQueries struct {
	q querier
}

func (p pgQueries) Wallet(ctx context.Context, id int64) (domain.Wallet, error) {
	return scanWallet(p.q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id), id)
}

func (p pgQueries) WalletsByOwner(ctx context.Context, ownerID int64) ([]domain.Wallet, error) {
	rows, err := p.q.Query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p pgQueries) Transaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return scanTransaction(p.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id), id)
}

func (p pgQueries) RecentTransactions(ctx context.Context, walletIDs []int64, limit int) ([]domain.Transaction, error) {
	if len(walletIDs) == 0 {
		return []domain.Transaction{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + transactionColumns + ` FROM transactions
        WHERE from_wallet_id = ANY($1) OR to_wallet_id = ANY($1)
        ORDER BY created_at DESC, id DESC
        LIMIT $2`
	rows, err := p.q.Query(ctx, query, walletIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p pgQueries) Investment(ctx context.Context, id int64) (domain.Investment, error) {
	return scanInvestment(p.q.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1`, id), id)
}

func (p pgQueries) InvestmentsByOwner(ctx context.Context, ownerID int64, status domain.InvestmentStatus) ([]domain.Investment, error) {
	const query = `SELECT ` + investmentColumns + ` FROM investments
        WHERE owner_id = $1 AND ($2 = '' OR status = $2)
        ORDER BY created_at DESC, id DESC`
	rows, err := p.q.Query(ctx, query, ownerID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Investment, 0)
	for rows.Next() {
		inv, err := scanInvestment(rows, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type pgTx struct {
	pgQueries
}

func (t *pgTx) LockWallet(ctx context.Context, id int64) (domain.Wallet, error) {
	return scanWallet(t.q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id), id)
}

func (t *pgTx) LockWalletByKind(ctx context.Context, ownerID int64, kind domain.WalletKind) (domain.Wallet, bool, error) {
	const query = `SELECT ` + walletColumns + ` FROM wallets
        WHERE owner_id = $1 AND class = $2 AND ($3 = '' OR currency = $3) AND status <> 'closed'
        FOR UPDATE`
	currency := ""
	if asset, ok := kind.Asset(); ok {
		currency = asset.Symbol()
	}
	w, err := scanWallet(t.q.QueryRow(ctx, query, ownerID, string(kind.Class()), currency), 0)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Wallet{}, false, nil
	}
	if err != nil {
		return domain.Wallet{}, false, err
	}
	return w, true, nil
}

func (t *pgTx) InsertWallet(ctx context.Context, w *domain.Wallet) error {
	const query = `INSERT INTO wallets (owner_id, class, name, currency, balance, locked_balance, status, account_number)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	err := t.q.QueryRow(ctx, query,
		w.OwnerID, string(w.Kind.Class()), w.Name, w.Currency,
		w.Balance.String(), w.LockedBalance.String(), string(w.Status), w.AccountNumber,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.Fail(domain.ErrConflict, "owner %d already has a %s wallet", w.OwnerID, w.Kind)
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateWallet(ctx context.Context, w domain.Wallet) error {
	tag, err := t.q.Exec(ctx, `UPDATE wallets
        SET name = $2, balance = $3, locked_balance = $4, status = $5, updated_at = NOW()
        WHERE id = $1`,
		w.ID, w.Name, w.Balance.String(), w.LockedBalance.String(), string(w.Status))
	if err != nil {
		return fmt.Errorf("update wallet %d: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Fail(domain.ErrNotFound, "wallet %d", w.ID)
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	const query = `INSERT INTO transactions (uuid, from_wallet_id, to_wallet_id, type, amount, currency, fee, status,
            mobile_money_number, mobile_money_provider, mobile_money_reference, description, metadata,
            completed_at, failure_reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id, created_at, updated_at`
	err := t.q.QueryRow(ctx, query,
		tr.UUID, tr.FromWalletID, tr.ToWalletID, string(tr.Type), tr.Amount.String(), tr.Currency,
		tr.Fee.String(), string(tr.Status), tr.MobileMoneyNumber, tr.MobileMoneyProvider,
		tr.MobileMoneyReference, tr.Description, metadataOrEmpty(tr.Metadata), tr.CompletedAt, tr.FailureReason,
	).Scan(&tr.ID, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (t *pgTx) LockTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return scanTransaction(t.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id), id)
}

func (t *pgTx) UpdateTransaction(ctx context.Context, tr domain.Transaction) error {
	tag, err := t.q.Exec(ctx, `UPDATE transactions
        SET status = $2, mobile_money_reference = $3, description = $4, metadata = $5,
            completed_at = $6, failure_reason = $7, updated_at = NOW()
        WHERE id = $1`,
		tr.ID, string(tr.Status), tr.MobileMoneyReference, tr.Description, metadataOrEmpty(tr.Metadata),
		tr.CompletedAt, tr.FailureReason)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", tr.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Fail(domain.ErrNotFound, "transaction %d", tr.ID)
	}
	return nil
}

func (t *pgTx) InsertInvestment(ctx context.Context, inv *domain.Investment) error {
	const query = `INSERT INTO investments (owner_id, wallet_id, funding_wallet_id, asset, quantity,
            purchase_price, purchase_price_usd, total_invested, total_invested_usd,
            current_price, current_price_usd, current_value, current_value_usd,
            unrealized_pnl, unrealized_pnl_usd, pnl_percentage, status,
            purchase_transaction_id, notes, price_updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
        RETURNING id, created_at, updated_at`
	err := t.q.QueryRow(ctx, query,
		inv.OwnerID, inv.WalletID, inv.FundingWalletID, string(inv.Asset), inv.Quantity.String(),
		inv.PurchasePrice.String(), inv.PurchasePriceUSD.String(), inv.TotalInvested.String(), inv.TotalInvestedUSD.String(),
		inv.CurrentPrice.String(), inv.CurrentPriceUSD.String(), inv.CurrentValue.String(), inv.CurrentValueUSD.String(),
		inv.UnrealizedPnL.String(), inv.UnrealizedPnLUSD.String(), inv.PnLPercentage.String(), string(inv.Status),
		inv.PurchaseTransactionID, inv.Notes, inv.PriceUpdatedAt,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert investment: %w", err)
	}
	return nil
}

func (t *pgTx) LockInvestment(ctx context.Context, id int64) (domain.Investment, error) {
	return scanInvestment(t.q.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1 FOR UPDATE`, id), id)
}

func (t *pgTx) UpdateInvestment(ctx context.Context, inv domain.Investment) error {
	tag, err := t.q.Exec(ctx, `UPDATE investments
        SET current_price = $2, current_price_usd = $3, current_value = $4, current_value_usd = $5,
            unrealized_pnl = $6, unrealized_pnl_usd = $7, pnl_percentage = $8, status = $9, sold_at = $10,
            sell_price = $11, sell_price_usd = $12, realized_pnl = $13, realized_pnl_usd = $14,
            sell_transaction_id = $15, notes = $16, price_updated_at = $17, updated_at = NOW()
        WHERE id = $1`,
		inv.ID, inv.CurrentPrice.String(), inv.CurrentPriceUSD.String(), inv.CurrentValue.String(), inv.CurrentValueUSD.String(),
		inv.UnrealizedPnL.String(), inv.UnrealizedPnLUSD.String(), inv.PnLPercentage.String(), string(inv.Status), inv.SoldAt,
		nullDecimalArg(inv.SellPrice), nullDecimalArg(inv.SellPriceUSD), nullDecimalArg(inv.RealizedPnL), nullDecimalArg(inv.RealizedPnLUSD),
		inv.SellTransactionID, inv.Notes, inv.PriceUpdatedAt)
	if err != nil {
		return fmt.Errorf("update investment %d: %w", inv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Fail(domain.ErrNotFound, "investment %d", inv.ID)
	}
	return nil
}

func scanWallet(row pgx.Row, id int64) (domain.Wallet, error) {
	var (
		w                      domain.Wallet
		class, status          string
		balance, lockedBalance string
	)
	err := row.Scan(&w.ID, &w.OwnerID, &class, &w.Name, &w.Currency, &balance, &lockedBalance,
		&status, &w.AccountNumber, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Wallet{}, domain.Fail(domain.ErrNotFound, "wallet %d", id)
		}
		return domain.Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	if w.Kind, err = domain.ParseWalletKind(class, w.Currency); err != nil {
		return domain.Wallet{}, fmt.Errorf("wallet %d: %w", w.ID, err)
	}
	w.Status = domain.WalletStatus(status)
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return domain.Wallet{}, fmt.Errorf("wallet %d balance: %w", w.ID, err)
	}
	if w.LockedBalance, err = decimal.NewFromString(lockedBalance); err != nil {
		return domain.Wallet{}, fmt.Errorf("wallet %d locked balance: %w", w.ID, err)
	}
	return w, nil
}

func scanTransaction(row pgx.Row, id int64) (domain.Transaction, error) {
	var (
		t              domain.Transaction
		txType, status string
		amount, fee    string
		completedAt    *time.Time
	)
	err := row.Scan(&t.ID, &t.UUID, &t.FromWalletID, &t.ToWalletID, &txType, &amount, &t.Currency, &fee,
		&status, &t.MobileMoneyNumber, &t.MobileMoneyProvider, &t.MobileMoneyReference, &t.Description,
		&t.Metadata, &completedAt, &t.FailureReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.Fail(domain.ErrNotFound, "transaction %d", id)
		}
		return domain.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = domain.TransactionType(txType)
	t.Status = domain.TransactionStatus(status)
	t.CompletedAt = completedAt
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %d amount: %w", t.ID, err)
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %d fee: %w", t.ID, err)
	}
	return t, nil
}

func scanInvestment(row pgx.Row, id int64) (domain.Investment, error) {
	var (
		inv           domain.Investment
		asset, status string
		amounts       [12]string
		sell          [4]*string
	)
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.WalletID, &inv.FundingWalletID, &asset,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
		&amounts[5], &amounts[6], &amounts[7], &amounts[8],
		&amounts[9], &amounts[10], &amounts[11], &status, &inv.SoldAt,
		&sell[0], &sell[1], &sell[2], &sell[3],
		&inv.PurchaseTransactionID, &inv.SellTransactionID, &inv.Notes, &inv.PriceUpdatedAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Investment{}, domain.Fail(domain.ErrNotFound, "investment %d", id)
		}
		return domain.Investment{}, fmt.Errorf("scan investment: %w", err)
	}
	inv.Asset = domain.Asset(asset)
	inv.Status = domain.InvestmentStatus(status)

	targets := []*decimal.Decimal{
		&inv.Quantity, &inv.PurchasePrice, &inv.PurchasePriceUSD, &inv.TotalInvested, &inv.TotalInvestedUSD,
		&inv.CurrentPrice, &inv.CurrentPriceUSD, &inv.CurrentValue, &inv.CurrentValueUSD,
		&inv.UnrealizedPnL, &inv.UnrealizedPnLUSD, &inv.PnLPercentage,
	}
	for i, target := range targets {
		if *target, err = decimal.NewFromString(amounts[i]); err != nil {
			return domain.Investment{}, fmt.Errorf("investment %d column %d: %w", inv.ID, i, err)
		}
	}
	nullTargets := []*decimal.NullDecimal{&inv.SellPrice, &inv.SellPriceUSD, &inv.RealizedPnL, &inv.RealizedPnLUSD}
	for i, target := range nullTargets {
		if sell[i] == nil {
			continue
		}
		d, err := decimal.NewFromString(*sell[i])
		if err != nil {
			return domain.Investment{}, fmt.Errorf("investment %d sell column %d: %w", inv.ID, i, err)
		}
		*target = decimal.NewNullDecimal(d)
	}
	return inv, nil
}

func nullDecimalArg(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// IsUniqueViolation reports a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
