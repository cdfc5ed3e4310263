package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/walletcore/internal/domain"
	"github.com/aristath/walletcore/internal/wallet"
	"github.com/aristath/walletcore/internal/wallet/holding"
	"github.com/aristath/walletcore/internal/walleterr"
)

// BrokerageAccountRepository manages brokerage_accounts and their deposit
// links (wallet.db).
type BrokerageAccountRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewBrokerageAccountRepository(db *sql.DB, log zerolog.Logger) *BrokerageAccountRepository {
	return &BrokerageAccountRepository{db: db, log: log.With().Str("repo", "brokerage_account").Logger()}
}

func (r *BrokerageAccountRepository) Create(a *wallet.BrokerageAccount) error {
	a.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO brokerage_accounts (id, wallet_id, bank_id, name, currency, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.WalletID, a.BankID, a.Name, a.Currency, a.CreatedAt.Unix(),
	)
	return mapUniqueViolation(err, "brokerage account name already in use for this wallet and bank")
}

func (r *BrokerageAccountRepository) GetByID(id uuid.UUID) (*wallet.BrokerageAccount, error) {
	row := r.db.QueryRow(`SELECT id, wallet_id, bank_id, name, currency, created_at FROM brokerage_accounts WHERE id = ?`, id)
	var a wallet.BrokerageAccount
	var createdAt int64
	if err := row.Scan(&a.ID, &a.WalletID, &a.BankID, &a.Name, &a.Currency, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("brokerage_account", id)
		}
		return nil, fmt.Errorf("scan brokerage account: %w", err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}

func (r *BrokerageAccountRepository) ListByWallet(walletID uuid.UUID) ([]wallet.BrokerageAccount, error) {
	rows, err := r.db.Query(`SELECT id, wallet_id, bank_id, name, currency, created_at FROM brokerage_accounts WHERE wallet_id = ? ORDER BY name`, walletID)
	if err != nil {
		return nil, fmt.Errorf("list brokerage accounts: %w", err)
	}
	defer rows.Close()

	var out []wallet.BrokerageAccount
	for rows.Next() {
		var a wallet.BrokerageAccount
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.WalletID, &a.BankID, &a.Name, &a.Currency, &createdAt); err != nil {
			return nil, fmt.Errorf("scan brokerage account: %w", err)
		}
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateLink ties a brokerage account to the deposit account carrying its
// cash in a given currency. uq_brokerage_currency_one_deposit keeps
// at most one link per (brokerage, currency).
func (r *BrokerageAccountRepository) CreateLink(l *wallet.BrokerageDepositLink) error {
	_, err := r.db.Exec(
		`INSERT INTO brokerage_deposit_links (id, brokerage_id, deposit_account_id, currency) VALUES (?, ?, ?, ?)`,
		l.ID, l.BrokerageID, l.DepositAccountID, l.Currency,
	)
	return mapUniqueViolation(err, "brokerage account already has a linked deposit account for this currency")
}

func (r *BrokerageAccountRepository) ListLinks(brokerageID uuid.UUID) ([]wallet.BrokerageDepositLink, error) {
	rows, err := r.db.Query(`SELECT id, brokerage_id, deposit_account_id, currency FROM brokerage_deposit_links WHERE brokerage_id = ?`, brokerageID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []wallet.BrokerageDepositLink
	for rows.Next() {
		var l wallet.BrokerageDepositLink
		if err := rows.Scan(&l.ID, &l.BrokerageID, &l.DepositAccountID, &l.Currency); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LinkForCurrency returns the deposit account linked to brokerageID for
// currency, if any.
func (r *BrokerageAccountRepository) LinkForCurrency(brokerageID uuid.UUID, ccy domain.Currency) (*wallet.BrokerageDepositLink, error) {
	row := r.db.QueryRow(
		`SELECT id, brokerage_id, deposit_account_id, currency FROM brokerage_deposit_links WHERE brokerage_id = ? AND currency = ?`,
		brokerageID, ccy,
	)
	var l wallet.BrokerageDepositLink
	if err := row.Scan(&l.ID, &l.BrokerageID, &l.DepositAccountID, &l.Currency); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("brokerage_deposit_link", fmt.Sprintf("%s/%s", brokerageID, ccy))
		}
		return nil, fmt.Errorf("scan link: %w", err)
	}
	return &l, nil
}

// InstrumentRepository manages the instruments catalog (wallet.db).
type InstrumentRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewInstrumentRepository(db *sql.DB, log zerolog.Logger) *InstrumentRepository {
	return &InstrumentRepository{db: db, log: log.With().Str("repo", "instrument").Logger()}
}

func (r *InstrumentRepository) Create(i *wallet.Instrument) error {
	_, err := r.db.Exec(
		`INSERT INTO instruments (id, symbol, mic, type, currency, quote_symbol) VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.Symbol, i.MIC, i.Type, i.Currency, i.QuoteSymbol,
	)
	return mapUniqueViolation(err, "instrument symbol already registered")
}

func (r *InstrumentRepository) GetByID(id uuid.UUID) (*wallet.Instrument, error) {
	row := r.db.QueryRow(`SELECT id, symbol, mic, type, currency, quote_symbol FROM instruments WHERE id = ?`, id)
	return scanInstrument(row, id)
}

func (r *InstrumentRepository) GetBySymbol(symbol string) (*wallet.Instrument, error) {
	row := r.db.QueryRow(`SELECT id, symbol, mic, type, currency, quote_symbol FROM instruments WHERE symbol = ?`, symbol)
	return scanInstrument(row, symbol)
}

func scanInstrument(row *sql.Row, ref interface{}) (*wallet.Instrument, error) {
	var i wallet.Instrument
	if err := row.Scan(&i.ID, &i.Symbol, &i.MIC, &i.Type, &i.Currency, &i.QuoteSymbol); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("instrument", ref)
		}
		return nil, fmt.Errorf("scan instrument: %w", err)
	}
	return &i, nil
}

func (r *InstrumentRepository) List() ([]wallet.Instrument, error) {
	rows, err := r.db.Query(`SELECT id, symbol, mic, type, currency, quote_symbol FROM instruments ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []wallet.Instrument
	for rows.Next() {
		var i wallet.Instrument
		if err := rows.Scan(&i.ID, &i.Symbol, &i.MIC, &i.Type, &i.Currency, &i.QuoteSymbol); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// HoldingRepository manages the derived holdings table (wallet.db). Rows
// are never written directly from handler input: only Recompute, which
// replays the full brokerage_events stream through holding.Replay, may
// write a position (never local inversion).
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{db: db, log: log.With().Str("repo", "holding").Logger()}
}

func (r *HoldingRepository) GetByAccountInstrument(accountID, instrumentID uuid.UUID) (*wallet.Holding, error) {
	row := r.db.QueryRow(
		`SELECT account_id, instrument_id, quantity, avg_cost, updated_at FROM holdings WHERE account_id = ? AND instrument_id = ?`,
		accountID, instrumentID,
	)
	return scanHolding(row, fmt.Sprintf("%s/%s", accountID, instrumentID))
}

func scanHolding(row *sql.Row, ref interface{}) (*wallet.Holding, error) {
	var h wallet.Holding
	var qty, avg string
	var updatedAt int64
	if err := row.Scan(&h.AccountID, &h.InstrumentID, &qty, &avg, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, walleterr.NotFound("holding", ref)
		}
		return nil, fmt.Errorf("scan holding: %w", err)
	}
	var err error
	if h.Quantity, err = decimal.NewFromString(qty); err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	if h.AvgCost, err = decimal.NewFromString(avg); err != nil {
		return nil, fmt.Errorf("parse avg_cost: %w", err)
	}
	h.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &h, nil
}

func (r *HoldingRepository) ListByAccount(accountID uuid.UUID) ([]wallet.Holding, error) {
	rows, err := r.db.Query(`SELECT account_id, instrument_id, quantity, avg_cost, updated_at FROM holdings WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	var out []wallet.Holding
	for rows.Next() {
		var h wallet.Holding
		var qty, avg string
		var updatedAt int64
		if err := rows.Scan(&h.AccountID, &h.InstrumentID, &qty, &avg, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		if h.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse quantity: %w", err)
		}
		if h.AvgCost, err = decimal.NewFromString(avg); err != nil {
			return nil, fmt.Errorf("parse avg_cost: %w", err)
		}
		h.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

// Upsert writes the recomputed position for (account, instrument). A zero
// quantity is kept as a zero row, not deleted, so cost-basis history for a
// fully-sold position is still addressable.
func (r *HoldingRepository) Upsert(h *wallet.Holding) error {
	h.UpdatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO holdings (account_id, instrument_id, quantity, avg_cost, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(account_id, instrument_id) DO UPDATE SET quantity = excluded.quantity, avg_cost = excluded.avg_cost, updated_at = excluded.updated_at`,
		h.AccountID, h.InstrumentID, h.Quantity.String(), h.AvgCost.String(), h.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

// Recompute replays every brokerage_events row for (accountID, instrumentID)
// through holding.Replay and persists the resulting position. eventRepo
// supplies the ordered event stream; this is the only path that may ever
// change a holdings row.
func (r *HoldingRepository) Recompute(eventRepo *BrokerageEventRepository, accountID, instrumentID uuid.UUID) (holding.Result, error) {
	events, err := eventRepo.ListForReplay(accountID, instrumentID)
	if err != nil {
		return holding.Result{}, err
	}
	result, err := holding.Replay(accountID, instrumentID, events)
	if err != nil {
		return holding.Result{}, err
	}
	if err := r.Upsert(&wallet.Holding{AccountID: accountID, InstrumentID: instrumentID, Quantity: result.Position.Quantity, AvgCost: result.Position.AvgCost}); err != nil {
		return holding.Result{}, err
	}
	return result, nil
}

// BrokerageEventRepository manages the immutable brokerage_events audit
// trail (ledger.db). ListForReplay is the sole read path feeding
// holding.Replay; ordering is (trade_at, then creation order).
type BrokerageEventRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewBrokerageEventRepository(db *sql.DB, log zerolog.Logger) *BrokerageEventRepository {
	return &BrokerageEventRepository{db: db, log: log.With().Str("repo", "brokerage_event").Logger()}
}

func (r *BrokerageEventRepository) Create(e *wallet.BrokerageEvent) error {
	e.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO brokerage_events (id, brokerage_id, instrument_id, kind, quantity, price, currency, split_ratio, trade_at, created_at, linked_transaction_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BrokerageID, e.InstrumentID, e.Kind, e.Quantity.String(), e.Price.String(), e.Currency, e.SplitRatio.String(),
		e.TradeAt.Unix(), e.CreatedAt.Unix(), nullableUUID(e.LinkedTransactionID),
	)
	if err != nil {
		return fmt.Errorf("insert brokerage event: %w", err)
	}
	return nil
}

// GetByID fetches a single brokerage event, used by the handlers layer to
// recover (brokerage_id, instrument_id) before an edit or delete triggers
// a full Holding Projector replay.
func (r *BrokerageEventRepository) GetByID(id uuid.UUID) (*wallet.BrokerageEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, brokerage_id, instrument_id, kind, quantity, price, currency, split_ratio, trade_at, created_at, linked_transaction_id
		 FROM brokerage_events WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get brokerage event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, walleterr.NotFound("brokerage_event", id)
	}
	e, err := scanBrokerageEventRow(rows)
	if err != nil {
		return nil, err
	}
	return &e, rows.Err()
}

// Update overwrites an existing event's facts in place. Callers MUST
// follow with HoldingRepository.Recompute for (brokerage_id,
// instrument_id): editing a historical event never adjusts the derived
// position locally; Recompute rebuilds it from scratch.
func (r *BrokerageEventRepository) Update(e *wallet.BrokerageEvent) error {
	res, err := r.db.Exec(
		`UPDATE brokerage_events SET kind = ?, quantity = ?, price = ?, currency = ?, split_ratio = ?, trade_at = ?, linked_transaction_id = ?
		 WHERE id = ?`,
		e.Kind, e.Quantity.String(), e.Price.String(), e.Currency, e.SplitRatio.String(), e.TradeAt.Unix(), nullableUUID(e.LinkedTransactionID), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update brokerage event: %w", err)
	}
	return rowsAffectedOrNotFound(res, "brokerage_event")
}

// Delete removes an event. Callers MUST follow with Recompute for the
// event's (brokerage_id, instrument_id), same rule as Update.
func (r *BrokerageEventRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM brokerage_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete brokerage event: %w", err)
	}
	return rowsAffectedOrNotFound(res, "brokerage_event")
}

// ListForReplay returns every event for (brokerageID, instrumentID) ordered
// by trade_at then rowid (creation order), matching the index
// ix_brokerage_events_account_instrument and the replay tie-break rule.
func (r *BrokerageEventRepository) ListForReplay(brokerageID, instrumentID uuid.UUID) ([]holding.ReplayEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, kind, quantity, price, currency, split_ratio, trade_at, rowid
		 FROM brokerage_events WHERE brokerage_id = ? AND instrument_id = ? ORDER BY trade_at ASC, rowid ASC`,
		brokerageID, instrumentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list brokerage events: %w", err)
	}
	defer rows.Close()

	var out []holding.ReplayEvent
	for rows.Next() {
		var ev holding.ReplayEvent
		var qty, price, ratio string
		var tradeAt int64
		if err := rows.Scan(&ev.ID, &ev.Kind, &qty, &price, &ev.Currency, &ratio, &tradeAt, &ev.SeqID); err != nil {
			return nil, fmt.Errorf("scan brokerage event: %w", err)
		}
		if ev.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("parse quantity: %w", err)
		}
		if ev.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if ev.SplitRatio, err = decimal.NewFromString(ratio); err != nil {
			return nil, fmt.Errorf("parse split ratio: %w", err)
		}
		ev.TradeAt = tradeAt
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListByBrokerage returns every event for a brokerage account across all
// instruments, newest first, for the transaction-history view.
func (r *BrokerageEventRepository) ListByBrokerage(brokerageID uuid.UUID) ([]wallet.BrokerageEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, brokerage_id, instrument_id, kind, quantity, price, currency, split_ratio, trade_at, created_at, linked_transaction_id
		 FROM brokerage_events WHERE brokerage_id = ? ORDER BY trade_at DESC, rowid DESC`,
		brokerageID,
	)
	if err != nil {
		return nil, fmt.Errorf("list brokerage events: %w", err)
	}
	defer rows.Close()

	var out []wallet.BrokerageEvent
	for rows.Next() {
		e, err := scanBrokerageEventRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanBrokerageEventRow(rows *sql.Rows) (wallet.BrokerageEvent, error) {
	var e wallet.BrokerageEvent
	var qty, price, ratio string
	var tradeAt, createdAt int64
	var linked sql.NullString
	if err := rows.Scan(&e.ID, &e.BrokerageID, &e.InstrumentID, &e.Kind, &qty, &price, &e.Currency, &ratio, &tradeAt, &createdAt, &linked); err != nil {
		return wallet.BrokerageEvent{}, fmt.Errorf("scan brokerage event: %w", err)
	}
	var err error
	if e.Quantity, err = decimal.NewFromString(qty); err != nil {
		return wallet.BrokerageEvent{}, fmt.Errorf("parse quantity: %w", err)
	}
	if e.Price, err = decimal.NewFromString(price); err != nil {
		return wallet.BrokerageEvent{}, fmt.Errorf("parse price: %w", err)
	}
	if e.SplitRatio, err = decimal.NewFromString(ratio); err != nil {
		return wallet.BrokerageEvent{}, fmt.Errorf("parse split ratio: %w", err)
	}
	e.TradeAt = time.Unix(tradeAt, 0).UTC()
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	if linked.Valid {
		id, err := uuid.Parse(linked.String)
		if err != nil {
			return wallet.BrokerageEvent{}, fmt.Errorf("parse linked_transaction_id: %w", err)
		}
		e.LinkedTransactionID = &id
	}
	return e, nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}
