package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/positions/ledger"
)

const pnlColumns = `account, code, action, entry_id, cover_id, quantity, entry_price, cover_price, entry_time, cover_time, pnl`

// GetDeal returns a single journaled deal by ID.
func (j *SQLiteJournal) GetDeal(dealID string) (DealRecord, error) {
	var (
		rec    DealRecord
		action string
	)

	row := j.db.QueryRow(`
		SELECT deal_id, account, code, action, quantity, price, time
		FROM deals
		WHERE deal_id = ?`, dealID)

	err := row.Scan(&rec.DealID, &rec.Account, &rec.Code, &action, &rec.Quantity, &rec.Price, &rec.Time)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DealRecord{}, fmt.Errorf("deal %q: %w", dealID, ledger.ErrNotFound)
		}
		return DealRecord{}, err
	}
	rec.Action = ledger.Action(action)
	return rec, nil
}

// ListPnLBetween returns PnL records whose cover deal happened within
// [start, end), oldest first.
func (j *SQLiteJournal) ListPnLBetween(start, end time.Time) ([]PnLRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+pnlColumns+`
		FROM pnl
		WHERE cover_time >= ? AND cover_time < ?
		ORDER BY cover_time ASC, seq ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return scanPnL(rows)
}

// ListPnLByAccount returns every PnL record of an account in journal order.
func (j *SQLiteJournal) ListPnLByAccount(account string) ([]PnLRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+pnlColumns+`
		FROM pnl
		WHERE account = ?
		ORDER BY seq ASC`, account)
	if err != nil {
		return nil, err
	}
	return scanPnL(rows)
}

func scanPnL(rows *sql.Rows) ([]PnLRecord, error) {
	defer rows.Close()

	var out []PnLRecord
	for rows.Next() {
		var (
			rec    PnLRecord
			action string
		)
		if err := rows.Scan(
			&rec.Account,
			&rec.Code,
			&action,
			&rec.EntryID,
			&rec.CoverID,
			&rec.Quantity,
			&rec.EntryPrice,
			&rec.CoverPrice,
			&rec.EntryTime,
			&rec.CoverTime,
			&rec.PnL,
		); err != nil {
			return nil, err
		}
		rec.Action = ledger.Action(action)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
