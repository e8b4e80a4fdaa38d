package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordDeal(d DealRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO deals
		(deal_id, account, code, action, quantity, price, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.DealID, d.Account, d.Code, string(d.Action), d.Quantity, d.Price.String(), d.Time.UTC(),
	)
	return err
}

func (j *SQLiteJournal) RecordPnL(p PnLRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO pnl
		(account, code, action, entry_id, cover_id, quantity, entry_price, cover_price, entry_time, cover_time, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Account, p.Code, string(p.Action), p.EntryID, p.CoverID, p.Quantity,
		p.EntryPrice.String(), p.CoverPrice.String(), p.EntryTime.UTC(), p.CoverTime.UTC(), p.PnL.String(),
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
