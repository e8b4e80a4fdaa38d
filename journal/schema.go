package journal

// Prices and PnL are stored as TEXT so decimals come back exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS deals (
	deal_id TEXT PRIMARY KEY,
	account TEXT NOT NULL,
	code TEXT NOT NULL,
	action TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pnl (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	account TEXT NOT NULL,
	code TEXT NOT NULL,
	action TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	cover_id TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	entry_price TEXT NOT NULL,
	cover_price TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	cover_time DATETIME NOT NULL,
	pnl TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pnl_cover_time ON pnl(cover_time);
CREATE INDEX IF NOT EXISTS idx_pnl_account ON pnl(account, code);
`
