package store

import (
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/positions/ledger"
)

func encode(snap ledger.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %q: %w", snap.Account.ID, err)
	}
	return data, nil
}

func decode(accountID string, data []byte) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("%w: account %q: %v", ledger.ErrCorruptSnapshot, accountID, err)
	}
	if snap.Account.ID != accountID {
		return ledger.Snapshot{}, fmt.Errorf("%w: blob for %q holds account %q", ledger.ErrCorruptSnapshot, accountID, snap.Account.ID)
	}
	return snap, nil
}
