package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	dealHeader = []string{"deal_id", "account", "code", "action", "quantity", "price", "time"}
	pnlHeader  = []string{"account", "code", "action", "entry_id", "cover_id", "quantity", "entry_price", "cover_price", "entry_time", "cover_time", "pnl"}
)

type CSVJournal struct {
	pnl    *csv.Writer
	deals  *csv.Writer
	pf, df *os.File
}

// NewCSV opens both files for appending. A header row is written to any
// file that starts out empty.
func NewCSV(pnlPath, dealsPath string) (*CSVJournal, error) {
	pf, pnew, err := openAppend(pnlPath)
	if err != nil {
		return nil, err
	}
	df, dnew, err := openAppend(dealsPath)
	if err != nil {
		pf.Close()
		return nil, err
	}

	j := &CSVJournal{
		pnl:   csv.NewWriter(pf),
		deals: csv.NewWriter(df),
		pf:    pf,
		df:    df,
	}
	if pnew {
		if err := j.write(j.pnl, pnlHeader); err != nil {
			j.Close()
			return nil, err
		}
	}
	if dnew {
		if err := j.write(j.deals, dealHeader); err != nil {
			j.Close()
			return nil, err
		}
	}
	return j, nil
}

func openAppend(path string) (*os.File, bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, err
	}
	return f, st.Size() == 0, nil
}

func (j *CSVJournal) RecordDeal(d DealRecord) error {
	return j.write(j.deals, []string{
		d.DealID,
		d.Account,
		d.Code,
		string(d.Action),
		strconv.FormatInt(d.Quantity, 10),
		d.Price.String(),
		d.Time.UTC().Format(time.RFC3339Nano),
	})
}

func (j *CSVJournal) RecordPnL(p PnLRecord) error {
	return j.write(j.pnl, []string{
		p.Account,
		p.Code,
		string(p.Action),
		p.EntryID,
		p.CoverID,
		strconv.FormatInt(p.Quantity, 10),
		p.EntryPrice.String(),
		p.CoverPrice.String(),
		p.EntryTime.UTC().Format(time.RFC3339Nano),
		p.CoverTime.UTC().Format(time.RFC3339Nano),
		p.PnL.String(),
	})
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	j.pnl.Flush()
	if err := j.pnl.Error(); err != nil {
		return err
	}
	j.deals.Flush()
	if err := j.deals.Error(); err != nil {
		return err
	}

	if err := j.pf.Close(); err != nil {
		return err
	}
	if err := j.df.Close(); err != nil {
		return err
	}
	return nil
}
