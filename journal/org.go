package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/positions/ledger"
	"github.com/shopspring/decimal"
)

// FormatPnLOrg renders a PnL record as an Org-mode block with the facts in a
// PROPERTIES drawer and an empty Review section for notes.
func FormatPnLOrg(p PnLRecord) string {
	heading := fmt.Sprintf("** PnL: %s %s (%s)", p.Code, signed(p.PnL), shortID(p.CoverID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ACCOUNT: %s\n", p.Account))
	b.WriteString(fmt.Sprintf(":CODE: %s\n", p.Code))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", p.Action))
	b.WriteString(fmt.Sprintf(":ENTRY_ID: %s\n", p.EntryID))
	b.WriteString(fmt.Sprintf(":COVER_ID: %s\n", p.CoverID))
	b.WriteString(fmt.Sprintf(":QUANTITY: %d\n", p.Quantity))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %s\n", p.EntryPrice))
	b.WriteString(fmt.Sprintf(":COVER_PRICE: %s\n", p.CoverPrice))
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", p.EntryTime.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":COVER_TIME: %s\n", p.CoverTime.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":PNL: %s\n", p.PnL.StringFixed(2)))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatPnLsOrg renders multiple records separated by blank lines, followed
// by a total line.
func FormatPnLsOrg(recs []PnLRecord) string {
	var b strings.Builder
	total := decimal.Zero
	for i, p := range recs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatPnLOrg(p))
		total = total.Add(p.PnL)
	}
	if len(recs) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Total realized: %s over %d record(s)\n", total.StringFixed(2), len(recs)))
	return b.String()
}

// FormatPositionsOrg renders open positions as an Org table sorted by code.
func FormatPositionsOrg(account string, positions map[string]ledger.Position) string {
	codes := make([]string, 0, len(positions))
	for code := range positions {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("* Positions: %s\n", account))
	b.WriteString("| Code | Side | Quantity | Avg Price |\n")
	b.WriteString("|------+------+----------+-----------|\n")
	for _, code := range codes {
		p := positions[code]
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n", code, p.Action, p.Quantity, p.Price.StringFixed(4)))
	}
	return b.String()
}

// FormatLotsOrg renders the open lots of one instrument, oldest first.
func FormatLotsOrg(code string, lots []ledger.Deal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("* Open lots: %s\n", code))
	b.WriteString("| Deal | Side | Quantity | Remaining | Price | Time |\n")
	b.WriteString("|------+------+----------+-----------+-------+------|\n")
	for _, d := range lots {
		b.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s | %s |\n",
			shortID(d.ID), d.Action, d.Quantity, d.Remaining, d.Price, d.Time.UTC().Format(time.RFC3339)))
	}
	return b.String()
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
