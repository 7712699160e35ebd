package transfer

import (
	"github.com/fintrack-dev/fintrack/internal/fingerprint"
	"github.com/fintrack-dev/fintrack/internal/model"
)

// Reason explains why a transfer record gets no mirror.
type Reason string

const (
	ReasonUnmapped         Reason = "counterpart account not mapped"
	ReasonSameAccount      Reason = "counterpart maps to the same account"
	ReasonCounterpartInRun Reason = "counterpart row present in this import"
	ReasonNoCategories     Reason = "transfer categories missing"
)

// Mirror is the synthesized other side of a transfer.
type Mirror struct {
	// AccountID is the counterpart account the mirror is booked to.
	AccountID  string
	CategoryID string
	Record     model.ParsedTransaction
}

// Plan is the pairing decision for one batch, keyed by record position.
type Plan struct {
	Mirrors map[int]Mirror
	// Categories assigns Transfer In/Out to transfer records left uncategorized.
	Categories map[int]string
	Skipped    map[int]Reason
	// MissingCategories is set when transfers exist but the user has no
	// Transfer In/Out categories; no pairing happens at all.
	MissingCategories bool
}

// Pairer synthesizes mirrored transactions for multi-account imports.
type Pairer struct {
	// Accounts maps source-file account names to destination account ids.
	Accounts    map[string]string
	TransferIn  *model.Category
	TransferOut *model.Category
}

// Plan decides which transfer records get a mirror. A transfer whose
// counterpart row is in the same batch is left alone; mirroring it too
// would book the movement twice.
func (p Pairer) Plan(records []model.ParsedTransaction) Plan {
	plan := Plan{
		Mirrors:    make(map[int]Mirror),
		Categories: make(map[int]string),
		Skipped:    make(map[int]Reason),
	}

	hasTransfers := false
	for _, r := range records {
		if r.IsTransfer {
			hasTransfers = true
			break
		}
	}
	if !hasTransfers {
		return plan
	}
	if p.TransferIn == nil || p.TransferOut == nil {
		plan.MissingCategories = true
		for i, r := range records {
			if r.IsTransfer {
				plan.Skipped[i] = ReasonNoCategories
			}
		}
		return plan
	}

	for i, r := range records {
		if !r.IsTransfer {
			continue
		}
		plan.Categories[i] = p.categoryFor(r.Type)

		from, okFrom := p.Accounts[r.Account]
		to, okTo := p.Accounts[r.TransferAccount]
		switch {
		case !okFrom || !okTo:
			plan.Skipped[i] = ReasonUnmapped
			continue
		case from == to:
			plan.Skipped[i] = ReasonSameAccount
			continue
		case hasCounterpart(records, i):
			plan.Skipped[i] = ReasonCounterpartInRun
			continue
		}

		mirror := model.ParsedTransaction{
			Date:            r.Date,
			Amount:          r.Amount,
			Type:            r.Type.Opposite(),
			Currency:        r.Currency,
			Hash:            fingerprint.Mirror(r.Hash),
			Source:          r.Source,
			Memo:            r.Memo,
			Payee:           r.Payee,
			Account:         r.TransferAccount,
			IsTransfer:      true,
			TransferAccount: r.Account,
		}
		if r.Type == model.TypeExpense {
			mirror.Description = "From " + r.Account
		} else {
			mirror.Description = "To " + r.Account
		}
		plan.Mirrors[i] = Mirror{
			AccountID:  to,
			CategoryID: p.categoryFor(mirror.Type),
			Record:     mirror,
		}
	}
	return plan
}

func (p Pairer) categoryFor(t model.TransactionType) string {
	if t == model.TypeIncome {
		return p.TransferIn.ID
	}
	return p.TransferOut.ID
}

// hasCounterpart reports whether the batch holds the other side of
// records[i]: booked in the target account, pointing back, same day and
// amount, opposite direction.
func hasCounterpart(records []model.ParsedTransaction, i int) bool {
	r := records[i]
	y, m, d := r.Date.Date()
	for j, o := range records {
		if j == i || !o.IsTransfer {
			continue
		}
		oy, om, od := o.Date.Date()
		if o.Account == r.TransferAccount && o.TransferAccount == r.Account &&
			oy == y && om == m && od == d &&
			o.Amount.Equal(r.Amount) && o.Type == r.Type.Opposite() {
			return true
		}
	}
	return false
}

// FindCategories picks the user's Transfer In and Transfer Out categories.
func FindCategories(categories []model.Category) (in, out *model.Category) {
	for i := range categories {
		switch categories[i].System {
		case model.SystemTransferIn:
			if in == nil {
				in = &categories[i]
			}
		case model.SystemTransferOut:
			if out == nil {
				out = &categories[i]
			}
		}
	}
	return in, out
}
