package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/dedup"
	"github.com/fintrack-dev/fintrack/internal/fingerprint"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/session"
	"github.com/fintrack-dev/fintrack/internal/transfer"
)

// Duplicate reasons reported in the summary.
const (
	ReasonImported       = "already imported"
	ReasonMirrorImported = "transfer mirror already imported"
)

// Commit persists the selected records of a session in order. Failures of
// single records are counted and the run continues. If ctx is cancelled the
// remaining records are counted as abandoned, the partial summary is
// returned and the session stays open so the rest can be committed later.
func (s *Service) Commit(ctx context.Context, id string) (*model.Summary, error) {
	sess, err := s.sessions.Update(id, func(sess *session.Session) error {
		switch sess.State {
		case session.StateCommitted:
			return ErrAlreadyCommitted
		case session.StateCommitting:
			return fmt.Errorf("%w: commit in progress", ErrAlreadyCommitted)
		}
		if !sess.Source.MultiAccount() && sess.AccountID == "" {
			return ErrNoTargetAccount
		}
		sess.State = session.StateCommitting
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary, runErr := s.commit(ctx, sess)

	_, _ = s.sessions.Update(id, func(st *session.Session) error {
		st.Summary = summary
		if runErr == nil && summary.Abandoned == 0 {
			st.State = session.StateCommitted
		} else {
			st.State = session.StatePreview
		}
		return nil
	})
	if runErr != nil {
		return nil, runErr
	}
	return summary, nil
}

// run is the state of one commit loop.
type run struct {
	sess    *session.Session
	gate    *dedup.Gate
	summary *model.Summary
	totals  map[string]decimal.Decimal
	log     zerolog.Logger
}

func (s *Service) commit(ctx context.Context, sess *session.Session) (*model.Summary, error) {
	log := s.log.With().Str("session", sess.ID).Str("user", sess.UserID).Str("source", string(sess.Source)).Logger()

	gate, err := dedup.Load(ctx, s.store, sess.UserID, sess.Source)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("known", gate.Len()).Msg("imported hashes loaded")

	var selected []session.Record
	for _, r := range sess.Records {
		if r.Selected {
			selected = append(selected, r)
		}
	}

	var plan transfer.Plan
	if sess.Source.MultiAccount() {
		cats, err := s.store.ListCategories(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing categories: %w", err)
		}
		in, out := transfer.FindCategories(cats)
		records := make([]model.ParsedTransaction, len(selected))
		for i, r := range selected {
			records[i] = r.Transaction
		}
		plan = transfer.Pairer{Accounts: sess.AccountMappings, TransferIn: in, TransferOut: out}.Plan(records)
		if plan.MissingCategories {
			log.Warn().Msg("transfer categories missing, transfers imported one-sided")
		}
	}

	r := &run{
		sess:    sess,
		gate:    gate,
		summary: &model.Summary{},
		totals:  make(map[string]decimal.Decimal),
		log:     log,
	}

	for pos, rec := range selected {
		if err := ctx.Err(); err != nil {
			r.summary.Abandoned = len(selected) - pos
			log.Info().Err(err).Int("abandoned", r.summary.Abandoned).Msg("commit abandoned")
			break
		}
		m, hasMirror := plan.Mirrors[pos]
		switch s.commitRecord(ctx, r, rec, plan.Categories[pos]) {
		case outcomeImported:
			if hasMirror {
				s.commitMirror(ctx, r, rec, m)
			}
		case outcomeDuplicate:
			// A mirror is only ever booked together with its original.
			if hasMirror && r.gate.IsDuplicate(m.Record.Hash) {
				r.duplicate(rec.Index, m.Record)
			}
		}
	}

	r.summary.Totals = sortedTotals(r.totals)
	if s.converter != nil && s.base != "" && len(r.summary.Totals) > 0 {
		net, err := s.converter.ConvertMany(context.WithoutCancel(ctx), r.summary.Totals, s.base)
		if err != nil {
			log.Warn().Err(err).Str("base", s.base).Msg("converting net total failed")
		} else {
			r.summary.NetTotal = &model.Money{Amount: net, Currency: s.base}
		}
	}

	log.Info().
		Int("imported", r.summary.Imported).
		Int("duplicates", r.summary.Duplicates).
		Int("failed", r.summary.Failed).
		Msg("commit finished")
	return r.summary, nil
}

type outcome int

const (
	outcomeImported outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// commitRecord persists one selected record.
func (s *Service) commitRecord(ctx context.Context, r *run, rec session.Record, transferCategory string) outcome {
	txn := rec.Transaction

	if errs := importer.Validate(txn); len(errs) > 0 {
		r.fail(rec.Index, txn, fmt.Errorf("invalid record: %s", joinValidation(errs)))
		return outcomeFailed
	}
	if r.gate.IsDuplicate(txn.Hash) {
		r.duplicate(rec.Index, txn)
		return outcomeDuplicate
	}

	accountID, err := targetAccount(r.sess, txn)
	if err != nil {
		r.fail(rec.Index, txn, err)
		return outcomeFailed
	}

	categoryID := rec.CategoryID
	if categoryID == "" {
		categoryID = transferCategory
	}

	tx := &model.Transaction{
		UserID:      r.sess.UserID,
		AccountID:   accountID,
		CategoryID:  categoryID,
		Type:        txn.Type,
		Amount:      txn.Amount,
		Currency:    txn.Currency,
		Date:        txn.Date,
		Description: txn.Description,
		Memo:        txn.Memo,
		Payee:       txn.Payee,
		TagIDs:      append([]string(nil), rec.TagIDs...),
	}
	if err := s.persist(ctx, r, tx, txn.Hash); err != nil {
		r.fail(rec.Index, txn, err)
		return outcomeFailed
	}
	r.imported(txn)
	return outcomeImported
}

func (s *Service) commitMirror(ctx context.Context, r *run, rec session.Record, m transfer.Mirror) {
	txn := m.Record
	if r.gate.IsDuplicate(txn.Hash) {
		r.duplicate(rec.Index, txn)
		return
	}
	tx := &model.Transaction{
		UserID:      r.sess.UserID,
		AccountID:   m.AccountID,
		CategoryID:  m.CategoryID,
		Type:        txn.Type,
		Amount:      txn.Amount,
		Currency:    txn.Currency,
		Date:        txn.Date,
		Description: txn.Description,
		Memo:        txn.Memo,
		Payee:       txn.Payee,
		TagIDs:      append([]string(nil), rec.TagIDs...),
	}
	if err := s.persist(ctx, r, tx, txn.Hash); err != nil {
		r.fail(rec.Index, txn, fmt.Errorf("transfer mirror: %w", err))
		return
	}
	r.imported(txn)
}

// persist writes the transaction, then its provenance record, then marks
// the hash as seen. A transaction whose provenance cannot be written is
// removed again so a retry does not double it.
func (s *Service) persist(ctx context.Context, r *run, tx *model.Transaction, hash string) error {
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}
	prov := model.ImportRecord{
		UserID:        r.sess.UserID,
		TransactionID: tx.ID,
		Hash:          hash,
		Source:        r.sess.Source,
		ImportDate:    s.now().UTC(),
	}
	if err := s.store.CreateImportRecord(ctx, prov); err != nil {
		if derr := s.store.DeleteTransaction(context.WithoutCancel(ctx), r.sess.UserID, tx.ID); derr != nil {
			r.log.Error().Err(derr).Str("transaction", tx.ID).Msg("removing transaction without provenance failed")
		}
		return fmt.Errorf("recording import: %w", err)
	}
	r.gate.Record(hash)
	return nil
}

// targetAccount resolves the destination account of a parsed record.
func targetAccount(sess *session.Session, txn model.ParsedTransaction) (string, error) {
	if !sess.Source.MultiAccount() {
		if sess.AccountID == "" {
			return "", ErrNoTargetAccount
		}
		return sess.AccountID, nil
	}
	id, ok := sess.AccountMappings[txn.Account]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrUnmappedAccount, txn.Account)
	}
	return id, nil
}

func (r *run) imported(txn model.ParsedTransaction) {
	r.summary.Imported++
	r.totals[txn.Currency] = r.totals[txn.Currency].Add(txn.SignedAmount())
}

func (r *run) duplicate(index int, txn model.ParsedTransaction) {
	reason := ReasonImported
	if fingerprint.IsMirror(txn.Hash) {
		reason = ReasonMirrorImported
	}
	r.summary.Duplicates++
	r.summary.DuplicateDetails = append(r.summary.DuplicateDetails, model.DuplicateDetail{
		Index:       index,
		Description: txn.Description,
		Amount:      txn.Amount,
		Currency:    txn.Currency,
		Date:        txn.Date,
		HashPrefix:  fingerprint.Short(txn.Hash),
		Reason:      reason,
	})
}

func (r *run) fail(index int, txn model.ParsedTransaction, err error) {
	r.summary.Failed++
	r.summary.Failures = append(r.summary.Failures, model.FailureDetail{
		Index:       index,
		Description: txn.Description,
		Error:       err.Error(),
	})
	r.log.Warn().Err(err).Int("index", index).Str("hash", fingerprint.Short(txn.Hash)).Msg("record not imported")
}

func sortedTotals(totals map[string]decimal.Decimal) []model.Money {
	out := make([]model.Money, 0, len(totals))
	for ccy, amt := range totals {
		out = append(out, model.Money{Amount: amt, Currency: ccy})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
