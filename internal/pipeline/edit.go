package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/session"
)

// RecordPatch is a preview edit. Nil fields are left unchanged.
type RecordPatch struct {
	Selected    *bool                  `json:"selected,omitempty"`
	Description *string                `json:"description,omitempty"`
	Amount      *decimal.Decimal       `json:"amount,omitempty"`
	Currency    *string                `json:"currency,omitempty"`
	Type        *model.TransactionType `json:"type,omitempty"`
	Date        *time.Time             `json:"date,omitempty"`
	// CategoryID set to "" clears the category.
	CategoryID *string   `json:"categoryId,omitempty"`
	TagIDs     *[]string `json:"tagIds,omitempty"`
}

// UpdateRecord applies a preview edit. The record hash is left as parsed so
// re-imports of the same file are still recognized.
func (s *Service) UpdateRecord(ctx context.Context, id string, index int, p RecordPatch) (*session.Session, error) {
	current, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	var cats *categories.Index
	if p.CategoryID != nil || p.Type != nil {
		list, err := s.store.ListCategories(ctx, current.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing categories: %w", err)
		}
		cats = categories.NewIndex(list)
	}
	if p.TagIDs != nil {
		if err := s.checkTags(ctx, current.UserID, *p.TagIDs); err != nil {
			return nil, err
		}
	}

	return s.sessions.Update(id, func(sess *session.Session) error {
		if sess.State != session.StatePreview {
			return ErrAlreadyCommitted
		}
		if index < 0 || index >= len(sess.Records) {
			return fmt.Errorf("%w: record %d out of range", ErrInvalidEdit, index)
		}
		rec := &sess.Records[index]
		txn := rec.Transaction

		if p.Description != nil {
			txn.Description = strings.TrimSpace(*p.Description)
		}
		if p.Amount != nil {
			if p.Amount.IsNegative() {
				return fmt.Errorf("%w: amount must not be negative", ErrInvalidEdit)
			}
			txn.Amount = *p.Amount
		}
		if p.Currency != nil {
			txn.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
		}
		if p.Type != nil {
			txn.Type = *p.Type
		}
		if p.Date != nil {
			txn.Date = *p.Date
		}
		if errs := importer.Validate(txn); len(errs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidEdit, joinValidation(errs))
		}

		categoryID := rec.CategoryID
		auto := rec.AutoCategorized
		if p.CategoryID != nil {
			categoryID = *p.CategoryID
			auto = false
		}
		if categoryID != "" && cats != nil {
			c, ok := cats.Get(categoryID)
			switch {
			case !ok:
				return fmt.Errorf("%w: unknown category %q", ErrInvalidEdit, categoryID)
			case c.Type != txn.Type && auto:
				// A type flip invalidates the matcher's pick.
				categoryID = ""
				auto = false
			case c.Type != txn.Type:
				return fmt.Errorf("%w: category %q is for %s", ErrInvalidEdit, c.Name, c.Type)
			}
		}

		rec.Transaction = txn
		rec.CategoryID = categoryID
		rec.AutoCategorized = auto
		if !auto {
			rec.Strategy = ""
		}
		if p.TagIDs != nil {
			rec.TagIDs = append([]string(nil), (*p.TagIDs)...)
		}
		if p.Selected != nil {
			rec.Selected = *p.Selected
		}
		return nil
	})
}

// SetAccount chooses the destination account of a single-account import.
func (s *Service) SetAccount(ctx context.Context, id, accountID string) (*session.Session, error) {
	current, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if current.Source.MultiAccount() {
		return nil, fmt.Errorf("%w: %s imports use account mappings", ErrInvalidEdit, current.Source)
	}
	if _, err := s.store.GetAccount(ctx, current.UserID, accountID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}
	return s.sessions.Update(id, func(sess *session.Session) error {
		if sess.State != session.StatePreview {
			return ErrAlreadyCommitted
		}
		sess.AccountID = accountID
		return nil
	})
}

// MapAccounts merges account-name mappings into a multi-account import.
// An empty account id removes the mapping for that name.
func (s *Service) MapAccounts(ctx context.Context, id string, mappings map[string]string) (*session.Session, error) {
	current, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if !current.Source.MultiAccount() {
		return nil, fmt.Errorf("%w: %s imports have a single account", ErrInvalidEdit, current.Source)
	}

	known := make(map[string]bool)
	for _, n := range current.AccountNames() {
		known[n] = true
	}
	for name, accountID := range mappings {
		if !known[name] {
			return nil, fmt.Errorf("%w: file has no account %q", ErrInvalidEdit, name)
		}
		if accountID == "" {
			continue
		}
		if _, err := s.store.GetAccount(ctx, current.UserID, accountID); err != nil {
			return nil, fmt.Errorf("%w: mapping %q: %w", ErrInvalidEdit, name, err)
		}
	}

	return s.sessions.Update(id, func(sess *session.Session) error {
		if sess.State != session.StatePreview {
			return ErrAlreadyCommitted
		}
		if sess.AccountMappings == nil {
			sess.AccountMappings = make(map[string]string)
		}
		for name, accountID := range mappings {
			if accountID == "" {
				delete(sess.AccountMappings, name)
				continue
			}
			sess.AccountMappings[name] = accountID
		}
		return nil
	})
}

func (s *Service) checkTags(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tags, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing tags: %w", err)
	}
	known := make(map[string]bool, len(tags))
	for _, t := range tags {
		known[t.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("%w: unknown tag %q", ErrInvalidEdit, id)
		}
	}
	return nil
}

func joinValidation(errs []importer.ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// IsUserError reports whether err stems from bad input rather than a
// failing collaborator.
func IsUserError(err error) bool {
	var pe *importer.ParseError
	return errors.As(err, &pe) ||
		errors.Is(err, importer.ErrUnknownFormat) ||
		errors.Is(err, ErrInvalidEdit) ||
		errors.Is(err, ErrNoTargetAccount)
}
