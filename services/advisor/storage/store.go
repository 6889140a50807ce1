// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// =============================================================================
// Key Scheme
// =============================================================================
//
// All keys are user-scoped so a prefix scan never crosses users:
//
//	account/<userID>/<accountID>
//	txn/<userID>/<yyyy-mm>/<txnID>
//	budget/<userID>/<category>
//	conv/<userID>/<convID>
//	turn/<userID>/<convID>/<seq, zero-padded>
//
// Transactions embed the month in the key so a month's records are one
// contiguous prefix scan — the access pattern of the chat context
// assembly. Turn keys zero-pad the sequence number so lexical order is
// chronological order.

func accountKey(userID, accountID string) []byte {
	return fmt.Appendf(nil, "account/%s/%s", userID, accountID)
}

func accountPrefix(userID string) []byte {
	return fmt.Appendf(nil, "account/%s/", userID)
}

func txnKey(userID string, date time.Time, txnID string) []byte {
	return fmt.Appendf(nil, "txn/%s/%s/%s", userID, date.UTC().Format("2006-01"), txnID)
}

func txnMonthPrefix(userID string, year int, month time.Month) []byte {
	return fmt.Appendf(nil, "txn/%s/%04d-%02d/", userID, year, int(month))
}

func budgetKey(userID, category string) []byte {
	return fmt.Appendf(nil, "budget/%s/%s", userID, category)
}

func budgetPrefix(userID string) []byte {
	return fmt.Appendf(nil, "budget/%s/", userID)
}

func convKey(userID, convID string) []byte {
	return fmt.Appendf(nil, "conv/%s/%s", userID, convID)
}

func convPrefix(userID string) []byte {
	return fmt.Appendf(nil, "conv/%s/", userID)
}

// allConvPrefix spans every user's conversations; used by retention.
func allConvPrefix() []byte {
	return []byte("conv/")
}

func turnKey(userID, convID string, seq int) []byte {
	return fmt.Appendf(nil, "turn/%s/%s/%010d", userID, convID, seq)
}

func turnPrefix(userID, convID string) []byte {
	return fmt.Appendf(nil, "turn/%s/%s/", userID, convID)
}

// =============================================================================
// Store
// =============================================================================

// Store provides typed access to the advisor's records on top of the
// Badger key scheme above. All methods are safe for concurrent use.
type Store struct {
	db *DB
}

// NewStore wraps an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// setJSON marshals v and writes it under key within txn.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// getJSON reads key within txn and unmarshals into v.
// Returns ErrNotFound when the key is absent.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// scanJSON iterates all values under prefix, unmarshaling each into a
// fresh T and appending to the result. Lexical key order.
func scanJSON[T any](txn *badger.Txn, prefix []byte) ([]T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []T
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// deletePrefix removes every key under prefix and reports the count.
func deletePrefix(txn *badger.Txn, prefix []byte) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	deleted := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// =============================================================================
// Accounts
// =============================================================================

// PutAccount stores an account, assigning an ID and timestamp when absent.
func (s *Store) PutAccount(ctx context.Context, acct *datatypes.Account) error {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.CreatedAt == 0 {
		acct.CreatedAt = time.Now().UnixMilli()
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, accountKey(acct.UserID, acct.ID), acct)
	})
}

// GetAccount fetches one account. Returns ErrNotFound when absent.
func (s *Store) GetAccount(ctx context.Context, userID, accountID string) (*datatypes.Account, error) {
	var acct datatypes.Account
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, accountKey(userID, accountID), &acct)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// ListAccounts returns the user's accounts sorted by name.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]datatypes.Account, error) {
	var accounts []datatypes.Account
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		accounts, err = scanJSON[datatypes.Account](txn, accountPrefix(userID))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// =============================================================================
// Transactions
// =============================================================================

// PutTransaction stores a transaction under its month bucket, assigning
// an ID when absent. Category is normalized before storage.
func (s *Store) PutTransaction(ctx context.Context, txn *datatypes.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txn.Category = datatypes.NormalizeCategory(txn.Category)
	return s.db.WithTxn(ctx, func(t *badger.Txn) error {
		return setJSON(t, txnKey(txn.UserID, txn.Date, txn.ID), txn)
	})
}

// ListTransactions returns the user's transactions for one month,
// sorted by date then ID for a stable order.
func (s *Store) ListTransactions(ctx context.Context, userID string, year int, month time.Month) ([]datatypes.Transaction, error) {
	var txns []datatypes.Transaction
	err := s.db.WithReadTxn(ctx, func(t *badger.Txn) error {
		var err error
		txns, err = scanJSON[datatypes.Transaction](t, txnMonthPrefix(userID, year, month))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

// =============================================================================
// Budgets
// =============================================================================

// PutBudget stores (or replaces) a category budget. Category is
// normalized so lookups and summaries agree on the bucket name.
func (s *Store) PutBudget(ctx context.Context, b *datatypes.Budget) error {
	b.Category = datatypes.NormalizeCategory(b.Category)
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, budgetKey(b.UserID, b.Category), b)
	})
}

// ListBudgets returns the user's budgets sorted by category.
func (s *Store) ListBudgets(ctx context.Context, userID string) ([]datatypes.Budget, error) {
	var budgets []datatypes.Budget
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		budgets, err = scanJSON[datatypes.Budget](txn, budgetPrefix(userID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// =============================================================================
// Conversations
// =============================================================================

// CreateConversation starts a new conversation for the user. Title is
// optional and may be set later from the first question.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (*datatypes.Conversation, error) {
	now := time.Now().UnixMilli()
	conv := &datatypes.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, convKey(userID, conv.ID), conv)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation fetches one conversation. Returns ErrNotFound when
// absent or owned by another user.
func (s *Store) GetConversation(ctx context.Context, userID, convID string) (*datatypes.Conversation, error) {
	var conv datatypes.Conversation
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, convKey(userID, convID), &conv)
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns the user's conversations, most recently
// updated first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]datatypes.Conversation, error) {
	var convs []datatypes.Conversation
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		convs, err = scanJSON[datatypes.Conversation](txn, convPrefix(userID))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt > convs[j].UpdatedAt })
	return convs, nil
}

// ListAllConversations scans every user's conversations. Used by the
// retention cleaner; not exposed over HTTP.
func (s *Store) ListAllConversations(ctx context.Context) ([]datatypes.Conversation, error) {
	var convs []datatypes.Conversation
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		convs, err = scanJSON[datatypes.Conversation](txn, allConvPrefix())
		return err
	})
	return convs, err
}

// AppendTurn stores a question/answer exchange on a conversation,
// assigning the next sequence number and bumping UpdatedAt in the same
// transaction so retention and ordering stay consistent.
func (s *Store) AppendTurn(ctx context.Context, userID, convID, question, answer string) (*datatypes.Turn, error) {
	if len(answer) > datatypes.MaxAnswerBytes {
		answer = answer[:datatypes.MaxAnswerBytes]
	}

	var turn *datatypes.Turn
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		var conv datatypes.Conversation
		if err := getJSON(txn, convKey(userID, convID), &conv); err != nil {
			return err
		}

		conv.TurnCount++
		conv.UpdatedAt = time.Now().UnixMilli()
		if conv.Title == "" {
			conv.Title = truncateTitle(question)
		}

		turn = &datatypes.Turn{
			ConversationID: convID,
			Seq:            conv.TurnCount,
			Question:       question,
			Answer:         answer,
			CreatedAt:      conv.UpdatedAt,
		}

		if err := setJSON(txn, turnKey(userID, convID, turn.Seq), turn); err != nil {
			return err
		}
		return setJSON(txn, convKey(userID, convID), &conv)
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}

// ListTurns returns a conversation's turns in chronological order.
// The zero-padded sequence in the key makes lexical scan order
// chronological already.
func (s *Store) ListTurns(ctx context.Context, userID, convID string) ([]datatypes.Turn, error) {
	var turns []datatypes.Turn
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		turns, err = scanJSON[datatypes.Turn](txn, turnPrefix(userID, convID))
		return err
	})
	return turns, err
}

// DeleteConversation removes a conversation and all of its turns.
// Returns the number of turns deleted, or ErrNotFound when the
// conversation does not exist.
func (s *Store) DeleteConversation(ctx context.Context, userID, convID string) (int, error) {
	deleted := 0
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		var conv datatypes.Conversation
		if err := getJSON(txn, convKey(userID, convID), &conv); err != nil {
			return err
		}
		var err error
		deleted, err = deletePrefix(txn, turnPrefix(userID, convID))
		if err != nil {
			return err
		}
		return txn.Delete(convKey(userID, convID))
	})
	return deleted, err
}

// truncateTitle derives a conversation title from its first question.
func truncateTitle(question string) string {
	const maxTitle = 80
	runes := []rune(question)
	if len(runes) <= maxTitle {
		return question
	}
	return string(runes[:maxTitle]) + "..."
}
