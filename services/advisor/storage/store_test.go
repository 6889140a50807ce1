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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestOpenDB_RequiresPath(t *testing.T) {
	_, err := OpenDB(Config{})
	assert.Error(t, err)
}

func TestOpenDB_Persistent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0 // keep the test quiet

	db, err := OpenDB(cfg)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestStore_Accounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acct := &datatypes.Account{
		UserID:  "user-1",
		Name:    "Everyday Checking",
		Kind:    datatypes.AccountKindChecking,
		Balance: decimal.RequireFromString("2450.00"),
	}
	require.NoError(t, store.PutAccount(ctx, acct))
	assert.NotEmpty(t, acct.ID)
	assert.NotZero(t, acct.CreatedAt)

	require.NoError(t, store.PutAccount(ctx, &datatypes.Account{
		UserID: "user-1", Name: "Brokerage", Kind: datatypes.AccountKindInvestment,
	}))
	require.NoError(t, store.PutAccount(ctx, &datatypes.Account{
		UserID: "user-2", Name: "Other User", Kind: datatypes.AccountKindCash,
	}))

	accounts, err := store.ListAccounts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2, "must not see other users' accounts")
	assert.Equal(t, "Brokerage", accounts[0].Name) // sorted by name
	assert.True(t, accounts[1].Balance.Equal(decimal.RequireFromString("2450.00")))

	got, err := store.GetAccount(ctx, "user-1", acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.Name, got.Name)

	_, err = store.GetAccount(ctx, "user-2", acct.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_TransactionsMonthScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	add := func(day int, month time.Month, amount string) {
		require.NoError(t, store.PutTransaction(ctx, &datatypes.Transaction{
			UserID:   "user-1",
			Date:     time.Date(2025, month, day, 0, 0, 0, 0, time.UTC),
			Amount:   decimal.RequireFromString(amount),
			Category: "Groceries",
		}))
	}
	add(5, time.March, "-10.00")
	add(1, time.March, "-20.00")
	add(5, time.February, "-99.00")

	txns, err := store.ListTransactions(ctx, "user-1", 2025, time.March)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].Date.Before(txns[1].Date), "sorted by date")
	assert.Equal(t, "groceries", txns[0].Category, "category normalized on write")

	empty, err := store.ListTransactions(ctx, "user-1", 2025, time.April)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_BudgetUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutBudget(ctx, &datatypes.Budget{
		UserID: "user-1", Category: "Groceries", Limit: decimal.RequireFromString("500"),
	}))
	require.NoError(t, store.PutBudget(ctx, &datatypes.Budget{
		UserID: "user-1", Category: "groceries", Limit: decimal.RequireFromString("600"),
	}))

	budgets, err := store.ListBudgets(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, budgets, 1, "same category after normalization replaces")
	assert.True(t, budgets[0].Limit.Equal(decimal.RequireFromString("600")))
}

func TestStore_ConversationLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "user-1", "")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)

	turn1, err := store.AppendTurn(ctx, "user-1", conv.ID, "How much did I spend?", "You spent $100.")
	require.NoError(t, err)
	assert.Equal(t, 1, turn1.Seq)

	turn2, err := store.AppendTurn(ctx, "user-1", conv.ID, "And on rent?", "Rent was $900.")
	require.NoError(t, err)
	assert.Equal(t, 2, turn2.Seq)

	turns, err := store.ListTurns(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "How much did I spend?", turns[0].Question)
	assert.Equal(t, "And on rent?", turns[1].Question)

	got, err := store.GetConversation(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TurnCount)
	assert.Equal(t, "How much did I spend?", got.Title, "title derived from first question")

	deleted, err := store.DeleteConversation(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = store.GetConversation(ctx, "user-1", conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	turns, err = store.ListTurns(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestStore_AppendTurnMissingConversation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendTurn(context.Background(), "user-1", "no-such-conv", "q", "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListConversationsMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateConversation(ctx, "user-1", "first")
	require.NoError(t, err)
	second, err := store.CreateConversation(ctx, "user-1", "second")
	require.NoError(t, err)

	// Touch the first conversation so it becomes the most recent.
	time.Sleep(2 * time.Millisecond)
	_, err = store.AppendTurn(ctx, "user-1", first.ID, "q", "a")
	require.NoError(t, err)

	convs, err := store.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, first.ID, convs[0].ID)
	assert.Equal(t, second.ID, convs[1].ID)
}

func TestStore_ContextCancelled(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListAccounts(ctx, "user-1")
	assert.Error(t, err)
}
