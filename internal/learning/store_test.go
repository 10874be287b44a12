// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestStore_NotInitialized(t *testing.T) {
	store, err := NewStore("whatever.db")
	require.NoError(t, err)

	_, err = store.InsertMiss(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestMarkCorrected_NoMatchingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE misses").
		WithArgs("get_time", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := newStoreWithDB(db)
	err = store.MarkCorrected(context.Background(), 42, "get_time")
	assert.Error(t, err, "correcting an already corrected or missing row must fail")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneMisses_DeletesOnlyUncorrected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM misses WHERE corrected = 0").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := newStoreWithDB(db)
	pruned, err := store.PruneMisses(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pruned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestUncorrected_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM misses").
		WillReturnError(errors.New("disk I/O error"))

	store := newStoreWithDB(db)
	_, _, err = store.LatestUncorrected(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestUncorrected_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "text", "corrected", "corrected_intent", "created_at"})
	mock.ExpectQuery("SELECT (.+) FROM misses").WillReturnRows(rows)

	store := newStoreWithDB(db)
	_, found, err := store.LatestUncorrected(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLookupCorrection_ReturnsLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"corrected_intent"}).AddRow("open_application")
	mock.ExpectQuery("SELECT corrected_intent FROM misses").
		WithArgs("fire up the browser").
		WillReturnRows(rows)

	store := newStoreWithDB(db)
	intent, found, err := store.LookupCorrection(context.Background(), "fire up the browser")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "open_application", intent)
}

func TestCorrectionGroups_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"text", "corrected_intent", "cnt"}).
		AddRow("valid", "get_time", 2).
		RowError(0, errors.New("row corrupted"))
	mock.ExpectQuery("SELECT text, corrected_intent").WillReturnRows(rows)

	store := newStoreWithDB(db)
	_, err = store.CorrectionGroups(context.Background())
	assert.Error(t, err)
}

func TestStats_Aggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM misses$").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM misses WHERE corrected = 1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM aliases").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	store := newStoreWithDB(db)
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 10, stats["total_misses"])
	assert.EqualValues(t, 4, stats["corrected_misses"])
	assert.EqualValues(t, 2, stats["generated_aliases"])
	assert.InDelta(t, 0.4, stats["correction_rate"].(float64), 0.001)
}

func TestMisses_OrderedNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "text", "corrected", "corrected_intent", "created_at"}).
		AddRow(2, "newer", 0, "", now).
		AddRow(1, "older", 1, "get_time", now.Add(-time.Minute))
	mock.ExpectQuery("SELECT (.+) FROM misses ORDER BY id DESC").WillReturnRows(rows)

	store := newStoreWithDB(db)
	misses, err := store.Misses(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, misses, 2)
	assert.Equal(t, "newer", misses[0].Text)
	assert.True(t, misses[1].Corrected)
}
