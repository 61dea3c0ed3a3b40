// Package inmemdb is a process-local store used by tests and the `memory` storage backend.
package inmemdb

import (
	"context"
	"strings"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex // one transaction at a time
		data  tables
	}

	tables struct {
		users      map[string]user.User
		admissions map[string]admission.Request
		students   map[string]student.Student
		teachers   map[string]teacher.Teacher
		attendance map[string]attendance.Attendance
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{data: tables{
		users:      make(map[string]user.User),
		admissions: make(map[string]admission.Request),
		students:   make(map[string]student.Student),
		teachers:   make(map[string]teacher.Teacher),
		attendance: make(map[string]attendance.Attendance),
	}}
}

// tx is the executor handed to WithinTx callbacks. Only its undo log is used: repositories
// write straight to the tables and record how to revert each write.
type tx struct {
	core.DBExecutor
	undo []func()
}

func txOf(exec []core.DBExecutor) *tx {
	if len(exec) > 0 {
		if t, ok := exec[0].(*tx); ok {
			return t
		}
	}
	return nil
}

// remember records the current state of m[key] in the undo log of the transaction in exec, if any.
// Callers hold the write lock.
func remember[V any](exec []core.DBExecutor, m map[string]V, key string) {
	t := txOf(exec)
	if t == nil {
		return
	}
	old, existed := m[key]
	t.undo = append(t.undo, func() {
		if existed {
			m[key] = old
		} else {
			delete(m, key)
		}
	})
}

func put[V any](exec []core.DBExecutor, m map[string]V, key string, v V) {
	remember(exec, m, key)
	m[key] = v
}

func del[V any](exec []core.DBExecutor, m map[string]V, key string) {
	if _, ok := m[key]; !ok {
		return
	}
	remember(exec, m, key)
	delete(m, key)
}

// WithinTx runs fn with an executor collecting an undo log; when fn fails, only the writes made
// through that executor are reverted, newest first. Writes made outside fn are left alone.
func (db *DB) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	t := new(tx)
	if err := fn(t); err != nil {
		db.mutex.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		db.mutex.Unlock()
		return err
	}
	return nil
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh := Open()
	db.mutex.Lock()
	db.data = fresh.data
	db.mutex.Unlock()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func paginate[T any](items []T, page *core.Pagination) []T {
	if page == nil {
		return items
	}
	start, end := page.Slice(len(items))
	return items[start:end]
}

func idSet(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
