package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tendant/genome-pipeline/pkg/pipeline"
)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pipeline_item_results").
		WillReturnResult(sqlmock.NewResult(0, 0))
	l, err := New(context.Background(), db)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return l, mock
}

func TestNewEnsureTableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pipeline_item_results").
		WillReturnError(errors.New("permission denied"))

	if _, err := New(context.Background(), db); err == nil {
		t.Fatal("expected error when the table cannot be created")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecord(t *testing.T) {
	l, mock := newMockLedger(t)
	result := pipeline.ItemResult{
		Item:     pipeline.WorkItem{ID: "acc1"},
		Status:   pipeline.StatusFailed,
		Command:  "prokka acc1.fasta",
		ExitCode: 2,
		Error:    "exit status 2",
		Output:   "boom",
		Duration: 1500 * time.Millisecond,
	}

	mock.ExpectExec("INSERT INTO pipeline_item_results").
		WithArgs("run-1", "annotate", "acc1", "failed", 2, "prokka acc1.fasta", "exit status 2", "boom", int64(1500)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := l.Record(context.Background(), "run-1", pipeline.StageAnnotate, result); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordError(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec("INSERT INTO pipeline_item_results").
		WillReturnError(errors.New("connection reset"))

	err := l.Record(context.Background(), "run-1", pipeline.StageCollect, pipeline.ItemResult{Item: pipeline.WorkItem{ID: "acc1"}})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestFailedItems(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectQuery("SELECT item_id FROM pipeline_item_results").
		WithArgs("run-1", "annotate", "succeeded").
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).AddRow("acc2").AddRow("acc5"))

	ids, err := l.FailedItems(context.Background(), pipeline.StageAnnotate, "run-1")
	if err != nil {
		t.Fatalf("FailedItems returned error: %v", err)
	}
	if strings.Join(ids, ",") != "acc2,acc5" {
		t.Fatalf("unexpected failed items %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTail(t *testing.T) {
	if got := tail("abc", 5); got != "abc" {
		t.Fatalf("short strings should be kept, got %q", got)
	}
	if got := tail("abcdef", 3); got != "def" {
		t.Fatalf("expected %q, got %q", "def", got)
	}
	long := strings.Repeat("x", maxOutputTail+10)
	if got := tail(long, maxOutputTail); len(got) != maxOutputTail {
		t.Fatalf("expected %d bytes, got %d", maxOutputTail, len(got))
	}
}

func TestTailKeepsValidUTF8(t *testing.T) {
	// "é" is two bytes; a 3-byte cut of "ééé" lands mid-rune
	got := tail("ééé", 3)
	if !utf8.ValidString(got) {
		t.Fatalf("tail produced invalid UTF-8: %q", got)
	}
	if got != "é" {
		t.Fatalf("expected %q, got %q", "é", got)
	}
}

func TestOpenRejectsBadURL(t *testing.T) {
	if _, err := Open(context.Background(), "postgres://user@localhost:badport/db"); err == nil {
		t.Fatal("expected error for malformed database URL")
	}
}

func TestCloseNil(t *testing.T) {
	var l *Ledger
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil ledger returned error: %v", err)
	}
}
