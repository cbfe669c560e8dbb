package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, "profile-1", nil), mock
}

func TestPostgresGet(t *testing.T) {
	store, mock := newMockPostgres(t)
	query := regexp.QuoteMeta(`SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`)

	mock.ExpectQuery(query).
		WithArgs("profile-1", "auth_token_superadmin").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tok"))
	mock.ExpectQuery(query).
		WithArgs("profile-1", "missing").
		WillReturnError(sql.ErrNoRows)

	v, ok, err := store.Get(context.Background(), "auth_token_superadmin")
	if err != nil || !ok || v != "tok" {
		t.Fatalf("unexpected result %q ok=%v err=%v", v, ok, err)
	}

	if _, ok, err := store.Get(context.Background(), "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSetAndRemove(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_entries`)).
		WithArgs("profile-1", "sabor_y_tradicion_cart", `{"items":[]}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`)).
		WithArgs("profile-1", "sabor_y_tradicion_cart").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := store.Set(ctx, "sabor_y_tradicion_cart", `{"items":[]}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Remove(ctx, "sabor_y_tradicion_cart"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresKeysEscapesPrefix(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT key FROM kv_entries WHERE namespace = $1 AND key LIKE $2`)).
		WithArgs("profile-1", `auth\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("auth_token_superadmin").
			AddRow("auth_user_superadmin"))

	keys, err := store.Keys(context.Background(), "auth_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "auth_token_superadmin" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
