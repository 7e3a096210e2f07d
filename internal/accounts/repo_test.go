package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
)

var accountCols = []string{
	"id", "tenant_id", "name", "email", "patreon_id", "patreon_token",
	"pledge_cents", "is_admin", "banned_at", "logged_out_at", "created_at", "updated_at",
}

func fixture(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger, _ := test.NewNullLogger()
	return NewRepo(db, logger), mock
}

func TestByID(t *testing.T) {
	repo, mock := fixture(t)
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(
			"acct-1", nil, "Pat Ron", "pat@example.com", "patron-9", "tok",
			500, false, nil, nil, time.Now(), time.Now()))

	acct, err := repo.ByID(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.PatreonID != "patron-9" || acct.PledgeCents != 500 {
		t.Fatalf("unexpected account %+v", acct)
	}
	if acct.IsBanned() {
		t.Fatal("expected not banned")
	}
}

func TestByIDNotFound(t *testing.T) {
	repo, mock := fixture(t)
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(accountCols))

	if _, err := repo.ByID(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertFromOAuth(t *testing.T) {
	repo, mock := fixture(t)
	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("patron-9", "Pat Ron", "pat@example.com", "at", 500, nil).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(
			"acct-1", nil, "Pat Ron", "pat@example.com", "patron-9", "at",
			500, false, nil, nil, time.Now(), time.Now()))

	acct, err := repo.UpsertFromOAuth(context.Background(), UpsertParams{
		PatreonID:   "patron-9",
		Name:        "Pat Ron",
		Email:       "pat@example.com",
		AccessToken: "at",
		PledgeCents: 500,
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if acct.ID != "acct-1" {
		t.Fatalf("unexpected id %s", acct.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetBannedNotFound(t *testing.T) {
	repo, mock := fixture(t)
	mock.ExpectExec("UPDATE accounts SET banned_at = NOW").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetBanned(context.Background(), "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStampLoggedOut(t *testing.T) {
	repo, mock := fixture(t)
	mock.ExpectExec("UPDATE accounts SET logged_out_at = NOW").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.StampLoggedOut(context.Background(), "acct-1"); err != nil {
		t.Fatalf("stamp failed: %v", err)
	}
}
