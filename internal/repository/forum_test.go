package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

// ===== DELETE OWNERSHIP FALLBACK =====

func TestForumRepository_DeletePost_ReportsOwnershipCheckFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewForumRepository(db)

	mock.ExpectExec("UPDATE forum_posts SET deleted_at").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnError(errors.New("connection reset"))

	err := repo.DeletePost(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("expected an error from the failed existence check")
	}
	// A query failure is not a verdict on the post.
	if errors.Is(err, model.ErrForumPostNotFound) || errors.Is(err, model.ErrNotForumPostOwner) {
		t.Fatalf("error = %v, want the underlying query failure", err)
	}
}

func TestForumRepository_DeletePost_NotOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewForumRepository(db)

	mock.ExpectExec("UPDATE forum_posts SET deleted_at").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := repo.DeletePost(context.Background(), 1, 2); !errors.Is(err, model.ErrNotForumPostOwner) {
		t.Fatalf("error = %v, want ErrNotForumPostOwner", err)
	}
}

func TestForumRepository_DeletePost_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewForumRepository(db)

	mock.ExpectExec("UPDATE forum_posts SET deleted_at").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if err := repo.DeletePost(context.Background(), 1, 2); !errors.Is(err, model.ErrForumPostNotFound) {
		t.Fatalf("error = %v, want ErrForumPostNotFound", err)
	}
}
