package database

import (
	"context"
	"os"
	"testing"
	"time"

	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := New(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email string) models.User {
	t.Helper()
	user := models.User{Name: "user " + email, Email: email}
	require.NoError(t, db.CreateUser(context.Background(), &user))
	return user
}

func createTestItem(t *testing.T, db *DB, ownerID int64, name string, available bool) models.Item {
	t.Helper()
	item := models.Item{Name: name, Description: name + " description", Available: available, OwnerID: ownerID}
	require.NoError(t, db.CreateItem(context.Background(), &item))
	return item
}

func TestRepositoryContracts(t *testing.T) {
	// The sqlite store must satisfy every service repository
	var db *DB
	var _ service.UserRepository = db
	var _ service.ItemRepository = db
	var _ service.BookingRepository = db
	var _ service.CommentRepository = db
}

func TestUsersCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, "a@example.com")
	assert.NotZero(t, user.ID)

	got, err := db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = db.GetUser(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// Duplicate email
	dup := models.User{Name: "dup", Email: "a@example.com"}
	err = db.CreateUser(ctx, &dup)
	assert.ErrorIs(t, err, service.ErrConflict)

	got.Name = "renamed"
	require.NoError(t, db.UpdateUser(ctx, got))
	got, err = db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	second := createTestUser(t, db, "b@example.com")
	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, db.DeleteUser(ctx, second.ID))
	assert.ErrorIs(t, db.DeleteUser(ctx, second.ID), service.ErrNotFound)
}

func TestItemsCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com")
	item := createTestItem(t, db, owner.ID, "drill", true)

	got, err := db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Equal(t, owner.ID, got.OwnerID)

	got.Available = false
	require.NoError(t, db.UpdateItem(ctx, got))
	got, err = db.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)

	_, err = db.GetItem(ctx, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestItemsByOwnerAndSearch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	createTestItem(t, db, owner.ID, "cordless drill", true)
	createTestItem(t, db, owner.ID, "ladder", true)
	createTestItem(t, db, other.ID, "drill press", false)

	items, err := db.ItemsByOwner(ctx, owner.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = db.ItemsByOwner(ctx, owner.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Unavailable items never match; matching is case-insensitive
	items, err = db.SearchItems(ctx, "DRILL", 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "cordless drill", items[0].Name)
}

func TestCommentsBulkFetch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com")
	author := createTestUser(t, db, "author@example.com")
	first := createTestItem(t, db, owner.ID, "drill", true)
	second := createTestItem(t, db, owner.ID, "ladder", true)
	third := createTestItem(t, db, owner.ID, "saw", true)

	now := time.Now().UTC()
	for _, c := range []models.Comment{
		{ItemID: first.ID, AuthorID: author.ID, AuthorName: author.Name, Text: "good", Created: now},
		{ItemID: second.ID, AuthorID: author.ID, AuthorName: author.Name, Text: "fine", Created: now},
		{ItemID: third.ID, AuthorID: author.ID, AuthorName: author.Name, Text: "sharp", Created: now},
	} {
		comment := c
		require.NoError(t, db.CreateComment(ctx, &comment))
	}

	comments, err := db.CommentsByItemIDs(ctx, []int64{first.ID, second.ID})
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	comments, err = db.CommentsByItemIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
