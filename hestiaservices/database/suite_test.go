package database_test

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lunagic/hestia/hestiaservices/cache"
	"github.com/lunagic/hestia/hestiaservices/database"
	"gotest.tools/v3/assert"
)

type UserSettings struct {
	FavoriteColor string
}

type UserID int64
type CompanyID int64

type Company struct {
	ID   CompanyID `db:"id,primaryKey,autoIncrement"`
	Name string    `db:"name"`
}

func (e Company) TableName() string {
	return "companies"
}

type User struct {
	ID        UserID       `db:"id,primaryKey,autoIncrement"`
	Email     string       `db:"email"`
	CompanyID CompanyID    `db:"company_id"`
	Votes     int          `db:"votes"`
	Settings  UserSettings `db:"settings"`
	CreatedAt *time.Time   `db:"created_at"`
}

func (e User) TableName() string {
	return "users"
}

func testSuite(t *testing.T, driver database.Driver, schema []string) {
	cacheDriver, err := cache.NewDriverMemory(t.Context())
	assert.NilError(t, err)

	connection, err := database.NewConnection("default", driver,
		database.WithLogger(slog.Default()),
		database.WithResultCache(cacheDriver),
	)
	assert.NilError(t, err)
	t.Cleanup(func() {
		_ = connection.Disconnect()
	})

	for _, statement := range schema {
		_, err := connection.Statement(t.Context(), statement)
		assert.NilError(t, err, statement)
	}

	companyRepo := database.NewRepository[CompanyID, Company](connection)
	userRepo := database.NewRepository[UserID, User](connection)

	companyID, err := companyRepo.Insert(t.Context(), Company{Name: "Lunagic"})
	assert.NilError(t, err)
	assert.Equal(t, companyID, CompanyID(1))

	{ // Repository crud
		testEmailAddress := uuid.NewString()
		testFavoriteColor := uuid.NewString()

		newUserID, err := userRepo.Insert(t.Context(), User{
			Email:     testEmailAddress,
			CompanyID: companyID,
			Votes:     1,
			Settings:  UserSettings{FavoriteColor: testFavoriteColor},
		})
		assert.NilError(t, err)
		assert.Equal(t, newUserID, UserID(1))

		user, err := userRepo.Find(t.Context(), newUserID)
		assert.NilError(t, err)
		assert.Equal(t, user.Email, testEmailAddress)
		assert.Equal(t, user.CompanyID, companyID)
		assert.Equal(t, user.Settings.FavoriteColor, testFavoriteColor)
		assert.Assert(t, user.CreatedAt == nil)

		user.Votes = 10
		assert.NilError(t, userRepo.Update(t.Context(), user))

		users, err := userRepo.SelectMultiple(t.Context(), database.WithAdditionalWhere(func(query *database.QueryBuilder) {
			query.Where("votes", ">=", 10)
		}))
		assert.NilError(t, err)
		assert.Equal(t, len(users), 1)
		assert.Equal(t, users[0].ID, newUserID)

		assert.NilError(t, userRepo.Delete(t.Context(), user))

		_, err = userRepo.Find(t.Context(), newUserID)
		assert.ErrorIs(t, err, database.ErrNoRows)
	}

	{ // Seed through the builder
		for i := 1; i <= 5; i++ {
			_, err := connection.Table("users").Insert(t.Context(), map[string]any{
				"email":      uuid.NewString(),
				"company_id": companyID,
				"votes":      i,
				"created_at": time.Date(2020+i, time.June, 1, 10, 0, 0, 0, time.UTC),
			})
			assert.NilError(t, err)
		}

		id, err := connection.Table("users").InsertGetID(t.Context(), map[string]any{
			"email": "first@example.com",
			"votes": 0,
		}, "")
		assert.NilError(t, err)
		assert.Assert(t, id > 0)

		row, err := connection.Table("users").Find(t.Context(), id)
		assert.NilError(t, err)
		assert.Equal(t, row["email"], "first@example.com")
	}

	{ // Aggregates
		count, err := connection.Table("users").Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(6))

		sum, err := connection.Table("users").Where("votes", ">", 3).Sum(t.Context(), "votes")
		assert.NilError(t, err)
		assert.Equal(t, sum, float64(9))

		exists, err := connection.Table("users").Where("email", "=", "first@example.com").Exists(t.Context())
		assert.NilError(t, err)
		assert.Assert(t, exists)

		missing, err := connection.Table("users").Where("email", "=", "nobody@example.com").DoesntExist(t.Context())
		assert.NilError(t, err)
		assert.Assert(t, missing)
	}

	{ // Pagination and chunking
		page, err := connection.Table("users").OrderBy("votes", "asc").Paginate(t.Context(), 2, 4)
		assert.NilError(t, err)
		assert.Equal(t, page.Total, int64(6))
		assert.Equal(t, page.LastPage, 2)
		assert.Equal(t, len(page.Items), 2)

		seen := 0
		err = connection.Table("users").OrderBy("id", "asc").Chunk(t.Context(), 4, func(rows []database.Row, page int) error {
			seen += len(rows)
			return nil
		})
		assert.NilError(t, err)
		assert.Equal(t, seen, 6)
	}

	{ // Dates
		count, err := connection.Table("users").WhereYear("created_at", ">=", 2024).Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(2))

		count, err = connection.Table("users").WhereDate("created_at", "=", "2021-06-01").Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(1))
	}

	{ // Joins with aliases, grouping and having
		rows, err := connection.Table("users as u").
			Join("companies as c", "c.id", "=", "u.company_id").
			Select("c.name").
			SelectRaw("count(*) as total").
			GroupBy("c.name").
			HavingRaw("count(*) > ?", 1).
			Get(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, len(rows), 1)
		assert.Equal(t, rows[0]["name"], "Lunagic")
	}

	{ // Updates
		_, err := connection.Table("users").Where("email", "=", "first@example.com").Increment(t.Context(), "votes", 5, nil)
		assert.NilError(t, err)

		votes, err := connection.Table("users").Where("email", "=", "first@example.com").Value(t.Context(), "votes")
		assert.NilError(t, err)
		assert.Equal(t, asInt64(t, votes), int64(5))

		_, err = connection.Table("users").Upsert(t.Context(),
			[]map[string]any{{"email": "first@example.com", "votes": 50}},
			[]string{"email"},
			[]string{"votes"},
		)
		assert.NilError(t, err)

		votes, err = connection.Table("users").Where("email", "=", "first@example.com").Value(t.Context(), "votes")
		assert.NilError(t, err)
		assert.Equal(t, asInt64(t, votes), int64(50))

		count, err := connection.Table("users").Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(6))
	}

	{ // Insert or ignore
		_, err := connection.Table("users").InsertOrIgnore(t.Context(), map[string]any{"email": "first@example.com", "votes": 0})
		if driver.Name() == "sqlsrv" {
			assert.ErrorIs(t, err, database.ErrUnsupported)
		} else {
			assert.NilError(t, err)
		}

		count, err := connection.Table("users").Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(6))
	}

	{ // Limited delete
		affected, err := connection.Table("users").Where("votes", "<", 3).Limit(1).Delete(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, affected, int64(1))
	}

	{ // A failing transaction leaves nothing behind
		expected := errors.New(uuid.NewString())
		err := connection.Transaction(t.Context(), func(ctx context.Context, connection *database.Connection) error {
			if _, err := connection.Table("users").Insert(ctx, map[string]any{"email": "rolled-back@example.com"}); err != nil {
				return err
			}

			return expected
		})
		assert.Equal(t, err, expected)

		exists, err := connection.Table("users").Where("email", "=", "rolled-back@example.com").Exists(t.Context())
		assert.NilError(t, err)
		assert.Assert(t, !exists)
	}

	{ // A successful transaction is committed
		err := connection.Transaction(t.Context(), func(ctx context.Context, connection *database.Connection) error {
			row, err := connection.Table("users").Where("email", "=", "first@example.com").LockForUpdate().First(ctx)
			if err != nil {
				return err
			}

			_, err = connection.Table("users").Where("id", "=", row["id"]).Update(ctx, map[string]any{"votes": 60})
			return err
		})
		assert.NilError(t, err)

		votes, err := connection.Table("users").Where("email", "=", "first@example.com").Value(t.Context(), "votes")
		assert.NilError(t, err)
		assert.Equal(t, asInt64(t, votes), int64(60))
	}

	{ // Remembered results outlive the rows
		remembered := func() []database.Row {
			rows, err := connection.Table("users").Select("email").Where("email", "=", "first@example.com").Remember(time.Minute).Get(t.Context())
			assert.NilError(t, err)
			return rows
		}

		assert.Equal(t, len(remembered()), 1)

		assert.NilError(t, connection.Table("users").Truncate(t.Context()))

		count, err := connection.Table("users").Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(0))

		assert.Equal(t, len(remembered()), 1)
	}
}

func asInt64(t *testing.T, value any) int64 {
	t.Helper()

	switch v := value.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		assert.NilError(t, err)
		return parsed
	}

	t.Fatalf("unexpected %T", value)

	return 0
}
