// Package pgstore implements the storage gateway on top of Postgres.
package pgstore

import (
	"database/sql"
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/storywall/storywall"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// A PGStore is responsible of interacting with the storage layer using a
// Postgresql database.
type PGStore struct {
	dbString string
	db       *sqlx.DB
}

// New returns a PGStore configured for a given address string, using the
// "user=postgres dbname=storywall ..." format.
func New(addr string) *PGStore {
	return &PGStore{
		dbString: addr,
	}
}

// Connect establishes a connection with the database using the address given
// at initialization and applies any pending migrations.
func (s *PGStore) Connect() error {
	db, err := sqlx.Connect("postgres", s.dbString)
	if err != nil {
		return err
	}

	s.db = db

	return s.migrate()
}

func (s *PGStore) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return &storywall.StoreError{Op: "migrate", Err: err}
	}

	driver, err := migratepg.WithInstance(s.db.DB, &migratepg.Config{})
	if err != nil {
		return &storywall.StoreError{Op: "migrate", Err: err}
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return &storywall.StoreError{Op: "migrate", Err: err}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return &storywall.StoreError{Op: "migrate", Err: err}
	}

	return nil
}

// Ping checks that the database still answers.
func (s *PGStore) Ping() error {
	return s.db.Ping()
}

// DB returns the existing connection, making it suitable to perform requests
// not already supported by the store interface. If called while not
// connected, it will return nil.
func (s *PGStore) DB() *sqlx.DB {
	return s.db
}

// InsertStory stores a new story. The id and the creation timestamp are
// assigned by the database and written back into the story.
func (s *PGStore) InsertStory(story *storywall.Story) error {
	err := s.db.QueryRow(
		"INSERT INTO stories (title, content, location, votes, is_approved, created_by) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		story.Title, story.Content, story.Location, story.Votes, story.IsApproved, story.CreatedBy,
	).Scan(&story.ID, &story.CreatedAt)

	if err != nil {
		return &storywall.StoreError{Op: "insert story", Err: err}
	}

	return nil
}

// FindStory fetches a single story by id, approved or not.
func (s *PGStore) FindStory(id int64) (*storywall.Story, error) {
	story := storywall.Story{}
	err := s.db.Get(&story, "SELECT * FROM stories WHERE id=$1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storywall.NotFound("Story")
	}
	if err != nil {
		return nil, &storywall.StoreError{Op: "find story", Err: err}
	}

	return &story, nil
}

// https://www.citusdata.com/blog/2016/03/30/five-ways-to-paginate/
func (s *PGStore) ListStories(sort storywall.SortOrder, limit int, offset int) ([]*storywall.Story, error) {
	// id breaks ties so that concatenated pages never overlap
	orderBy := "created_at DESC, id DESC"
	if sort == storywall.SortTop || sort == storywall.SortTrending {
		orderBy = "votes DESC, created_at DESC, id DESC"
	}

	stories := []*storywall.Story{}
	err := s.db.Select(&stories, "SELECT * FROM stories WHERE is_approved = true ORDER BY "+orderBy+" LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, &storywall.StoreError{Op: "list stories", Err: err}
	}

	return stories, nil
}

// IncrementStoryVotes adds one vote to a story in a single conditional
// update, returning the count the update produced.
func (s *PGStore) IncrementStoryVotes(id int64) (int, error) {
	var votes int
	err := s.db.Get(&votes, "UPDATE stories SET votes = votes + 1 WHERE id = $1 RETURNING votes", id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storywall.NotFound("Story")
	}
	if err != nil {
		return 0, &storywall.StoreError{Op: "increment votes", Err: err}
	}

	return votes, nil
}

// CountStories counts approved stories, restricted to those created at or
// after since when it is non-nil.
func (s *PGStore) CountStories(since *time.Time) (int, error) {
	var count int
	var err error
	if since != nil {
		err = s.db.Get(&count, "SELECT COUNT(*) FROM stories WHERE is_approved = true AND created_at >= $1", *since)
	} else {
		err = s.db.Get(&count, "SELECT COUNT(*) FROM stories WHERE is_approved = true")
	}

	if err != nil {
		return 0, &storywall.StoreError{Op: "count stories", Err: err}
	}

	return count, nil
}
