package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/dirk.krummacker/contacts-vcard/internal/model"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrNothingToUpdate = errors.New("no values to be updated")
)

// columns are the columns of the contacts table in the order of the model's fields.
const columns = `id, uid, first_name, last_name, phone_number, email, company, job_title, notes,
	profile_image_url, created_at, updated_at`

// searchColumns are the columns a free text filter is matched against.
var searchColumns = []string{
	"first_name", "last_name", "phone_number", "email", "company", "job_title", "notes",
}

// likeEscaper escapes the wildcard characters of a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Filter restricts the result of List.
type Filter struct {
	Query  string // case-insensitive substring of any text column
	Limit  int64  // 0 means no limit
	Offset int64
}

// Store reads and writes contacts in a MySQL database.
type Store struct {
	db *sqlx.DB

	// insert is a prepared statement for creating a contact on the database.
	insert *sqlx.NamedStmt

	// selectWhereId is a prepared statement for selecting contacts with a given id.
	selectWhereId *sqlx.Stmt

	// deleteWhereId is a prepared statement for deleting a contact with a given id.
	deleteWhereId *sqlx.Stmt
}

// CreateDatabase opens a connection pool to the MySQL database described by dsn.
func CreateDatabase(dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	return sqlDB, nil
}

// New wraps the specified sql database and prepares all statements. The database argument can be
// a real database for production use or a mock database within unit tests.
func New(ctx context.Context, sqlDB *sql.DB) (*Store, error) {
	var err error
	s := &Store{db: sqlx.NewDb(sqlDB, "mysql")}

	// Prepared statements offer a significant speed increase if executed many times.
	s.insert, err = s.db.PrepareNamedContext(ctx, `
		INSERT INTO contacts (uid, first_name, last_name, phone_number, email, company, job_title,
			notes, profile_image_url)
		VALUES (:uid, :first_name, :last_name, :phone_number, :email, :company, :job_title,
			:notes, :profile_image_url)
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare insert: %w", err)
	}
	s.selectWhereId, err = s.db.PreparexContext(ctx, `
		SELECT `+columns+` FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare select: %w", err)
	}
	s.deleteWhereId, err = s.db.PreparexContext(ctx, `
		DELETE FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("could not prepare delete: %w", err)
	}
	return s, nil
}

// Close releases the prepared statements and the database.
func (s *Store) Close() error {
	return errors.Join(
		s.insert.Close(),
		s.selectWhereId.Close(),
		s.deleteWhereId.Close(),
		s.db.Close(),
	)
}

// Ping checks that the database can be reached.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// List returns the contacts matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]model.Contact, error) {
	var args []interface{}
	query := "SELECT " + columns + " FROM contacts"
	if filter.Query != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.Query)) + "%"
		conditions := make([]string, 0, len(searchColumns))
		for _, column := range searchColumns {
			conditions = append(conditions, "LOWER("+column+") LIKE ?")
			args = append(args, pattern)
		}
		query += " WHERE " + strings.Join(conditions, " OR ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		// MySQL only knows OFFSET together with LIMIT.
		query += " LIMIT 18446744073709551615 OFFSET ?"
		args = append(args, filter.Offset)
	}

	contacts := []model.Contact{}
	if err := s.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("could not list contacts: %w", err)
	}
	return contacts, nil
}

// Get returns the contact with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*model.Contact, error) {
	var contacts []model.Contact
	if err := s.selectWhereId.SelectContext(ctx, &contacts, id); err != nil {
		return nil, fmt.Errorf("could not select contact %d: %w", id, err)
	}
	if len(contacts) == 0 {
		return nil, ErrContactNotFound
	}
	return &contacts[0], nil
}

// Create inserts the contact and assigns a new uid and the database id to it.
func (s *Store) Create(ctx context.Context, contact *model.Contact) error {
	uid := uuid.NewString()
	contact.Uid = &uid
	result, err := s.insert.ExecContext(ctx, contact)
	if err != nil {
		return fmt.Errorf("could not insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("could not read id of new contact: %w", err)
	}
	contact.Id = id
	return nil
}

// Update sets the fields of the contact with the given id that are specified in submitted (and
// only those) and returns the contact after the update.
func (s *Store) Update(ctx context.Context, id int64, submitted model.Contact) (*model.Contact, error) {
	var args []interface{}
	var assignments []string
	set := func(column string, value *string) {
		if value != nil {
			assignments = append(assignments, column+" = ?")
			args = append(args, *value)
		}
	}
	set("first_name", submitted.FirstName)
	set("last_name", submitted.LastName)
	set("phone_number", submitted.PhoneNumber)
	set("email", submitted.Email)
	set("company", submitted.Company)
	set("job_title", submitted.JobTitle)
	set("notes", submitted.Notes)
	set("profile_image_url", submitted.ProfileImageUrl)

	// It only makes sense to continue if we have at least one value to update.
	if len(assignments) == 0 {
		return nil, ErrNothingToUpdate
	}

	query := "UPDATE contacts SET " + strings.Join(assignments, ", ") + " WHERE id = ?"
	args = append(args, id)
	if err := s.execOnContact(ctx, id, query, args...); err != nil {
		return nil, err
	}

	// Return the full contact after the update.
	return s.Get(ctx, id)
}

// SetProfileImage replaces the profile image URL of a contact. A nil URL removes the image.
func (s *Store) SetProfileImage(ctx context.Context, id int64, imageURL *string) error {
	return s.execOnContact(ctx, id, "UPDATE contacts SET profile_image_url = ? WHERE id = ?", imageURL, id)
}

// Delete removes the contact with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.deleteWhereId.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("could not delete contact %d: %w", id, err)
	}
	return checkAffected(result, id)
}

func (s *Store) execOnContact(ctx context.Context, id int64, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("could not update contact %d: %w", id, err)
	}
	return checkAffected(result, id)
}

func checkAffected(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read affected rows for contact %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}
