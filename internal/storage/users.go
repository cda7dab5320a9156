package storage

import (
	"fmt"
	"strconv"

	"expense-ledger/internal/models"
)

func decodeUsers(tx *Tx) ([]models.User, error) {
	rows, err := tx.LoadAll()
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, &CorruptDataError{Table: tx.t.name, Line: i + 2, Column: UserColumns[0], Err: err}
		}
		users = append(users, models.User{ID: id, Username: row[1], PasswordHash: row[2]})
	}
	return users, nil
}

func encodeUser(u *models.User) Row {
	return Row{strconv.FormatInt(u.ID, 10), u.Username, u.PasswordHash}
}

// CreateUser stores a new user with the given username and password hash.
// The duplicate check, id assignment and append happen under one lock.
func (db *DB) CreateUser(username, passwordHash string) (*models.User, error) {
	var created *models.User
	err := db.users.Write(func(tx *Tx) error {
		users, err := decodeUsers(tx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Username == username {
				return fmt.Errorf("create user %q: %w", username, ErrDuplicateUsername)
			}
			db.userSeq.Seed(u.ID)
		}

		u := &models.User{ID: db.userSeq.Next(), Username: username, PasswordHash: passwordHash}
		if err := tx.AppendOne(encodeUser(u)); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	return db.findUser(func(u *models.User) bool { return u.ID == id })
}

// GetUserByUsername retrieves a user by exact, case-sensitive username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	return db.findUser(func(u *models.User) bool { return u.Username == username })
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	users, err := db.loadUsers()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

func (db *DB) findUser(match func(u *models.User) bool) (*models.User, error) {
	users, err := db.loadUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if match(&users[i]) {
			u := users[i]
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}
