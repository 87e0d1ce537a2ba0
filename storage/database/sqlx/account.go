package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
)

const accountTable = "accounts"

var (
	accountColumns = []string{
		"id", "name", "email", "institute", "roles", "is_active", "password_hash", "created_at", "updated_at", "last_login",
	}
	accountOrderings = map[string]bool{
		"name": true, "email": true, "institute": true, "is_active": true, "created_at": true, "updated_at": true, "last_login": true,
	}
)

type accountRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	Institute    string         `db:"institute"`
	Roles        pq.StringArray `db:"roles"`
	IsActive     bool           `db:"is_active"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toAccountRow(acc account.Account) accountRow {
	return accountRow{
		ID:           acc.ID,
		Name:         acc.Name,
		Email:        acc.Email,
		Institute:    acc.Institute,
		Roles:        pq.StringArray(acc.Roles),
		IsActive:     acc.IsActive,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(acc.LastLogin.UTC(), !acc.LastLogin.IsZero()),
	}
}

func (r accountRow) toAccount() account.Account {
	return account.Account{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Institute:    r.Institute,
		Roles:        []string(r.Roles),
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type accountRepository struct {
	db DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	r := toAccountRow(acc)
	_, err := exec(ctx, repo.db, psql.Insert(accountTable).Columns(accountColumns...).Values(
		r.ID, r.Name, r.Email, r.Institute, r.Roles, r.IsActive, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return r.toAccount(), nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	var where sq.Eq
	switch {
	case filter.ID != "":
		where = sq.Eq{"id": filter.ID}
	case filter.Email != "":
		where = sq.Eq{"email": filter.Email}
	default:
		return account.Account{}, account.ErrNotFound
	}

	var r accountRow
	if err := get(ctx, repo.db, &r, psql.Select(accountColumns...).From(accountTable).Where(where)); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "finding account")
	}
	return r.toAccount(), nil
}

func (repo *accountRepository) QueryAccounts(ctx context.Context, filter account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	b := psql.Select(accountColumns...).From(accountTable)

	if filter.Search != "" {
		b = b.Where(searchExpr(filter.Search, "name", "email", "institute"))
	}
	// accounts with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		roles := make(sq.Or, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, sq.Expr("EXISTS (SELECT 1 FROM UNNEST(roles) account_role WHERE account_role LIKE ?)", likePrefix(role)))
		}
		b = b.Where(roles)
	}
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}

	if clauses := orderBy(ordering, accountOrderings); len(clauses) > 0 {
		b = b.OrderBy(clauses...)
	} else {
		b = b.OrderBy("created_at DESC")
	}

	var rows []accountRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	accounts := make([]account.Account, 0, len(rows))
	for _, r := range rows {
		accounts = append(accounts, r.toAccount())
	}
	return accounts, nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acc account.Account) (account.Account, error) {
	r := toAccountRow(acc)
	n, err := exec(ctx, repo.db, psql.Update(accountTable).SetMap(map[string]interface{}{
		"name":          r.Name,
		"email":         r.Email,
		"institute":     r.Institute,
		"roles":         r.Roles,
		"is_active":     r.IsActive,
		"password_hash": r.PasswordHash,
		"updated_at":    r.UpdatedAt,
		"last_login":    r.LastLogin,
	}).Where(sq.Eq{"id": r.ID}))
	if err != nil {
		if isUniqueViolation(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "updating account")
	}
	if n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return r.toAccount(), nil
}

func (repo *accountRepository) DeleteAccounts(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := exec(ctx, repo.db, psql.Delete(accountTable).Where(sq.Eq{"id": ids})); err != nil {
		return errors.Wrap(err, "deleting accounts")
	}
	return nil
}
