package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.table {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	acc.Roles = append([]string(nil), acc.Roles...)
	repo.db.table[acc.ID] = &acc
	return acc, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if acc, ok := repo.db.table[filter.ID]; ok {
			return *acc, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	if filter.Email != "" {
		for _, acc := range repo.db.table {
			if acc.Email == filter.Email {
				return *acc, nil
			}
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryAccounts(_ context.Context, filter account.QueryFilter, ordering []core.DBOrdering) ([]account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var accounts []account.Account
	for _, acc := range repo.db.table {
		if filter.Matches(*acc) {
			accounts = append(accounts, *acc)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareAccounts(accounts[i], accounts[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

func compareAccounts(a, b account.Account, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "institute":
		return strings.Compare(a.Institute, b.Institute)
	case "is_active":
		switch {
		case a.IsActive == b.IsActive:
			return 0
		case a.IsActive:
			return 1
		}
		return -1
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	case "last_login":
		return compareTimes(a.LastLogin, b.LastLogin)
	}
	return 0
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[acc.ID]; !ok {
		return account.Account{}, account.ErrNotFound
	}
	for _, a := range repo.db.table {
		if a.ID != acc.ID && a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	acc.Roles = append([]string(nil), acc.Roles...)
	repo.db.table[acc.ID] = &acc
	return acc, nil
}

func (repo *accountRepository) DeleteAccounts(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
