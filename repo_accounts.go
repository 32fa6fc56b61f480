package oasis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the bun backed AccountStore. Generic CRUD lives on
// Repository, the store methods work on top of it.
type Accounts interface {
	AccountStore

	Repository() repository.Repository[*Account]

	FindByID(ctx context.Context, id string) (*Account, error)
	FindByMemberIDTx(ctx context.Context, tx bun.IDB, memberID string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error)
	SaveTx(ctx context.Context, tx bun.IDB, account *Account) error
	RolesTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]Role, error)
}

type accounts struct {
	repo repository.Repository[*Account]
	db   *bun.DB
}

var (
	_ Accounts     = (*accounts)(nil)
	_ AccountStore = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "member_id"
		},
	})

	return &accounts{
		repo: repo,
		db:   db,
	}
}

func (a *accounts) Repository() repository.Repository[*Account] {
	return a.repo
}

// FindByID loads the account with its roles, (nil, nil) when missing.
func (a *accounts) FindByID(ctx context.Context, id string) (*Account, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, nil
	}
	return a.findOneTx(ctx, a.db, "id", uid.String())
}

func (a *accounts) FindByMemberID(ctx context.Context, memberID string) (*Account, error) {
	return a.FindByMemberIDTx(ctx, a.db, memberID)
}

func (a *accounts) FindByMemberIDTx(ctx context.Context, tx bun.IDB, memberID string) (*Account, error) {
	return a.findOneTx(ctx, tx, "member_id", strings.TrimSpace(memberID))
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.findOneTx(ctx, tx, "email", strings.TrimSpace(email))
}

func (a *accounts) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return a.FindByUsernameTx(ctx, a.db, username)
}

func (a *accounts) FindByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error) {
	return a.findOneTx(ctx, tx, "username", strings.TrimSpace(username))
}

// findOneTx returns (nil, nil) when nothing matches.
func (a *accounts) findOneTx(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	if value == "" {
		return nil, nil
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	roles, err := a.RolesTx(ctx, tx, record.ID)
	if err != nil {
		return nil, err
	}
	record.Roles = roles

	return record, nil
}

// Create builds an unsaved account, Save persists it.
func (a *accounts) Create(fields AccountFields) *Account {
	account := &Account{
		ID:        fields.ID,
		Username:  strings.TrimSpace(fields.Username),
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		Email:     strings.TrimSpace(fields.Email),
		MemberID:  strings.TrimSpace(fields.MemberID),
		Status:    fields.Status,
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	if account.Status == "" {
		account.Status = AccountActive
	}

	for _, role := range fields.Roles {
		account.AddRole(role)
	}

	return account
}

func (a *accounts) Save(ctx context.Context, account *Account) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.SaveTx(ctx, tx, account)
	})
}

// SaveTx inserts a new account or updates an existing one, then adds any
// role rows not stored yet. Stored roles are never removed.
func (a *accounts) SaveTx(ctx context.Context, tx bun.IDB, account *Account) error {
	if account == nil {
		return errors.New("account is nil")
	}

	now := time.Now()
	account.UpdatedAt = &now

	if account.IsNew() {
		account.CreatedAt = &now
		if _, err := a.repo.CreateTx(ctx, tx, account); err != nil {
			account.CreatedAt = nil
			return err
		}
	} else {
		if _, err := a.repo.UpdateTx(ctx, tx, account, repository.UpdateByID(account.ID.String())); err != nil {
			return err
		}
	}

	if len(account.Roles) == 0 {
		return nil
	}

	rows := make([]*AccountRole, 0, len(account.Roles))
	for _, role := range account.Roles {
		rows = append(rows, &AccountRole{AccountID: account.ID, Role: role})
	}

	_, err := tx.NewInsert().
		Model(&rows).
		Ignore().
		Exec(ctx)

	return err
}

func (a *accounts) RolesTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]Role, error) {
	var rows []AccountRole
	err := tx.NewSelect().
		Model(&rows).
		Where("?TableAlias.account_id = ?", accountID).
		OrderExpr("?TableAlias.role ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	roles := make([]Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, row.Role)
	}
	return roles, nil
}
