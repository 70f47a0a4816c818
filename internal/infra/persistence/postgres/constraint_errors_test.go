package postgres

import (
	"fmt"
	"testing"

	"eventos/internal/domain/repository"
	"eventos/internal/errors"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestConstraintClassification(t *testing.T) {
	emailDup := errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`)
	nickDup := errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_nick" (SQLSTATE 23505)`)
	fkErr := errors.New(`ERROR: insert or update on table "events" violates foreign key constraint "fk_users_events" (SQLSTATE 23503)`)
	notNull := errors.New(`ERROR: null value in column "email" violates not-null constraint (SQLSTATE 23502)`)
	check := errors.New(`ERROR: new row violates check constraint "chk_role" (SQLSTATE 23514)`)

	assert.True(t, isUniqueConstraintViolation(emailDup))
	assert.True(t, isUniqueConstraintViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintViolation(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, isUniqueConstraintViolation(fkErr))
	assert.False(t, isUniqueConstraintViolation(nil))

	assert.True(t, violatesConstraint(emailDup, uniqueUsersEmail))
	assert.False(t, violatesConstraint(emailDup, uniqueUsersNick))
	assert.True(t, violatesConstraint(nickDup, uniqueUsersNick))
	assert.False(t, violatesConstraint(nil, uniqueUsersNick))

	assert.True(t, isForeignKeyConstraintViolation(fkErr))
	assert.True(t, isForeignKeyConstraintViolation(gorm.ErrForeignKeyViolated))
	assert.True(t, isNotNullConstraintViolation(notNull))
	assert.True(t, isCheckConstraintViolation(check))
	assert.True(t, isCheckConstraintViolation(gorm.ErrCheckConstraintViolated))
}

func TestMapUserWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "email unique index",
			err:  errors.New(`duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`),
			want: repository.ErrDuplicateEmail,
		},
		{
			name: "nick unique index",
			err:  errors.New(`duplicate key value violates unique constraint "idx_users_nick" (SQLSTATE 23505)`),
			want: repository.ErrDuplicateNick,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapUserWriteError(tt.err, "create user"), tt.want)
		})
	}
}

func TestMapEventWriteError(t *testing.T) {
	err := mapEventWriteError(errors.New(`duplicate key value violates unique constraint "idx_events_slug" (SQLSTATE 23505)`), "create event")
	assert.ErrorIs(t, err, repository.ErrDuplicateSlug)
}
