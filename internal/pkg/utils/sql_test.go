package utils

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSQLStr(t *testing.T) {
	assert.Equal(t, sql.NullString{String: "olia", Valid: true}, ToSQLStr("olia"))
	assert.Equal(t, sql.NullString{}, ToSQLStr(""))
	assert.Equal(t, "olia", FromSQLStr(sql.NullString{String: "olia", Valid: true}))
	assert.Equal(t, "", FromSQLStr(sql.NullString{String: "olia", Valid: false}))
}

func TestSQLInt64(t *testing.T) {
	assert.Equal(t, sql.NullInt64{Int64: 10, Valid: true}, ToSQLInt64(10))
	assert.Equal(t, sql.NullInt64{}, ToSQLInt64(0))
	assert.Equal(t, int64(10), FromSQLInt64OrZero(sql.NullInt64{Int64: 10, Valid: true}))
	assert.Equal(t, int64(0), FromSQLInt64OrZero(sql.NullInt64{Int64: 10, Valid: false}))
}
