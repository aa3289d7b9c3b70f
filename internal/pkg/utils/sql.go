package utils

import "database/sql"

// ToSQLStr creates new sql str instance
func ToSQLStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FromSQLStr returns string from sql.NullString
func FromSQLStr(sqlStr sql.NullString) string {
	if sqlStr.Valid {
		return sqlStr.String
	}
	return ""
}

// ToSQLInt64 creates new sql int instance, zero maps to NULL
func ToSQLInt64(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: i != 0}
}

// FromSQLInt64OrZero returns int from sql.NullInt64
func FromSQLInt64OrZero(sqlData sql.NullInt64) int64 {
	if sqlData.Valid {
		return sqlData.Int64
	}
	return 0
}
