package parser

import (
	"database/sql"
	"fmt"
	"regexp"

	"dstnat2fgt/internal/mapping"
	"dstnat2fgt/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// MariaDBSource reads tabular NAT rows from a MariaDB/MySQL table whose
// column names follow the CSV header convention.
type MariaDBSource struct {
	db    *sql.DB
	table string
}

func NewMariaDBSource(dsn, table string) (*MariaDBSource, error) {
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", model.ErrFormat, table)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &MariaDBSource{db: db, table: table}, nil
}

func (s *MariaDBSource) Close() {
	s.db.Close()
}

// Rows returns the table's column names and every row as text, ordered by
// the first column. NULL becomes the empty string.
func (s *MariaDBSource) Rows() ([]string, [][]string, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT * FROM `%s` ORDER BY 1", s.table))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var records [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(header))
		dest := make([]any, len(header))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}

		record := make([]string, len(header))
		for i, v := range values {
			if v.Valid {
				record[i] = v.String
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return header, records, nil
}

// Parse loads the table and maps its rows like the CSV format.
func (s *MariaDBSource) Parse(rules []*model.NATRule, networks *mapping.NetworkMap) ([]*model.NATRule, error) {
	header, records, err := s.Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to load NAT rows from %s: %w", s.table, err)
	}
	return ParseRows(rules, header, records, networks)
}
