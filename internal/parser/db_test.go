package parser

import (
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"dstnat2fgt/internal/model"
)

// openTestDB connects to the MariaDB named by DSTNAT_TEST_DSN and skips the
// test when it is unset or unreachable.
func openTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dsn := os.Getenv("DSTNAT_TEST_DSN")
	if dsn == "" {
		t.Skip("DSTNAT_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("failed to connect to MariaDB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MariaDB not reachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dsn
}

func TestNewMariaDBSourceRejectsTableName(t *testing.T) {
	for _, table := range []string{"", "nat rules", "x`; DROP TABLE y"} {
		if _, err := NewMariaDBSource("user@tcp(127.0.0.1:1)/db", table); !errors.Is(err, model.ErrFormat) {
			t.Errorf("expected table %q to be rejected, got %v", table, err)
		}
	}
}

func TestMariaDBSourceParse(t *testing.T) {
	db, dsn := openTestDB(t)

	db.Exec("DROP TABLE IF EXISTS dstnat_test")
	if _, err := db.Exec(`CREATE TABLE dstnat_test (
		id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
		protocol VARCHAR(8) NOT NULL,
		extip VARCHAR(64) NOT NULL,
		extport VARCHAR(16) NULL,
		mappedip VARCHAR(64) NOT NULL,
		mappedport VARCHAR(16) NULL,
		comment VARCHAR(255) NULL
	)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	t.Cleanup(func() { db.Exec("DROP TABLE IF EXISTS dstnat_test") })

	if _, err := db.Exec(`INSERT INTO dstnat_test (protocol, extip, extport, mappedip, mappedport, comment) VALUES
		('tcp', '1.2.3.4', '443', '10.0.0.5', NULL, 'tls'),
		('udp', '203.0.113.1', '1194', '10.0.0.6', '1194', NULL)`); err != nil {
		t.Fatalf("failed to insert rows: %v", err)
	}

	src, err := NewMariaDBSource(dsn, "dstnat_test")
	if err != nil {
		t.Fatalf("expected source to open, got %v", err)
	}
	defer src.Close()

	rules, err := src.Parse(nil, testNetworks(t))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	// a NULL mappedport is an empty cell, so the internal ports stay unset
	if rules[0].InternalPorts.IsSet() {
		t.Errorf("expected unset internal ports, got %v", rules[0].InternalPorts)
	}
	if rules[0].Comment != "tls" || rules[1].Comment != "" {
		t.Errorf("unexpected comments %q, %q", rules[0].Comment, rules[1].Comment)
	}
	if rules[1].ExternalInterface != "wan2" {
		t.Errorf("expected wan2, got %q", rules[1].ExternalInterface)
	}
}
