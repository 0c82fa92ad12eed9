// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"

	"recordhub-data/internal/config"
	"recordhub-data/internal/database"
	"recordhub-data/internal/domain"
)

func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getTestEnv("TEST_DB_HOST", "localhost"),
		Port:     getTestEnvInt("TEST_DB_PORT", 5432),
		User:     getTestEnv("TEST_DB_USER", "postgres"),
		Password: getTestEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getTestEnv("TEST_DB_NAME", "recordhub"),
		SSLMode:  getTestEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}
	return db
}

func getTestEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getTestEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// 创建测试租户
func createTestTenantForRecords(t *testing.T, db *sql.DB) string {
	tenantID := "00000000-0000-0000-0000-000000000901"
	_, err := db.Exec(
		`INSERT INTO tenants (tenant_id, tenant_name, domain, status)
		 VALUES ($1, $2, $3, 'active')
		 ON CONFLICT (tenant_id) DO UPDATE SET tenant_name = EXCLUDED.tenant_name`,
		tenantID, "Test Tenant Records", "test-records.local",
	)
	if err != nil {
		t.Fatalf("Failed to create test tenant: %v", err)
	}
	return tenantID
}

// 清理测试数据
func cleanupTestDataForRecords(t *testing.T, db *sql.DB, tenantID string) {
	db.Exec(`DELETE FROM accounts WHERE tenant_id = $1`, tenantID)
	db.Exec(`DELETE FROM tenants WHERE tenant_id = $1`, tenantID)
}

func TestPostgresRecordsRepo_InsertAndSelect(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	tenantID := createTestTenantForRecords(t, db)
	defer cleanupTestDataForRecords(t, db, tenantID)

	repo := NewPostgresRecordsRepo(db)
	ctx := context.Background()

	ids, err := repo.Insert(ctx, domain.RecordTypeAccount, tenantID, []map[string]any{
		{
			"account_name": "Integration Test Co",
			"billing_city": "Pune",
			"industries":   []string{"Technology"},
		},
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if len(ids) != 1 || ids[0] == "" {
		t.Fatalf("Insert returned no id: %v", ids)
	}

	got, err := repo.Get(ctx, domain.RecordTypeAccount, tenantID, ids[0])
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got["account_name"] != "Integration Test Co" {
		t.Errorf("account_name = %v, want Integration Test Co", got["account_name"])
	}

	rows, total, err := repo.Select(ctx, domain.RecordTypeAccount, tenantID, RecordFilters{
		Equals: map[string]string{"billing_city": "Pune"},
	}, 1, 10)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Errorf("Select returned total=%d len=%d, want 1/1", total, len(rows))
	}
}

func TestPostgresRecordsRepo_UniqueViolationIsDuplicate(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	tenantID := createTestTenantForRecords(t, db)
	defer cleanupTestDataForRecords(t, db, tenantID)

	repo := NewPostgresRecordsRepo(db)
	ctx := context.Background()

	row := map[string]any{"account_name": "Dup Co", "billing_city": "Mumbai"}
	if _, err := repo.Insert(ctx, domain.RecordTypeAccount, tenantID, []map[string]any{row}); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	_, err := repo.Insert(ctx, domain.RecordTypeAccount, tenantID, []map[string]any{row})
	if !domain.IsDuplicate(err) {
		t.Errorf("second Insert error = %v, want DuplicateRecordError", err)
	}

	exists, err := repo.Exists(ctx, domain.RecordTypeAccount, tenantID, map[string]any{
		"account_name": "Dup Co", "billing_city": "Mumbai",
	})
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists = false, want true")
	}
}
