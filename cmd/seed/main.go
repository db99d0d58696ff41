package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/complior/complior/internal/domain"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	email := getenvDefault("SEED_USER_EMAIL", "admin@complior.local")
	password := getenvDefault("SEED_USER_PASSWORD", "Admin1234!")
	role := getenvDefault("SEED_USER_ROLE", "admin")
	tenantID := getenvDefault("SEED_TENANT_ID", "demo")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	// hash password with bcrypt cost 10
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// upsert admin user by email; let DB generate UUID id by default
	userQuery := `
	INSERT INTO users (tenant_id, email, password, role, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (email) DO UPDATE SET
	  password = EXCLUDED.password,
	  role = EXCLUDED.role,
	  updated_at = EXCLUDED.updated_at
	RETURNING id
	`

	now := time.Now()
	var userID string
	if err := db.QueryRow(userQuery, tenantID, email, string(hash), role, now, now).Scan(&userID); err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("Seeded user: email=%s password=%s role=%s id=%s\n", email, password, role, userID)

	// demo organizations covering the common profile shapes
	orgs := []struct {
		name    string
		profile *domain.OrganizationProfile
	}{
		{"Demo Bank", &domain.OrganizationProfile{
			KIICategory:   intPtr(1),
			PDNLevel:      intPtr(2),
			IsFinancial:   boolPtr(true),
			EmployeeCount: intPtr(1200),
		}},
		{"Demo Clinic", &domain.OrganizationProfile{
			PDNLevel:      intPtr(1),
			IsHealthcare:  boolPtr(true),
			EmployeeCount: intPtr(85),
		}},
		{"Demo Startup", &domain.OrganizationProfile{
			HasForeignData: boolPtr(true),
			EmployeeCount:  intPtr(12),
		}},
		{"Unknown Profile Org", nil},
	}

	orgQuery := `
	INSERT INTO organizations (id, tenant_id, name, profile, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
	`
	for _, o := range orgs {
		var profile []byte
		if o.profile != nil {
			profile, err = json.Marshal(o.profile)
			if err != nil {
				log.Fatalf("failed to marshal profile for %s: %v", o.name, err)
			}
		}
		id := uuid.New().String()
		if _, err := db.Exec(orgQuery, id, tenantID, o.name, nullable(profile), now, now); err != nil {
			log.Fatalf("failed to seed organization %s: %v", o.name, err)
		}
		fmt.Printf("Seeded organization: name=%q id=%s\n", o.name, id)
	}

	// one demo requirement with an applicability rule so the engine has
	// something to chew on out of the box
	reqID := uuid.New().String()
	reqQuery := `
	INSERT INTO requirements (id, tenant_id, code, title, description, status, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
	`
	if _, err := db.Exec(reqQuery, reqID, tenantID, "KII-001",
		"Categorize critical information infrastructure objects",
		"Applies to organizations operating KII category 1 or 2 objects.",
		string(domain.RequirementStatusActive), userID, now, now); err != nil {
		log.Fatalf("failed to seed requirement: %v", err)
	}
	fmt.Printf("Seeded requirement: code=KII-001 id=%s\n", reqID)

	rules, err := json.Marshal(domain.FilterRules{KIICategories: []int{1, 2}})
	if err != nil {
		log.Fatalf("failed to marshal filter rules: %v", err)
	}
	ruleQuery := `
	INSERT INTO applicability_rules (id, requirement_id, rules, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (requirement_id) DO UPDATE SET
	  rules = EXCLUDED.rules,
	  updated_at = EXCLUDED.updated_at
	`
	if _, err := db.Exec(ruleQuery, uuid.New().String(), reqID, rules, userID, now, now); err != nil {
		log.Fatalf("failed to seed applicability rule: %v", err)
	}
	fmt.Println("Seeded applicability rule for KII-001 (kii_categories: [1, 2])")
}

func getenvDefault(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}

func nullable(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
