package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/rental-management/internal"
	leasemodel "github.com/frahmantamala/rental-management/internal/core/datamodel/lease"
	usermodel "github.com/frahmantamala/rental-management/internal/core/datamodel/user"
	"github.com/frahmantamala/rental-management/internal/lease"
	userpg "github.com/frahmantamala/rental-management/internal/user/postgres"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, a property, units and an active lease for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := setupLogger(cfg)

		db, gormDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		services := buildServices(cfg, db, gormDB, lg)

		if clearData {
			if err := clearSeedData(gormDB); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		users := userpg.NewRepository(gormDB, cfg.Database.QueryTimeout)
		tenantPhone := "254712345678"
		seedUsers := []usermodel.User{
			{ID: "00000000-0000-0000-0000-000000000001", Email: "admin@mail.com", FirstName: "Grace", LastName: "Admin", Role: "ADMIN"},
			{ID: "00000000-0000-0000-0000-000000000002", Email: "landlord@mail.com", FirstName: "Ann", LastName: "Mwangi", Role: "LANDLORD"},
			{ID: "00000000-0000-0000-0000-000000000003", Email: "tenant@mail.com", FirstName: "Jane", LastName: "Wanjiru", Role: "TENANT", Phone: &tenantPhone},
		}
		for i := range seedUsers {
			u := &seedUsers[i]
			u.PasswordHash = string(hash)
			u.IsActive = true
			if err := users.Upsert(ctx, u); err != nil {
				log.Fatalf("failed to upsert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email, u.Role)
		}

		property := leasemodel.Property{
			ID:         "10000000-0000-0000-0000-000000000001",
			LandlordID: seedUsers[1].ID,
			Name:       "Kilimani Heights",
			Address:    "Argwings Kodhek Rd, Nairobi",
		}
		if err := gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(&property).Error; err != nil {
			log.Fatalf("failed to insert property: %v", err)
		}

		units := []leasemodel.Unit{
			{ID: "20000000-0000-0000-0000-000000000001", PropertyID: property.ID, UnitNumber: "A1", Status: lease.UnitAvailable},
			{ID: "20000000-0000-0000-0000-000000000002", PropertyID: property.ID, UnitNumber: "A2", Status: lease.UnitAvailable},
		}
		if err := gormDB.Clauses(clause.OnConflict{DoNothing: true}).Create(&units).Error; err != nil {
			log.Fatalf("failed to insert units: %v", err)
		}
		fmt.Println("Seeded property:", property.Name)

		_, err = services.Lease.Create(ctx, lease.CreateLeaseRequest{
			UnitID:     units[0].ID,
			TenantID:   seedUsers[2].ID,
			RentAmount: decimal.NewFromInt(45000),
			StartDate:  time.Now().UTC().Truncate(24 * time.Hour),
		})
		switch {
		case err == nil:
			fmt.Println("Seeded lease for unit", units[0].UnitNumber)
		case stderrors.Is(err, internal.ErrUnitNotAvailable):
			fmt.Println("unit", units[0].UnitNumber, "already leased; skipping")
		default:
			log.Fatalf("failed to create lease: %v", err)
		}
	},
}

func clearSeedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"notifications", "payment_callbacks", "payments", "leases", "units", "properties", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
