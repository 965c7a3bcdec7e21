package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	leasemodel "github.com/frahmantamala/rental-management/internal/core/datamodel/lease"
	usermodel "github.com/frahmantamala/rental-management/internal/core/datamodel/user"
	paymentpkg "github.com/frahmantamala/rental-management/internal/payment"
)

var _ = Describe("QueryRepository", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		sqlxDB  *sqlx.DB
		queries *QueryRepository
		base    time.Time
	)

	seedPayment := func(id, tenantID string, leaseID *string, amount, status string, offset time.Duration) {
		p := newPending(id, tenantID, leaseID, amount)
		p.Status = status
		p.CreatedAt = base.Add(offset)
		p.UpdatedAt = base.Add(offset)
		Expect(db.Create(p).Error).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		db, sqlxDB = openTestDB()
		queries = NewQueryRepository(sqlxDB, time.Second)
		base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

		Expect(db.Create(&[]usermodel.User{
			{ID: "tenant-1", Email: "jane@example.com", FirstName: "Jane", LastName: "Wanjiru", PasswordHash: "x", Role: "TENANT", IsActive: true},
			{ID: "tenant-2", Email: "otieno@example.com", FirstName: "Brian", LastName: "Otieno", PasswordHash: "x", Role: "TENANT", IsActive: true},
			{ID: "landlord-1", Email: "owner1@example.com", FirstName: "Ann", LastName: "Mwangi", PasswordHash: "x", Role: "LANDLORD", IsActive: true},
			{ID: "landlord-2", Email: "owner2@example.com", FirstName: "Peter", LastName: "Kamau", PasswordHash: "x", Role: "LANDLORD", IsActive: true},
		}).Error).To(Succeed())
		Expect(db.Create(&[]leasemodel.Property{
			{ID: "prop-1", LandlordID: "landlord-1", Name: "Kilimani Heights"},
			{ID: "prop-2", LandlordID: "landlord-2", Name: "Westlands Court"},
		}).Error).To(Succeed())
		Expect(db.Create(&[]leasemodel.Unit{
			{ID: "unit-1", PropertyID: "prop-1", UnitNumber: "A1", Status: "OCCUPIED"},
			{ID: "unit-2", PropertyID: "prop-2", UnitNumber: "B7", Status: "OCCUPIED"},
		}).Error).To(Succeed())
		Expect(db.Create(&[]leasemodel.Lease{
			{ID: "lease-1", UnitID: "unit-1", TenantID: "tenant-1", RentAmount: decimal.NewFromInt(45000), Status: "ACTIVE", StartDate: base},
			{ID: "lease-2", UnitID: "unit-2", TenantID: "tenant-2", RentAmount: decimal.NewFromInt(30000), Status: "ACTIVE", StartDate: base},
		}).Error).To(Succeed())

		seedPayment("pay-1", "tenant-1", strPtr("lease-1"), "45000", paymentpkg.StatusCompleted, 0)
		seedPayment("pay-2", "tenant-1", strPtr("lease-1"), "45000", paymentpkg.StatusFailed, time.Hour)
		seedPayment("pay-3", "tenant-2", strPtr("lease-2"), "30000", paymentpkg.StatusCompleted, 2*time.Hour)
		seedPayment("pay-4", "tenant-1", nil, "500.50", paymentpkg.StatusPending, 3*time.Hour)
	})

	Describe("ListForTenant", func() {
		It("should return the payer's payments newest first with lease details", func() {
			// When
			views, err := queries.ListForTenant(ctx, "tenant-1")

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(3))
			Expect([]string{views[0].ID, views[1].ID, views[2].ID}).To(Equal([]string{"pay-4", "pay-2", "pay-1"}))

			Expect(views[0].LeaseID).To(BeNil())
			Expect(views[0].UnitNumber).To(BeNil())

			Expect(*views[2].UnitNumber).To(Equal("A1"))
			Expect(*views[2].PropertyName).To(Equal("Kilimani Heights"))
			Expect(views[2].Amount.Equal(decimal.NewFromInt(45000))).To(BeTrue())
		})

		It("should return an empty list for a payer without payments", func() {
			views, err := queries.ListForTenant(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
		})
	})

	Describe("List", func() {
		It("should include tenant details for staff", func() {
			// When
			views, err := queries.List(ctx, paymentpkg.ListFilter{Limit: 10})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(4))
			Expect(views[0].ID).To(Equal("pay-4"))
			Expect(views[1].TenantEmail).To(Equal("otieno@example.com"))
		})

		It("should filter by status", func() {
			views, err := queries.List(ctx, paymentpkg.ListFilter{Status: paymentpkg.StatusCompleted, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(2))
		})

		It("should scope to one landlord's properties", func() {
			// When
			views, err := queries.List(ctx, paymentpkg.ListFilter{LandlordID: "landlord-2", Limit: 10})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].ID).To(Equal("pay-3"))
			Expect(*views[0].LandlordID).To(Equal("landlord-2"))
		})

		It("should page with limit and offset", func() {
			views, err := queries.List(ctx, paymentpkg.ListFilter{Limit: 2, Offset: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect([]string{views[0].ID, views[1].ID}).To(Equal([]string{"pay-3", "pay-2"}))
		})
	})

	Describe("Summarize", func() {
		It("should count by status and total completed amounts", func() {
			// When
			summary, err := queries.Summarize(ctx, paymentpkg.ListFilter{})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Total).To(Equal(int64(4)))
			Expect(summary.Pending).To(Equal(int64(1)))
			Expect(summary.Completed).To(Equal(int64(2)))
			Expect(summary.Failed).To(Equal(int64(1)))
			Expect(summary.CompletedAmount.Equal(decimal.NewFromInt(75000))).To(BeTrue())
		})

		It("should respect the landlord scope", func() {
			summary, err := queries.Summarize(ctx, paymentpkg.ListFilter{LandlordID: "landlord-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Total).To(Equal(int64(2)))
			Expect(summary.CompletedAmount.Equal(decimal.NewFromInt(45000))).To(BeTrue())
		})
	})
})
