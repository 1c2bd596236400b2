package billing

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		db  *BoltDB
		err error
	)

	BeforeEach(func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("carts", func() {
		var cart *Cart

		BeforeEach(func() {
			cart = &Cart{
				SessionID: "s1",
				Items: []CartItem{
					{Name: "rice", Quantity: 2, UnitPrice: 120, LineTotal: 240},
				},
				UpdatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			}
		})

		It("round-trips a cart", func() {
			Expect(db.SaveCart(cart)).To(Succeed())

			loaded, err := db.GetCart("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Items).To(Equal(cart.Items))
		})

		It("returns an error for a missing session", func() {
			_, err := db.GetCart("missing")
			Expect(err).To(HaveOccurred())
		})

		It("overwrites on save: last write wins", func() {
			Expect(db.SaveCart(cart)).To(Succeed())

			updated := &Cart{SessionID: "s1", Items: nil}
			Expect(db.SaveCart(updated)).To(Succeed())

			loaded, err := db.GetCart("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Items).To(BeEmpty())
		})

		It("deletes a cart", func() {
			Expect(db.SaveCart(cart)).To(Succeed())
			Expect(db.DeleteCart("s1")).To(Succeed())

			_, err := db.GetCart("s1")
			Expect(err).To(HaveOccurred())
		})

		It("deleting a missing cart is not an error", func() {
			Expect(db.DeleteCart("missing")).To(Succeed())
		})

		It("keeps sessions independent", func() {
			Expect(db.SaveCart(cart)).To(Succeed())
			other := &Cart{SessionID: "s2"}
			Expect(db.SaveCart(other)).To(Succeed())

			loaded, err := db.GetCart("s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Items).To(HaveLen(1))
		})
	})

	Describe("invoices", func() {
		var invoice *Invoice

		BeforeEach(func() {
			invoice = &Invoice{
				ID:         "inv1",
				Number:     "INV-20250601-ABC123",
				Date:       time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
				Items:      []CartItem{{Name: "A", Quantity: 2, UnitPrice: 10, LineTotal: 20}},
				GrandTotal: 20,
			}
		})

		It("round-trips an invoice", func() {
			Expect(db.SaveInvoice(invoice)).To(Succeed())

			loaded, err := db.GetInvoice("inv1")
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Number).To(Equal(invoice.Number))
			Expect(loaded.GrandTotal).To(Equal(20.0))
		})

		It("returns an error for a missing invoice", func() {
			_, err := db.GetInvoice("missing")
			Expect(err).To(HaveOccurred())
		})

		It("lists all invoices", func() {
			Expect(db.SaveInvoice(invoice)).To(Succeed())
			second := &Invoice{ID: "inv2", Number: "INV-20250601-DEF456"}
			Expect(db.SaveInvoice(second)).To(Succeed())

			invoices, err := db.ListInvoices()
			Expect(err).NotTo(HaveOccurred())
			Expect(invoices).To(HaveLen(2))
		})

		It("lists no invoices as an empty slice", func() {
			invoices, err := db.ListInvoices()
			Expect(err).NotTo(HaveOccurred())
			Expect(invoices).NotTo(BeNil())
			Expect(invoices).To(BeEmpty())
		})
	})
})
