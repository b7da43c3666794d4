package dataprocessing

import (
	"log/slog"
	"sort"

	"poscope/pkg/contracts/domain"
)

// Merge joins cleaned checkouts with their payment counts and item lines.
// A checkout without any payment row is dropped; each item line is paired
// with every visit sharing its checkout id.
func Merge(tables *CleanTables, logger *slog.Logger) *domain.POSDataset {
	ds := &domain.POSDataset{
		Visits:         []domain.CustomerVisit{},
		Items:          []domain.ItemSale{},
		PaymentMethods: tables.Methods,
	}

	byID := make(map[string][]int)
	for _, c := range tables.Checkouts {
		counts, ok := tables.PaymentCounts[c.CheckoutID]
		if !ok {
			tables.Stats.UnpaidCheckouts++
			continue
		}
		payments := make(map[domain.PaymentMethod]int64, len(tables.Methods))
		for _, m := range tables.Methods {
			payments[m] = counts[m]
		}
		byID[c.CheckoutID] = append(byID[c.CheckoutID], len(ds.Visits))
		ds.Visits = append(ds.Visits, domain.CustomerVisit{
			Store:      c.Store,
			CheckoutID: c.CheckoutID,
			OpenedAt:   c.OpenedAt,
			ClosedAt:   c.ClosedAt,
			Amount:     c.Amount,
			Customers:  c.Customers,
			Payments:   payments,
		})
	}

	for _, it := range tables.Items {
		for _, vi := range byID[it.CheckoutID] {
			v := ds.Visits[vi]
			ds.Items = append(ds.Items, domain.ItemSale{
				Store:      v.Store,
				CheckoutID: it.CheckoutID,
				OpenedAt:   v.OpenedAt,
				ClosedAt:   v.ClosedAt,
				SKU:        it.SKU,
				Barcode:    it.Barcode,
				Name:       it.Name,
				Quantity:   it.Quantity,
				Amount:     it.Amount,
				Department: it.Department,
			})
		}
	}

	sort.SliceStable(ds.Visits, func(i, j int) bool {
		return ds.Visits[i].ClosedAt.Before(ds.Visits[j].ClosedAt)
	})
	sort.SliceStable(ds.Items, func(i, j int) bool {
		return ds.Items[i].ClosedAt.Before(ds.Items[j].ClosedAt)
	})

	tables.Stats.Visits = len(ds.Visits)
	tables.Stats.ItemSales = len(ds.Items)

	if logger != nil {
		logger.Info("merged POS tables",
			slog.Int("visits", len(ds.Visits)),
			slog.Int("item_sales", len(ds.Items)),
			slog.Int("unpaid_checkouts", tables.Stats.UnpaidCheckouts))
	}
	return ds
}
