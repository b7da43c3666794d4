package domain

import (
	"sort"
	"time"
)

// PaymentMethod is a payment method name as exported by the register
type PaymentMethod string

// RawCheckout represents one register transaction before cleaning
type RawCheckout struct {
	AccountName string    `json:"account_name"`
	CheckoutID  string    `json:"checkout_id"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
	Amount      int64     `json:"amount"`
	Customers   int64     `json:"customers"`
}

// RawItemLine represents one sold line item before cleaning
type RawItemLine struct {
	CheckoutID string `json:"checkout_id"`
	SKU        string `json:"sku"`
	Barcode    string `json:"barcode"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	Amount     int64  `json:"amount"`
	Department string `json:"department"`
}

// RawPayment represents one payment row. A nil Method marks a method switch.
type RawPayment struct {
	CheckoutID string         `json:"checkout_id"`
	Method     *PaymentMethod `json:"method,omitempty"`
}

// CustomerVisit is one valid, non-cancelled checkout with its payment counts
type CustomerVisit struct {
	Store      Store                   `json:"store"`
	CheckoutID string                  `json:"checkout_id"`
	OpenedAt   time.Time               `json:"opened_at"`
	ClosedAt   time.Time               `json:"closed_at"`
	Amount     int64                   `json:"amount"`
	Customers  int64                   `json:"customers"`
	Payments   map[PaymentMethod]int64 `json:"payments"`
}

// ItemSale is one valid line item enriched with its visit's store and timestamps
type ItemSale struct {
	Store      Store     `json:"store"`
	CheckoutID string    `json:"checkout_id"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
	SKU        string    `json:"sku"`
	Barcode    string    `json:"barcode"`
	Name       string    `json:"name"`
	Quantity   int64     `json:"quantity"`
	Amount     int64     `json:"amount"`
	Department string    `json:"department"`
}

// POSDataset holds the merged output of one upload batch
type POSDataset struct {
	Visits         []CustomerVisit `json:"visits"`
	Items          []ItemSale      `json:"items"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}

// Empty reports whether the dataset holds no visits
func (d *POSDataset) Empty() bool {
	return d == nil || len(d.Visits) == 0
}

// DateRange is an inclusive range of calendar dates
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether the date of t lies within the range
func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(DateOf(r.From)) && !d.After(DateOf(r.To))
}

// StoreRange returns the first and last close dates recorded for a store
func (d *POSDataset) StoreRange(store Store) (DateRange, bool) {
	var r DateRange
	found := false
	if d == nil {
		return r, false
	}
	for _, v := range d.Visits {
		if v.Store != store {
			continue
		}
		if !found || v.ClosedAt.Before(r.From) {
			r.From = v.ClosedAt
		}
		if !found || v.ClosedAt.After(r.To) {
			r.To = v.ClosedAt
		}
		found = true
	}
	return r, found
}

// SortedMethods returns the distinct methods of m in lexical order
func SortedMethods(m map[PaymentMethod]struct{}) []PaymentMethod {
	out := make([]PaymentMethod, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
