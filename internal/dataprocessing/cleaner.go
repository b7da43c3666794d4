package dataprocessing

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"poscope/internal/config"
	apperrors "poscope/internal/errors"
	"poscope/pkg/contracts/domain"

	"github.com/RoaringBitmap/roaring"
)

// Column names of the register export
const (
	ColAccount    = "アカウント名"
	ColCheckoutID = "会計ID"
	ColOpenedAt   = "開始日時"
	ColClosedAt   = "会計日時"
	ColDeletedAt  = "削除日時"
	ColAmount     = "金額"
	ColCustomers  = "客数"
	ColSKU        = "SKU"
	ColBarcode    = "バーコード"
	ColName       = "名前"
	ColQuantity   = "数量"
	ColDepartment = "部門"
	ColMethod     = "支払い方法"
)

var (
	checkoutColumns = []string{ColAccount, ColCheckoutID, ColOpenedAt, ColClosedAt, ColDeletedAt, ColAmount, ColCustomers}
	itemColumns     = []string{ColCheckoutID, ColSKU, ColBarcode, ColName, ColQuantity, ColAmount, ColDepartment}
	paymentColumns  = []string{ColCheckoutID, ColMethod}
)

// positions within the projected rows
const (
	ckAccount = iota
	ckID
	ckOpened
	ckClosed
	ckDeleted
	ckAmount
	ckCustomers
)

const (
	itID = iota
	itSKU
	itBarcode
	itName
	itQuantity
	itAmount
	itDepartment
)

const (
	pmID = iota
	pmMethod
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 Z0700",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
}

// CleanCheckout is a live checkout with its canonical store
type CleanCheckout struct {
	domain.RawCheckout
	Store domain.Store
}

// CleanTables is the output of the cleaning contract
type CleanTables struct {
	Checkouts []CleanCheckout
	Items     []domain.RawItemLine
	Payments  []domain.RawPayment
	// PaymentCounts is the one-hot payment encoding summed per checkout id
	PaymentCounts map[string]map[domain.PaymentMethod]int64
	Methods       []domain.PaymentMethod
	Stats         CleanStats
}

// CleanStats reports how many rows each cleaning step removed
type CleanStats struct {
	RawCheckouts       int `json:"raw_checkouts"`
	RawItems           int `json:"raw_items"`
	RawPayments        int `json:"raw_payments"`
	CancelledCheckouts int `json:"cancelled_checkouts"`
	MethodSwitches     int `json:"method_switches"`
	InvalidCheckouts   int `json:"invalid_checkouts"`
	UnpaidCheckouts    int `json:"unpaid_checkouts"`
	Visits             int `json:"visits"`
	ItemSales          int `json:"item_sales"`
}

type projectedRow struct {
	source string
	line   int
	cells  []string
}

func (r projectedRow) at(i int) string {
	return strings.TrimSpace(r.cells[i])
}

// Cleaner applies the cleaning contract to a raw batch
type Cleaner struct {
	accounts map[string]domain.Store
	allowed  map[domain.PaymentMethod]struct{}
	logger   *slog.Logger
}

// NewCleaner creates a cleaner from the pipeline configuration
func NewCleaner(cfg config.PipelineConfig, logger *slog.Logger) (*Cleaner, error) {
	accounts := make(map[string]domain.Store, len(cfg.AccountStores))
	for account, code := range cfg.AccountStores {
		store, err := domain.ParseStore(code)
		if err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("account %s", account), err)
		}
		accounts[account] = store
	}

	var allowed map[domain.PaymentMethod]struct{}
	if len(cfg.PaymentMethods) > 0 {
		allowed = make(map[domain.PaymentMethod]struct{}, len(cfg.PaymentMethods))
		for _, m := range cfg.PaymentMethods {
			allowed[domain.PaymentMethod(strings.TrimSpace(m))] = struct{}{}
		}
	}

	return &Cleaner{
		accounts: accounts,
		allowed:  allowed,
		logger:   logger.With(slog.String("component", "record_cleaner")),
	}, nil
}

// Clean projects, filters and coerces the three raw tables
func (c *Cleaner) Clean(batch *RawBatch) (*CleanTables, error) {
	checkouts, err := projectAll(batch.Checkouts, checkoutColumns)
	if err != nil {
		return nil, err
	}
	items, err := projectAll(batch.Items, itemColumns)
	if err != nil {
		return nil, err
	}
	payments, err := projectAll(batch.Payments, paymentColumns)
	if err != nil {
		return nil, err
	}

	stats := CleanStats{
		RawCheckouts: len(checkouts),
		RawItems:     len(items),
		RawPayments:  len(payments),
	}

	removedCheckouts := roaring.New()
	removedItems := roaring.New()
	removedPayments := roaring.New()

	// cancellation removes the checkout id from all three tables
	cancelled := make(map[string]struct{})
	for _, r := range checkouts {
		if r.at(ckDeleted) != "" {
			cancelled[r.at(ckID)] = struct{}{}
		}
	}
	markByID(checkouts, ckID, cancelled, removedCheckouts)
	markByID(items, itID, cancelled, removedItems)
	markByID(payments, pmID, cancelled, removedPayments)
	stats.CancelledCheckouts = len(cancelled)

	// null payment methods denote a method switch, not a payment
	for i, r := range payments {
		if removedPayments.Contains(uint32(i)) {
			continue
		}
		if r.at(pmMethod) == "" {
			removedPayments.Add(uint32(i))
			stats.MethodSwitches++
		}
	}

	// one non-positive quantity invalidates the whole checkout
	invalid := make(map[string]struct{})
	for i, r := range items {
		if removedItems.Contains(uint32(i)) {
			continue
		}
		qty, err := parseInt(r.at(itQuantity))
		if err != nil {
			return nil, rowError(r, ColQuantity, err)
		}
		if qty <= 0 {
			invalid[r.at(itID)] = struct{}{}
		}
	}
	markByID(checkouts, ckID, invalid, removedCheckouts)
	markByID(items, itID, invalid, removedItems)
	markByID(payments, pmID, invalid, removedPayments)
	stats.InvalidCheckouts = len(invalid)

	out := &CleanTables{
		PaymentCounts: make(map[string]map[domain.PaymentMethod]int64),
	}

	for i, r := range checkouts {
		if removedCheckouts.Contains(uint32(i)) {
			continue
		}
		checkout, err := c.coerceCheckout(r)
		if err != nil {
			return nil, err
		}
		out.Checkouts = append(out.Checkouts, checkout)
	}

	methods := make(map[domain.PaymentMethod]struct{})
	for i, r := range payments {
		if removedPayments.Contains(uint32(i)) {
			continue
		}
		method := domain.PaymentMethod(r.at(pmMethod))
		if c.allowed != nil {
			if _, ok := c.allowed[method]; !ok {
				return nil, apperrors.NewDataError(r.source,
					fmt.Sprintf("未登録の支払い方法「%s」（%d行目）", method, r.line), nil)
			}
		}
		methods[method] = struct{}{}

		id := r.at(pmID)
		counts, ok := out.PaymentCounts[id]
		if !ok {
			counts = make(map[domain.PaymentMethod]int64)
			out.PaymentCounts[id] = counts
		}
		counts[method]++

		m := method
		out.Payments = append(out.Payments, domain.RawPayment{CheckoutID: id, Method: &m})
	}
	out.Methods = domain.SortedMethods(methods)

	for i, r := range items {
		if removedItems.Contains(uint32(i)) {
			continue
		}
		item, err := coerceItem(r)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, item)
	}

	out.Stats = stats
	c.logger.Info("cleaned POS records",
		slog.Int("raw_checkouts", stats.RawCheckouts),
		slog.Int("cancelled", stats.CancelledCheckouts),
		slog.Int("method_switches", stats.MethodSwitches),
		slog.Int("invalid_checkouts", stats.InvalidCheckouts),
		slog.Int("checkouts", len(out.Checkouts)),
		slog.Int("items", len(out.Items)),
		slog.Int("payment_methods", len(out.Methods)))

	return out, nil
}

func (c *Cleaner) coerceCheckout(r projectedRow) (CleanCheckout, error) {
	account := r.at(ckAccount)
	store, ok := c.accounts[account]
	if !ok {
		return CleanCheckout{}, apperrors.NewDataError(r.source,
			fmt.Sprintf("未登録のアカウント名「%s」（%d行目）", account, r.line), nil).
			WithContext("account", account)
	}

	opened, err := parseTimestamp(r.at(ckOpened))
	if err != nil {
		return CleanCheckout{}, rowError(r, ColOpenedAt, err)
	}
	closed, err := parseTimestamp(r.at(ckClosed))
	if err != nil {
		return CleanCheckout{}, rowError(r, ColClosedAt, err)
	}
	amount, err := parseInt(r.at(ckAmount))
	if err != nil {
		return CleanCheckout{}, rowError(r, ColAmount, err)
	}
	customers, err := parseInt(r.at(ckCustomers))
	if err != nil {
		return CleanCheckout{}, rowError(r, ColCustomers, err)
	}

	return CleanCheckout{
		RawCheckout: domain.RawCheckout{
			AccountName: account,
			CheckoutID:  r.at(ckID),
			OpenedAt:    opened,
			ClosedAt:    closed,
			Amount:      amount,
			Customers:   customers,
		},
		Store: store,
	}, nil
}

func coerceItem(r projectedRow) (domain.RawItemLine, error) {
	qty, err := parseInt(r.at(itQuantity))
	if err != nil {
		return domain.RawItemLine{}, rowError(r, ColQuantity, err)
	}
	amount, err := parseInt(r.at(itAmount))
	if err != nil {
		return domain.RawItemLine{}, rowError(r, ColAmount, err)
	}
	return domain.RawItemLine{
		CheckoutID: r.at(itID),
		SKU:        r.at(itSKU),
		Barcode:    r.at(itBarcode),
		Name:       r.at(itName),
		Quantity:   qty,
		Amount:     amount,
		Department: r.at(itDepartment),
	}, nil
}

// projectAll keeps the required columns of every file, in the given order
func projectAll(files []RawFile, required []string) ([]projectedRow, error) {
	var out []projectedRow
	for _, f := range files {
		index := make(map[string]int, len(f.Header))
		for i, h := range f.Header {
			if _, dup := index[h]; !dup {
				index[h] = i
			}
		}
		positions := make([]int, len(required))
		for i, col := range required {
			pos, ok := index[col]
			if !ok {
				return nil, apperrors.NewSchemaError(f.Source, col)
			}
			positions[i] = pos
		}
		for n, row := range f.Rows {
			cells := make([]string, len(required))
			for i, pos := range positions {
				if pos < len(row) {
					cells[i] = row[pos]
				}
			}
			out = append(out, projectedRow{source: f.Source, line: n + 2, cells: cells})
		}
	}
	return out, nil
}

func markByID(rows []projectedRow, col int, ids map[string]struct{}, removed *roaring.Bitmap) {
	if len(ids) == 0 {
		return
	}
	for i, r := range rows {
		if _, ok := ids[r.at(col)]; ok {
			removed.Add(uint32(i))
		}
	}
}

func rowError(r projectedRow, column string, cause error) error {
	return apperrors.NewDataError(r.source,
		fmt.Sprintf("列「%s」の値を変換できません（%d行目）", column, r.line), cause).
		WithContext("column", column).
		WithContext("line", r.line)
}

// parseTimestamp parses a register timestamp and drops its zone, keeping the wall clock
func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

// parseInt accepts plain integers, thousands separators and integral floats such as "120.0"
func parseInt(v string) (int64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, fmt.Errorf("empty value")
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	return int64(f), nil
}
