package analytics

import (
	"testing"
	"time"

	"poscope/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return ts
}

func visit(t *testing.T, store domain.Store, opened string, customers int64, payments map[domain.PaymentMethod]int64) domain.CustomerVisit {
	ts := at(t, opened)
	return domain.CustomerVisit{
		Store:      store,
		CheckoutID: opened,
		OpenedAt:   ts,
		ClosedAt:   ts.Add(2 * time.Minute),
		Customers:  customers,
		Payments:   payments,
	}
}

func query(t *testing.T, from, to string, hours domain.BusinessHours, store domain.StoreFilter) Query {
	return Query{
		From:  at(t, from+" 00:00:00"),
		To:    at(t, to+" 00:00:00"),
		Hours: hours,
		Store: store,
	}
}

func TestFilterVisits(t *testing.T) {
	visits := []domain.CustomerVisit{
		visit(t, domain.StoreWest, "2024-04-08 10:59:59", 1, nil),
		visit(t, domain.StoreWest, "2024-04-08 11:00:00", 1, nil),
		visit(t, domain.StoreWest, "2024-04-08 14:00:00", 1, nil),
		visit(t, domain.StoreWest, "2024-04-08 14:00:01", 1, nil),
		visit(t, domain.StoreEast, "2024-04-08 12:00:00", 1, nil),
		visit(t, domain.StoreWest, "2024-04-09 18:00:00", 1, nil),
		visit(t, domain.StoreWest, "2024-04-10 12:00:00", 1, nil),
	}

	tests := []struct {
		name  string
		input []domain.CustomerVisit
		q     Query
		want  []string
	}{
		{
			name:  "midday window is inclusive at both ends",
			input: visits,
			q:     query(t, "2024-04-08", "2024-04-08", domain.HoursMidday, domain.StoreFilterWest),
			want:  []string{"2024-04-08 11:00:00", "2024-04-08 14:00:00"},
		},
		{
			name:  "both stores",
			input: visits,
			q:     query(t, "2024-04-08", "2024-04-08", domain.HoursMidday, domain.StoreFilterBoth),
			want:  []string{"2024-04-08 11:00:00", "2024-04-08 14:00:00", "2024-04-08 12:00:00"},
		},
		{
			name:  "end date covers the whole day",
			input: visits,
			q:     query(t, "2024-04-09", "2024-04-10", domain.HoursBoth, domain.StoreFilterWest),
			want:  []string{"2024-04-09 18:00:00", "2024-04-10 12:00:00"},
		},
		{
			name:  "evening",
			input: visits,
			q:     query(t, "2024-04-08", "2024-04-10", domain.HoursEvening, domain.StoreFilterWest),
			want:  []string{"2024-04-09 18:00:00"},
		},
		{
			name:  "empty input",
			input: nil,
			q:     query(t, "2024-04-08", "2024-04-10", domain.HoursBoth, domain.StoreFilterBoth),
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterVisits(tt.input, tt.q)
			require.NotNil(t, got)
			ids := make([]string, 0, len(got))
			for _, v := range got {
				ids = append(ids, v.CheckoutID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterItems_Empty(t *testing.T) {
	got := FilterItems(nil, Query{Hours: domain.HoursBoth})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCustomersByTimeOfDay(t *testing.T) {
	visits := []domain.CustomerVisit{
		visit(t, domain.StoreWest, "2024-04-08 11:02:00", 2, nil),
		visit(t, domain.StoreWest, "2024-04-08 11:07:00", 1, nil),
		visit(t, domain.StoreWest, "2024-04-10 11:03:00", 3, nil),
		visit(t, domain.StoreEast, "2024-04-09 11:03:00", 9, nil),
	}

	tests := []struct {
		name     string
		q        Query
		span     int
		wantErr  bool
		validate func(t *testing.T, r *TimeOfDayResult)
	}{
		{
			name: "five minute buckets",
			q:    query(t, "2024-04-08", "2024-04-12", domain.HoursMidday, domain.StoreFilterWest),
			span: 5,
			validate: func(t *testing.T, r *TimeOfDayResult) {
				assert.Equal(t, []string{"2024-04-08", "2024-04-09", "2024-04-10"}, r.Table.Columns)
				require.Len(t, r.Table.Index, 37)
				assert.Equal(t, "11:00", r.Table.Index[0])
				assert.Equal(t, "14:00", r.Table.Index[36])
				assert.Equal(t, []domain.Number{2, 0, 3}, r.Table.Rows[0])
				assert.Equal(t, []domain.Number{1, 0, 0}, r.Table.Rows[1])
				assert.Equal(t, []string{"2024-04-09"}, r.Excluded)
				require.Len(t, r.Average, 37)
				assert.Equal(t, domain.Number(2.5), r.Average[0])
				assert.Equal(t, domain.Number(0.5), r.Average[1])
			},
		},
		{
			name: "thirty minute evening buckets",
			q:    query(t, "2024-04-08", "2024-04-12", domain.HoursEvening, domain.StoreFilterWest),
			span: 30,
			validate: func(t *testing.T, r *TimeOfDayResult) {
				// no evening visits
				assert.True(t, r.Table.Empty())
				assert.Nil(t, r.Average)
			},
		},
		{
			name:    "both stores rejected",
			q:       query(t, "2024-04-08", "2024-04-12", domain.HoursMidday, domain.StoreFilterBoth),
			span:    5,
			wantErr: true,
		},
		{
			name:    "unsupported span",
			q:       query(t, "2024-04-08", "2024-04-12", domain.HoursMidday, domain.StoreFilterWest),
			span:    15,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := CustomersByTimeOfDay(visits, tt.q, tt.span)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, r)
		})
	}
}

func TestCustomersByTimeOfDay_ClosingBucket(t *testing.T) {
	visits := []domain.CustomerVisit{
		visit(t, domain.StoreWest, "2024-04-08 10:58:00", 7, nil),
		visit(t, domain.StoreWest, "2024-04-08 13:55:10", 1, nil),
		visit(t, domain.StoreWest, "2024-04-08 14:02:00", 4, nil),
		visit(t, domain.StoreWest, "2024-04-08 14:05:00", 6, nil),
		visit(t, domain.StoreWest, "2024-04-09 19:34:59", 5, nil),
	}

	tests := []struct {
		name     string
		q        Query
		span     int
		validate func(t *testing.T, r *TimeOfDayResult)
	}{
		{
			name: "midday closing bucket holds visits after 14:00",
			q:    query(t, "2024-04-08", "2024-04-09", domain.HoursMidday, domain.StoreFilterWest),
			span: 5,
			validate: func(t *testing.T, r *TimeOfDayResult) {
				assert.Equal(t, []string{"2024-04-08"}, r.Table.Columns)
				require.Len(t, r.Table.Index, 37)
				assert.Equal(t, "11:00", r.Table.Index[0])
				assert.Equal(t, []domain.Number{0}, r.Table.Rows[0])
				assert.Equal(t, []domain.Number{1}, r.Table.Rows[35])
				assert.Equal(t, "14:00", r.Table.Index[36])
				assert.Equal(t, []domain.Number{4}, r.Table.Rows[36])
			},
		},
		{
			name: "evening closing bucket",
			q:    query(t, "2024-04-09", "2024-04-09", domain.HoursEvening, domain.StoreFilterWest),
			span: 10,
			validate: func(t *testing.T, r *TimeOfDayResult) {
				last := len(r.Table.Index) - 1
				assert.Equal(t, "19:30", r.Table.Index[last])
				assert.Equal(t, []domain.Number{5}, r.Table.Rows[last])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := CustomersByTimeOfDay(visits, tt.q, tt.span)
			require.NoError(t, err)
			tt.validate(t, r)
		})
	}
}

func TestCustomersPerDay(t *testing.T) {
	visits := []domain.CustomerVisit{
		visit(t, domain.StoreWest, "2024-04-08 12:00:00", 2, nil),
		visit(t, domain.StoreWest, "2024-04-08 12:30:00", 1, nil),
		visit(t, domain.StoreWest, "2024-04-10 12:00:00", 4, nil),
		visit(t, domain.StoreEast, "2024-04-09 12:00:00", 5, nil),
	}

	table := CustomersPerDay(visits, query(t, "2024-04-01", "2024-04-30", domain.HoursBoth, domain.StoreFilterBoth))
	assert.Equal(t, []string{"西食堂", "東カフェテリア"}, table.Columns)
	assert.Equal(t, []string{"2024-04-08", "2024-04-09", "2024-04-10"}, table.Index)

	west := table.Column("西食堂")
	assert.Equal(t, []domain.Number{3, 0, 4}, west)
	east := table.Column("東カフェテリア")
	assert.True(t, east[0].IsNaN())
	assert.Equal(t, domain.Number(5), east[1])
	assert.True(t, east[2].IsNaN())

	single := CustomersPerDay(visits, query(t, "2024-04-01", "2024-04-30", domain.HoursBoth, domain.StoreFilterEast))
	assert.Equal(t, []string{"東カフェテリア"}, single.Columns)

	assert.True(t, CustomersPerDay(nil, query(t, "2024-04-01", "2024-04-30", domain.HoursBoth, domain.StoreFilterBoth)).Empty())
}

func TestPaymentMethodRatios(t *testing.T) {
	methods := []domain.PaymentMethod{"交通系IC", "現金"}
	visits := []domain.CustomerVisit{
		visit(t, domain.StoreWest, "2024-04-08 12:00:00", 2, map[domain.PaymentMethod]int64{"現金": 1, "交通系IC": 1}),
		visit(t, domain.StoreWest, "2024-04-08 12:10:00", 3, map[domain.PaymentMethod]int64{"現金": 1, "交通系IC": 0}),
	}

	table := PaymentMethodRatios(visits, methods, query(t, "2024-04-08", "2024-04-08", domain.HoursMidday, domain.StoreFilterBoth))
	assert.Equal(t, ColPaymentMethod, table.IndexName)
	assert.Equal(t, []string{ColCount}, table.Columns)
	assert.Equal(t, []string{"交通系IC", "現金"}, table.Index)
	// multi-method visits count toward each method
	assert.Equal(t, []domain.Number{2, 5}, table.Column(ColCount))

	assert.True(t, PaymentMethodRatios(nil, methods, Query{Hours: domain.HoursBoth}).Empty())
}

func items(t *testing.T) []domain.ItemSale {
	mk := func(store domain.Store, opened, name, sku, dept string, qty, amount int64) domain.ItemSale {
		return domain.ItemSale{Store: store, OpenedAt: at(t, opened), Name: name, SKU: sku, Barcode: "b" + sku, Department: dept, Quantity: qty, Amount: amount}
	}
	return []domain.ItemSale{
		mk(domain.StoreWest, "2024-04-08 12:00:00", "カレー", "S1", "主食", 2, 1080),
		mk(domain.StoreWest, "2024-04-09 12:00:00", "カレー", "S1", "主食", 1, 540),
		mk(domain.StoreWest, "2024-04-09 12:05:00", "サラダ", "S2", "副菜", 1, 300),
		mk(domain.StoreEast, "2024-04-09 18:00:00", "カレー", "S1", "主食", 3, 1620),
	}
}

func TestSalesByItem(t *testing.T) {
	q := query(t, "2024-04-01", "2024-04-30", domain.HoursBoth, domain.StoreFilterBoth)

	tests := []struct {
		name     string
		key      ItemKey
		value    string
		measure  Measure
		wantErr  bool
		validate func(t *testing.T, table *domain.Table)
	}{
		{
			name:    "quantity by name",
			key:     ItemByName,
			value:   "カレー",
			measure: MeasureQuantity,
			validate: func(t *testing.T, table *domain.Table) {
				assert.Equal(t, []string{"2024-04-08", "2024-04-09"}, table.Index)
				assert.Equal(t, []domain.Number{2, 1}, table.Column("西食堂"))
				east := table.Column("東カフェテリア")
				assert.True(t, east[0].IsNaN())
				assert.Equal(t, domain.Number(3), east[1])
			},
		},
		{
			name:    "amount by barcode",
			key:     ItemByBarcode,
			value:   "bS2",
			measure: MeasureAmount,
			validate: func(t *testing.T, table *domain.Table) {
				assert.Equal(t, []string{"西食堂"}, table.Columns)
				assert.Equal(t, []domain.Number{300}, table.Column("西食堂"))
			},
		},
		{
			name:    "no match is empty",
			key:     ItemBySKU,
			value:   "S9",
			measure: MeasureQuantity,
			validate: func(t *testing.T, table *domain.Table) {
				assert.True(t, table.Empty())
			},
		},
		{
			name:    "bad key",
			key:     "colour",
			measure: MeasureQuantity,
			wantErr: true,
		},
		{
			name:    "bad measure",
			key:     ItemByName,
			measure: "weight",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := SalesByItem(items(t), q, tt.key, tt.value, tt.measure)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, table)
		})
	}
}

func TestSalesByDepartmentAndCandidates(t *testing.T) {
	q := query(t, "2024-04-01", "2024-04-30", domain.HoursMidday, domain.StoreFilterWest)

	table, err := SalesByDepartment(items(t), q, "主食", MeasureAmount)
	require.NoError(t, err)
	assert.Equal(t, []domain.Number{1080, 540}, table.Column("西食堂"))

	names, err := ItemCandidates(items(t), q, ItemByName)
	require.NoError(t, err)
	assert.Equal(t, []string{"カレー", "サラダ"}, names)

	assert.Equal(t, []string{"主食", "副菜"}, DepartmentCandidates(items(t), q))
	assert.Empty(t, DepartmentCandidates(nil, q))

	supply := DailySupply(items(t), q)
	assert.Equal(t, []domain.Number{2, 2}, supply.Column("西食堂"))
}

func TestDailyCustomers(t *testing.T) {
	visits := []domain.CustomerVisit{
		visit(t, domain.StoreWest, "2024-04-08 12:00:00", 2, nil),
		visit(t, domain.StoreWest, "2024-04-10 12:00:00", 4, nil),
		visit(t, domain.StoreWest, "2024-04-10 18:00:00", 7, nil),
	}

	got := DailyCustomers(visits, Query{Hours: domain.HoursMidday, Store: domain.StoreFilterWest})
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0].Customers)
	assert.Equal(t, 0.0, got[1].Customers)
	assert.Equal(t, 4.0, got[2].Customers)

	assert.Nil(t, DailyCustomers(nil, Query{Hours: domain.HoursMidday}))
}
