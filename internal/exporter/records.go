package exporter

import "poscope/pkg/contracts/domain"

// Output file names written by DatasetExporter
const (
	VisitsFile      = "visits.csv"
	ItemsFile       = "items.csv"
	FeaturesFile    = "features.csv"
	PredictionsFile = "predictions.csv"
)

// DatasetExporter writes cleaned datasets, calendar features and forecasts
// as Shift-JIS CSV files
type DatasetExporter struct {
	csvWriter *CSVWriter
}

// NewDatasetExporter creates a new dataset exporter
func NewDatasetExporter(w *CSVWriter) *DatasetExporter {
	return &DatasetExporter{csvWriter: w}
}

// ExportDataset writes visits.csv and items.csv and returns their paths
func (d *DatasetExporter) ExportDataset(ds *domain.POSDataset) ([]string, error) {
	headers, records := VisitRecords(ds.Visits, ds.PaymentMethods)
	visits, err := d.csvWriter.WriteFile(VisitsFile, WriteOptions{Headers: headers, Records: records})
	if err != nil {
		return nil, err
	}
	headers, records = ItemRecords(ds.Items)
	items, err := d.csvWriter.WriteFile(ItemsFile, WriteOptions{Headers: headers, Records: records})
	if err != nil {
		return nil, err
	}
	return []string{visits, items}, nil
}

// ExportFeatures writes calendar features to name
func (d *DatasetExporter) ExportFeatures(features []domain.CalendarFeatures, name string) (string, error) {
	headers, records := FeatureRecords(features)
	return d.csvWriter.WriteFile(name, WriteOptions{Headers: headers, Records: records})
}

// ExportPredictions writes forecast rows to name
func (d *DatasetExporter) ExportPredictions(preds []domain.Prediction, name string) (string, error) {
	headers, records := PredictionRecords(preds)
	return d.csvWriter.WriteFile(name, WriteOptions{Headers: headers, Records: records})
}

// VisitRecords flattens visits with one count column per payment method
func VisitRecords(visits []domain.CustomerVisit, methods []domain.PaymentMethod) ([]string, [][]string) {
	headers := []string{"店舗", "会計ID", "開始日時", "会計日時", "金額", "客数"}
	for _, m := range methods {
		headers = append(headers, string(m))
	}

	records := make([][]string, 0, len(visits))
	for _, v := range visits {
		rec := []string{
			v.Store.DisplayName(),
			v.CheckoutID,
			formatTime(v.OpenedAt),
			formatTime(v.ClosedAt),
			formatInt(v.Amount),
			formatInt(v.Customers),
		}
		for _, m := range methods {
			rec = append(rec, formatInt(v.Payments[m]))
		}
		records = append(records, rec)
	}
	return headers, records
}

// ItemRecords flattens item sales
func ItemRecords(items []domain.ItemSale) ([]string, [][]string) {
	headers := []string{"店舗", "会計ID", "開始日時", "会計日時", "SKU", "バーコード", "名前", "数量", "金額", "部門"}
	records := make([][]string, 0, len(items))
	for _, it := range items {
		records = append(records, []string{
			it.Store.DisplayName(),
			it.CheckoutID,
			formatTime(it.OpenedAt),
			formatTime(it.ClosedAt),
			it.SKU,
			it.Barcode,
			it.Name,
			formatInt(it.Quantity),
			formatInt(it.Amount),
			it.Department,
		})
	}
	return headers, records
}

// FeatureRecords flattens calendar features in calendar column order
func FeatureRecords(features []domain.CalendarFeatures) ([]string, [][]string) {
	headers := []string{
		"date", "academic_year", "term", "class", "info",
		"week_of_term", "holiday", "replaced", "first_week", "last_week", "attendance",
	}
	records := make([][]string, 0, len(features))
	for _, f := range features {
		records = append(records, []string{
			formatDate(f.Date),
			formatInt(int64(f.AcademicYear)),
			string(f.Term),
			string(f.Class),
			f.Info,
			formatNumber(f.WeekOfTerm),
			formatInt(int64(f.Holiday)),
			formatInt(int64(f.Replaced)),
			formatInt(int64(f.FirstWeek)),
			formatInt(int64(f.LastWeek)),
			formatNumber(f.Attendance),
		})
	}
	return headers, records
}

// PredictionRecords flattens forecast rows. Customer counts are rounded to
// one decimal place.
func PredictionRecords(preds []domain.Prediction) ([]string, [][]string) {
	headers := []string{"date", "term", "class", "week_of_term", "attendance", "customers"}
	records := make([][]string, 0, len(preds))
	for _, p := range preds {
		records = append(records, []string{
			formatDate(p.Date),
			string(p.Term),
			string(p.Class),
			formatNumber(p.WeekOfTerm),
			formatNumber(p.Attendance),
			formatNumber(domain.Number(roundTenth(p.Customers))),
		})
	}
	return headers, records
}

func roundTenth(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
