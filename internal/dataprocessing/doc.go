// Package dataprocessing turns uploaded register exports and school
// spreadsheets into typed domain values.
//
// # POS archives
//
// Each POS upload is one or more zip archives holding Shift-JIS encoded
// checkouts.csv, items.csv and payments.csv. ArchiveReader concatenates the
// same-named files across archives, Cleaner removes cancelled checkouts,
// method-switch payment rows and checkouts with a non-positive item
// quantity, and Merge joins the result into a domain.POSDataset:
//
//	pipeline, err := dataprocessing.NewPipeline(cfg.Pipeline, metrics, logger)
//	if err != nil {
//	    return err
//	}
//	ds, report, err := pipeline.Run(ctx, archives)
//
// Archives with identical bytes are read once when SkipIdenticalArchives is
// set. Distinct archives whose periods overlap are concatenated as is, so a
// checkout present in both is counted twice.
//
// # Spreadsheets
//
// LoadSyllabus reads the west and east sheets of the enrollment workbook and
// LoadCalendar reads the academic calendar from xlsx or csv.
package dataprocessing
