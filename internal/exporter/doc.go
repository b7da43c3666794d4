// Package exporter writes analysis results to files and download bodies.
//
// CSV output is Shift-JIS by default so the files open directly in Excel on
// Japanese Windows, the same environment the register exports come from.
// Tables can also be written as single-sheet XLSX workbooks.
//
// DatasetExporter writes the CLI outputs: visits.csv and items.csv for a
// cleaned POS dataset, features.csv for calendar features and
// predictions.csv for a forecast.
package exporter
