// Package analytics filters merged POS rows by date, business hours and
// store, and aggregates them into tables for charts and downloads.
//
// Every filter applies to the open timestamp of a visit. Empty selections
// produce empty tables, never errors.
package analytics
