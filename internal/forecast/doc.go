// Package forecast predicts daily customer totals of one store and service
// period from academic calendar features.
//
// The model regresses the natural logarithm of the daily total on the
// attendance figure, the week of term and the holiday, replaced, first-week
// and last-week flags, plus an intercept. It is fitted by least squares on
// the chronological head of the joined rows and validated on the tail.
package forecast
