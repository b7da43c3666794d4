// Package services implements the business logic layer of POScope. It sits
// between the HTTP handlers and the processing packages and owns the
// session-scoped workflow: uploads, aggregations and the forecast.
//
// # Available Services
//
//	- SessionService: creates, reports and ends analysis sessions
//	- UploadService: validates and loads POS archives, the syllabus workbook and the calendar
//	- AnalyticsService: memoized aggregations over a session's POS dataset
//	- ForecastService: selection, training, prediction and model import/export
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return *errors.AppError values whose UserMessage is Japanese and
// safe to show. Sentinel errors such as ErrSessionNotFound and
// ErrMissingInputs are wrapped as causes so callers can match them with
// errors.Is:
//
//	if errors.Is(err, services.ErrMissingInputs) {
//	    // ask the user to upload the remaining inputs
//	}
//
// A failed upload never replaces the session's previous input.
package services
