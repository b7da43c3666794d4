// Package http implements the HTTP handlers of the POScope web service.
// Handlers stay thin: they parse the request, call a service and format the
// response. Business rules live in the services package.
//
// # Routes
//
// Every analysis runs inside a session. The session routes host the
// session-scoped resources:
//
//	POST   /api/v1/sessions
//	GET    /api/v1/sessions/{sessionID}
//	DELETE /api/v1/sessions/{sessionID}
//	POST   /api/v1/sessions/{sessionID}/uploads/{pos,syllabus,calendar}
//	GET    /api/v1/sessions/{sessionID}/analytics/...
//	*      /api/v1/sessions/{sessionID}/forecast/...
//
// Tabular results are JSON by default. format=csv downloads a Shift-JIS CSV
// and format=xlsx an Excel workbook.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/forecast/stale-state",
//	    "title": "Conflict",
//	    "status": 409,
//	    "detail": "POSデータをアップロードしてください。",
//	    "instance": "/api/v1/sessions/.../analytics/customers-per-day"
//	}
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the service
// interfaces declared in service_interfaces.go.
package http
