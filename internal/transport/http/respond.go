package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"poscope/internal/analytics"
	apierrors "poscope/internal/errors"
	"poscope/internal/exporter"
	"poscope/pkg/contracts/domain"
)

// Download formats of tabular results
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const (
	contentTypeCSV  = "text/csv; charset=Shift_JIS"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout      = "2006-01-02"
)

// sessionIDParam names the URL parameter holding the session id
const sessionIDParam = "sessionID"

func sessionID(r *http.Request) string {
	return chi.URLParam(r, sessionIDParam)
}

// parseFormat reads the format query parameter, defaulting to JSON
func parseFormat(r *http.Request) (string, error) {
	f := strings.ToLower(r.URL.Query().Get("format"))
	switch f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", apierrors.ErrValidation("format", "json, csv, xlsx のいずれかを指定してください")
}

// parseQuery reads the shared aggregation filters. Dates use YYYY-MM-DD.
func parseQuery(values url.Values) (analytics.Query, error) {
	q := analytics.Query{
		Hours: domain.BusinessHours(values.Get("hours")),
		Store: domain.StoreFilter(values.Get("store")),
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &q.From},
		{"to", &q.To},
	} {
		v := values.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return q, apierrors.ErrValidation(p.name, "日付は YYYY-MM-DD 形式で指定してください")
		}
		*p.dst = t
	}
	return q, nil
}

// writeTable renders a table as JSON or as a downloadable file
func writeTable(w http.ResponseWriter, r *http.Request, logger *slog.Logger, table *domain.Table, format string) error {
	switch format {
	case FormatCSV:
		var buf bytes.Buffer
		replaced, err := exporter.WriteTableCSV(&buf, table)
		if err != nil {
			return err
		}
		warnSubstituted(r, logger, table.Name+".csv", replaced)
		return writeFile(w, logger, table.Name+".csv", contentTypeCSV, buf.Bytes())
	case FormatXLSX:
		var buf bytes.Buffer
		if err := exporter.WriteTableXLSX(&buf, table); err != nil {
			return err
		}
		return writeFile(w, logger, table.Name+".xlsx", contentTypeXLSX, buf.Bytes())
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   table,
		"empty":  table.Empty(),
	})
	return nil
}

// writeRecords renders headers and records as a Shift-JIS CSV download
func writeRecords(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string, headers []string, records [][]string) error {
	var buf bytes.Buffer
	replaced, err := exporter.WriteCSV(&buf, exporter.WriteOptions{Headers: headers, Records: records})
	if err != nil {
		return err
	}
	warnSubstituted(r, logger, name, replaced)
	return writeFile(w, logger, name, contentTypeCSV, buf.Bytes())
}

func warnSubstituted(r *http.Request, logger *slog.Logger, name string, replaced int) {
	if replaced > 0 {
		logger.WarnContext(r.Context(), "characters outside Shift-JIS were substituted",
			slog.String("file", name),
			slog.Int("count", replaced))
	}
}

// writeFile sends a fully buffered body so encoding failures still produce
// a problem response
func writeFile(w http.ResponseWriter, logger *slog.Logger, name, contentType string, body []byte) error {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn("download interrupted", slog.String("file", name), slog.String("error", err.Error()))
	}
	return nil
}
