package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/rmaia/inmet-station/internal/analysis"
	"github.com/rmaia/inmet-station/internal/dataset"
)

//go:embed templates
var viewsFS embed.FS

var dashboardTmpl *template.Template

// metric formats an optional measurement with its unit, or an em dash
// when the value is missing.
func metric(v *float64, unit string) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f %s", *v, unit)
}

// LoadTemplates parses the embedded dashboard templates. Call during
// startup before serving requests.
func LoadTemplates() error {
	t, err := template.New("").Funcs(template.FuncMap{"metric": metric}).
		ParseFS(viewsFS, "templates/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = t
	return nil
}

// DashboardData is the view model for the dashboard page.
type DashboardData struct {
	Station    string
	Rows       int
	LoadedAt   time.Time
	Summary    dataset.Summary
	Regression *analysis.Result
	// RegressionNote explains why the regression section is empty.
	RegressionNote string
}

// RenderDashboard executes the dashboard template into w.
func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call web.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}
