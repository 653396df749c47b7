package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"my-trips/internal/models"
	"my-trips/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names
const (
	TripsPage  = "trips-page"
	AddTrip    = "addtrips"
	EditTrip   = "edit"
	DeleteTrip = "delete"
	Login      = "login"
	Register   = "register"
	Error      = "error"
)

// partials are parsed alongside the pages that use them
var pages = map[string][]string{
	TripsPage:  {"trips-page.html"},
	AddTrip:    {"tripform.html", "addtrips.html"},
	EditTrip:   {"tripform.html", "edit.html"},
	DeleteTrip: {"delete.html"},
	Login:      {"login.html"},
	Register:   {"register.html"},
	Error:      {"error.html"},
}

// Base carries what the layout needs on every page
type Base struct {
	Username string
}

// TripsPageView is the data of the trips page
type TripsPageView struct {
	Base
	Trip  *models.Trip
	Trips []*models.Trip
}

// FormView is the data of the add and edit forms
type FormView struct {
	Base
	Trip   services.TripForm
	Errors map[string]string
	ID     int64
	Photo1 string
	Photo2 string
}

// DeleteView is the data of the delete confirmation
type DeleteView struct {
	Base
	Trip *models.Trip
}

// AuthView is the data of the login and register forms
type AuthView struct {
	Base
	Form    services.RegisterForm
	Message string
	Errors  map[string]string
}

// ErrorView is the data of the error page
type ErrorView struct {
	Base
	Status  int
	Title   string
	Message string
}

var funcs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(services.DateLayout)
	},
}

// Renderer executes the embedded page templates
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page with the shared layout
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for name, files := range pages {
		patterns := []string{"templates/layout.html"}
		for _, f := range files {
			patterns = append(patterns, "templates/"+f)
		}

		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, patterns...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render writes the page with status. Output is buffered so a template
// failure yields a 500 instead of a truncated page.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
