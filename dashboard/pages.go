package main

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/animus-labs/aigov-dashboard/internal/artifacts"
	"github.com/animus-labs/aigov-dashboard/internal/domain"
	"github.com/animus-labs/aigov-dashboard/internal/integrity"
	"github.com/animus-labs/aigov-dashboard/internal/platform/auth"
	"github.com/animus-labs/aigov-dashboard/internal/repo"
	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

const timeLayout = "2006-01-02 15:04 UTC"

var templateFuncs = template.FuncMap{
	"shortHash":  integrity.ShortHash,
	"modeTone":   func(v string) string { return string(integrity.ModeTone(v)) },
	"statusTone": func(v string) string { return string(integrity.StatusTone(v)) },
	"dash": func(v string) string {
		if strings.TrimSpace(v) == "" || v == integrity.Unset {
			return "—"
		}
		return v
	},
}

type renderer struct {
	logger *slog.Logger
	pages  map[string]*template.Template
}

func newRenderer(logger *slog.Logger) (*renderer, error) {
	r := &renderer{logger: logger, pages: map[string]*template.Template{}}
	for _, name := range []string{"runs", "run", "login", "error"} {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		r.pages[name] = t
	}
	return r, nil
}

func (rd *renderer) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	t, ok := rd.pages[name]
	if !ok {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		rd.logger.Error("render page failed", "request_id", r.Header.Get("X-Request-Id"), "page", name, "error", err)
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type pageBase struct {
	User auth.Identity
}

type runRow struct {
	Run        domain.Run
	Verdict    integrity.Verdict
	Created    string
	CreatedAgo string
}

type runsPage struct {
	pageBase
	Rows   []runRow
	Filter repo.RunFilter
	Limit  int
	Error  string
}

type hashRow struct {
	Label string
	Full  string
	Short string
}

type runPage struct {
	pageBase
	Run        domain.Run
	Verdict    integrity.Verdict
	Checks     []integrity.Check
	Hashes     []hashRow
	Created    string
	CreatedAgo string
	Closed     string
	Signed     artifacts.SignedURLBundle
	Expires    string
}

type loginPage struct {
	pageBase
	Message   string
	SignInURL string
}

type errorPage struct {
	pageBase
	Heading string
	Message string
}

type dashboardPages struct {
	logger       *slog.Logger
	render       *renderer
	runs         repo.RunRepository
	issuer       *artifacts.Issuer
	listLimit    int
	queryTimeout time.Duration
	// signInPath starts a login; empty means the deployment has no
	// interactive login and the sign-in link goes straight to next.
	signInPath string
	now        func() time.Time
}

func (p *dashboardPages) register(mux *http.ServeMux, gate func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /{$}", p.handleRoot)
	mux.HandleFunc("GET /login", p.handleLogin)
	mux.Handle("GET /runs", gate(http.HandlerFunc(p.handleRuns)))
	mux.Handle("GET /runs/{id}", gate(http.HandlerFunc(p.handleRun)))
}

func (p *dashboardPages) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/runs", http.StatusFound)
}

func (p *dashboardPages) handleLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	next := q.Get("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = auth.DefaultReturnTo
	}
	signIn := next
	if p.signInPath != "" {
		target := url.URL{Path: p.signInPath}
		tq := target.Query()
		tq.Set("next", next)
		target.RawQuery = tq.Encode()
		signIn = target.String()
	}
	p.render.render(w, r, http.StatusOK, "login", loginPage{
		Message:   strings.TrimSpace(q.Get("message")),
		SignInURL: signIn,
	})
}

func (p *dashboardPages) handleRuns(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.IdentityFromContext(r.Context())
	filter := runFilterFromQuery(r, p.listLimit)
	filter.Mode = strings.ToLower(filter.Mode)
	filter.Status = strings.ToLower(filter.Status)
	data := runsPage{pageBase: pageBase{User: user}, Filter: filter, Limit: filter.EffectiveLimit()}

	ctx, cancel := p.queryContext(r.Context())
	defer cancel()
	runs, err := p.runs.ListRuns(ctx, filter)
	if err != nil {
		p.logger.Error("list runs failed", "request_id", r.Header.Get("X-Request-Id"), "error", err)
		data.Error = "The runs table could not be read. Try again shortly."
		p.render.render(w, r, http.StatusInternalServerError, "runs", data)
		return
	}

	data.Rows = make([]runRow, 0, len(runs))
	for _, run := range runs {
		data.Rows = append(data.Rows, runRow{
			Run:        run,
			Verdict:    integrity.Evaluate(run),
			Created:    p.formatTime(run.CreatedAt),
			CreatedAgo: p.ago(run.CreatedAt),
		})
	}
	p.render.render(w, r, http.StatusOK, "runs", data)
}

func (p *dashboardPages) handleRun(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.IdentityFromContext(r.Context())
	base := pageBase{User: user}
	id := strings.TrimSpace(r.PathValue("id"))

	ctx, cancel := p.queryContext(r.Context())
	defer cancel()
	run, err := p.runs.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			p.render.render(w, r, http.StatusNotFound, "error", errorPage{pageBase: base, Heading: "Run not found", Message: "No run has id " + id + "."})
			return
		}
		p.logger.Error("get run failed", "request_id", r.Header.Get("X-Request-Id"), "run_id", id, "error", err)
		p.render.render(w, r, http.StatusInternalServerError, "error", errorPage{pageBase: base, Heading: "Load error", Message: "The run could not be read. Try again shortly."})
		return
	}

	verdict := integrity.Evaluate(run)
	data := runPage{
		pageBase:   base,
		Run:        run,
		Verdict:    verdict,
		Checks:     verdict.Checks(),
		Hashes:     hashRows(run),
		Created:    p.formatTime(run.CreatedAt),
		CreatedAgo: p.ago(run.CreatedAt),
	}
	if run.ClosedAt != nil {
		data.Closed = strings.TrimSpace(*run.ClosedAt)
	}

	signed, err := p.issuer.SignURLs(r.Context(), run.ID)
	if err != nil {
		p.logger.Warn("sign urls failed", "request_id", r.Header.Get("X-Request-Id"), "run_id", run.ID, "error", err)
	} else if !signed.OK {
		p.logger.Warn("sign urls failed", "request_id", r.Header.Get("X-Request-Id"), "run_id", run.ID, "error", signed.Message)
	}
	data.Signed = signed
	now := p.clock()
	data.Expires = strings.TrimSpace(humanize.RelTime(now, now.Add(p.issuer.TTL()), "", ""))

	p.render.render(w, r, http.StatusOK, "run", data)
}

func hashRows(run domain.Run) []hashRow {
	rows := []struct {
		label string
		v     *string
	}{
		{"Bundle sha256", run.BundleHash},
		{"Evidence sha256", run.EvidenceHash},
		{"Report sha256", run.ReportHash},
	}
	out := make([]hashRow, 0, len(rows))
	for _, row := range rows {
		h := hashRow{Label: row.label, Short: integrity.ShortHash(row.v)}
		if row.v != nil {
			h.Full = strings.TrimSpace(*row.v)
		}
		out = append(out, h)
	}
	return out
}

func (p *dashboardPages) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *dashboardPages) formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func (p *dashboardPages) ago(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return humanize.RelTime(t, p.clock(), "ago", "from now")
}

func (p *dashboardPages) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.queryTimeout)
}
