package web

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/transactions/internal/core"
	"github.com/JonMunkholm/transactions/internal/errs"
	"github.com/JonMunkholm/transactions/internal/logging"
	"github.com/JonMunkholm/transactions/internal/report"
	"github.com/JonMunkholm/transactions/internal/web/templates"
)

// ReportResponse is one report result with every cell formatted for display.
type ReportResponse struct {
	Report      string     `json:"report"`
	StoreName   string     `json:"store_name"`
	ProductName string     `json:"product_name"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	Count       int        `json:"count"`
}

type healthResponse struct {
	Status   string        `json:"status"`
	Sessions LimiterStatus `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, healthResponse{Status: "ok", Sessions: s.limiter.status()})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string][]string{"reports": s.opts.Service.Queries.Reports()})
}

func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	res, err := s.runReport(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, res)
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	res, err := s.runReport(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	view := templates.ReportView{
		Report:      res.Report,
		StoreName:   res.StoreName,
		ProductName: res.ProductName,
		Columns:     res.Columns,
		Rows:        res.Rows,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ReportPage(view).Render(r.Context(), w); err != nil {
		// The status line is already written.
		logging.FromContext(r.Context()).Error("report.render", "report", res.Report, "error", err)
	}
}

// runReport resolves the filters, opens a session and runs the named
// report. Unknown names are refused before any connection is made.
func (s *Server) runReport(r *http.Request) (ReportResponse, error) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	res := ReportResponse{Report: name}

	if !slices.Contains(s.opts.Service.Queries.Reports(), name) {
		return res, errs.NotFound("report", name)
	}

	params := s.filters(r)
	res.StoreName = params[core.ParamStoreName]
	res.ProductName = params[core.ParamProductName]

	if err := s.limiter.acquire(ctx); err != nil {
		return res, err
	}
	defer s.limiter.release()

	sess, err := s.opts.Opener.Connect(ctx, s.opts.Database)
	if err != nil {
		return res, err
	}
	defer sess.Close(ctx)

	rows, err := s.opts.Service.Query(ctx, sess, s.opts.Database.Name, name, params)
	if err != nil {
		return res, err
	}

	res.Rows = make([][]string, 0, len(rows))
	width := 0
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = report.FormatValue(v)
		}
		res.Rows = append(res.Rows, cells)
		width = max(width, len(row))
	}
	res.Columns = columns(width)
	res.Count = len(rows)
	return res, nil
}

// filters reads store_name and product_name, falling back to the
// configured query defaults.
func (s *Server) filters(r *http.Request) map[string]string {
	q := r.URL.Query()
	get := func(key, def string) string {
		if v := q.Get(key); v != "" {
			return v
		}
		return def
	}
	return map[string]string{
		core.ParamStoreName:   get(core.ParamStoreName, s.opts.Query.StoreName),
		core.ParamProductName: get(core.ParamProductName, s.opts.Query.ProductName),
	}
}

func columns(n int) []string {
	if n > len(report.Headers) {
		n = len(report.Headers)
	}
	return slices.Clone(report.Headers[:n])
}
