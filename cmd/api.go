package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/config"
	"github.com/sells-group/risk-cli/internal/detect"
	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/pipeline"
	"github.com/sells-group/risk-cli/internal/resilience"
	"github.com/sells-group/risk-cli/internal/sqlsource"
)

const maxBodyBytes = 10 << 20

// batchRunner runs one batch. *pipeline.Pipeline satisfies it.
type batchRunner interface {
	Run(ctx context.Context, raw []model.RawItem, opts pipeline.Options) *model.BatchReport
}

// sqlConnector opens a source database.
type sqlConnector func(ctx context.Context, cfg sqlsource.ConnectionConfig) (sqlsource.Source, error)

// apiServer serves the HTTP API.
type apiServer struct {
	runner     batchRunner
	classifier string
	connect    sqlConnector
	batch      config.BatchConfig
	sql        config.SQLConfig
}

func newAPIServer(runner batchRunner, classifierName string, c *config.Config) *apiServer {
	return &apiServer{
		runner:     runner,
		classifier: classifierName,
		connect:    sqlsource.Open,
		batch:      c.Batch,
		sql:        c.SQL,
	}
}

// buildRouter mounts every route behind CORS, recovery and request logging.
func buildRouter(s *apiServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/detect-data-type", s.handleDetect)
		r.Post("/smart-batch-analysis", s.handleSmartBatch)
		r.Post("/sql-to-smart-batch", s.handleSQLBatch)
		r.Post("/test-connection", s.handleTestConnection)
		r.Post("/execute-query", s.handleExecuteQuery)
		r.Post("/tables", s.handleTables)
		r.Get("/model-info", s.handleModelInfo)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items     []string `json:"items"`
		DataItems []string `json:"data_items"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	items := req.Items
	if len(items) == 0 {
		items = req.DataItems
	}
	if len(items) == 0 {
		writeError(w, r, resilience.BadRequest(eris.New("items is required")))
		return
	}
	writeJSON(w, http.StatusOK, detect.Summarize(items))
}

func (s *apiServer) handleSmartBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items     []model.RawItem `json:"items"`
		DataItems []model.RawItem `json:"data_items"`
		batchParams
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	items := req.Items
	if len(items) == 0 {
		items = req.DataItems
	}
	if len(items) == 0 {
		writeError(w, r, resilience.BadRequest(eris.New("items is required")))
		return
	}

	opts, err := req.options(s.batch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.runner.Run(r.Context(), items, opts))
}

func (s *apiServer) handleSQLBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConnectionDetails *sqlsource.ConnectionConfig `json:"connection_details"`
		Connection        *sqlsource.ConnectionConfig `json:"connection"`
		Query             string                      `json:"query"`
		AutoDetectColumns *bool                       `json:"auto_detect_columns"`
		batchParams
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	conn := req.ConnectionDetails
	if conn == nil {
		conn = req.Connection
	}
	if conn == nil {
		writeError(w, r, resilience.BadRequest(eris.New("connection_details is required")))
		return
	}
	if req.Query == "" {
		writeError(w, r, resilience.BadRequest(eris.New("query is required")))
		return
	}
	opts, err := req.options(s.batch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	autoDetect := true
	if req.AutoDetectColumns != nil {
		autoDetect = *req.AutoDetectColumns
	}

	report, err := runSQLBatch(r.Context(), s.runner, s.openSource, *conn, req.Query, opts, autoDetect)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var conn sqlsource.ConnectionConfig
	if err := decodeJSON(w, r, &conn); err != nil {
		writeError(w, r, err)
		return
	}
	src, err := s.openSource(r.Context(), conn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer src.Close()

	info, err := src.Ping(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "connection established",
		"server_version": info.Version,
		"database":       info.Database,
	})
}

func (s *apiServer) handleExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connection sqlsource.ConnectionConfig `json:"connection"`
		Query      string                     `json:"query"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Query == "" {
		writeError(w, r, resilience.BadRequest(eris.New("query is required")))
		return
	}
	src, err := s.openSource(r.Context(), req.Connection)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer src.Close()

	if !sqlsource.ReturnsRows(req.Query) {
		n, err := src.Exec(r.Context(), req.Query)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"rows_affected": n,
			"message":       fmt.Sprintf("statement executed, %d rows affected", n),
		})
		return
	}

	res, err := src.Query(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"columns":   res.Columns,
		"data":      res.Rows,
		"row_count": len(res.Rows),
	})
}

func (s *apiServer) handleTables(w http.ResponseWriter, r *http.Request) {
	var conn sqlsource.ConnectionConfig
	if err := decodeJSON(w, r, &conn); err != nil {
		writeError(w, r, err)
		return
	}
	src, err := s.openSource(r.Context(), conn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer src.Close()

	tables, err := src.Tables(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tables": tables})
}

func (s *apiServer) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	tiers := map[model.RiskTier]float64{}
	for _, t := range []model.RiskTier{model.TierLow, model.TierMedium, model.TierHigh, model.TierCritical} {
		tiers[t] = t.BaseScore()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"classifier":            s.classifier,
		"tiers":                 tiers,
		"penalties":             pipeline.Penalties(),
		"high_risk_threshold":   pipeline.HighRiskThreshold,
		"medium_risk_threshold": pipeline.MediumRiskThreshold,
		"strategies": []model.Strategy{
			model.StrategyAuto, model.StrategyTaxIDOnly, model.StrategyNameOnly, model.StrategyHybrid,
		},
	})
}

func (s *apiServer) openSource(ctx context.Context, conn sqlsource.ConnectionConfig) (sqlsource.Source, error) {
	return s.connect(ctx, conn.WithDefaults(s.sql.Driver, s.sql.Port))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return resilience.BadRequest(eris.Wrap(err, "invalid request body"))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := resilience.KindOf(err)
	status := kind.HTTPStatus()
	log := zap.L().With(
		zap.String("path", r.URL.Path),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Warn("request rejected")
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
		"kind":    kind.String(),
	})
}
