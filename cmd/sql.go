package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/risk-cli/internal/model"
	"github.com/sells-group/risk-cli/internal/pipeline"
	"github.com/sells-group/risk-cli/internal/sqlsource"
)

var (
	sqlFlagSet  batchFlags
	sqlQuery    string
	sqlNoDetect bool
	sqlConn     sqlsource.ConnectionConfig
)

var sqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Run a query against a source database and score the returned companies",
	Example: `  risk-cli sql --server db.internal --database crm --user risk \
    --query "SELECT cnpj, razao_social FROM fornecedores" -f xlsx -o fornecedores.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if sqlQuery == "" {
			return eris.New("--query is required")
		}
		if _, err := pipeline.ParseFormat(sqlFlagSet.format); err != nil {
			return err
		}
		opts, err := sqlFlagSet.params(cmd).options(cfg.Batch)
		if err != nil {
			return err
		}

		conn := connectionFromFlags(cmd)
		if err := conn.Validate(); err != nil {
			return err
		}

		env, err := initPipeline(ctx, "sql")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := runSQLBatch(ctx, env.Pipeline, sqlsource.Open, conn, sqlQuery, opts, !sqlNoDetect)
		if err != nil {
			return err
		}
		logReport(report)
		return writeOutput(report, sqlFlagSet.output, sqlFlagSet.format, cmd.OutOrStdout())
	},
}

func init() {
	fs := sqlCmd.Flags()
	fs.StringVarP(&sqlQuery, "query", "q", "", "SQL query returning the companies to score")
	fs.BoolVar(&sqlNoDetect, "no-auto-detect", false, "use --cnpj-col/--name-col instead of detecting columns")
	fs.StringVar(&sqlConn.Driver, "driver", "", "postgres or mysql (default from config)")
	fs.StringVar(&sqlConn.Server, "server", "", "database host")
	fs.IntVar(&sqlConn.Port, "port", 0, "database port (default per driver)")
	fs.StringVar(&sqlConn.Database, "database", "", "database name")
	fs.StringVar(&sqlConn.Username, "user", "", "database user")
	fs.StringVar(&sqlConn.Password, "password", "", "database password (prefer RISK_SQL_PASSWORD)")
	fs.BoolVar(&sqlConn.UseWindowsAuth, "windows-auth", false, "use integrated authentication")
	sqlFlagSet.register(sqlCmd)
	rootCmd.AddCommand(sqlCmd)
}

// connectionFromFlags overlays the set connection flags on the sql config.
func connectionFromFlags(cmd *cobra.Command) sqlsource.ConnectionConfig {
	conn := sqlsource.ConnectionConfig{
		Driver:         cfg.SQL.Driver,
		Server:         cfg.SQL.Server,
		Database:       cfg.SQL.Database,
		Username:       cfg.SQL.Username,
		Password:       cfg.SQL.Password,
		UseWindowsAuth: cfg.SQL.UseWindowsAuth,
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		conn.Driver = sqlConn.Driver
	}
	if flags.Changed("server") {
		conn.Server = sqlConn.Server
	}
	if flags.Changed("port") {
		conn.Port = sqlConn.Port
	}
	if flags.Changed("database") {
		conn.Database = sqlConn.Database
	}
	if flags.Changed("user") {
		conn.Username = sqlConn.Username
	}
	if flags.Changed("password") {
		conn.Password = sqlConn.Password
	}
	if flags.Changed("windows-auth") {
		conn.UseWindowsAuth = sqlConn.UseWindowsAuth
	}
	return conn.WithDefaults(cfg.SQL.Driver, cfg.SQL.Port)
}

// runSQLBatch queries the source, turns the rows into batch items and runs
// the batch. The report carries the query metadata.
func runSQLBatch(ctx context.Context, runner batchRunner, open sqlConnector, conn sqlsource.ConnectionConfig, query string, opts pipeline.Options, autoDetect bool) (*model.BatchReport, error) {
	src, err := open(ctx, conn)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	start := time.Now()
	res, err := src.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	zap.L().Info("sql query complete",
		zap.String("server", conn.Server),
		zap.String("database", conn.Database),
		zap.Int("rows", len(res.Rows)),
		zap.Int("columns", len(res.Columns)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	batch, err := sqlsource.PrepareBatch(query, res, opts.ColumnMapping, autoDetect)
	if err != nil {
		return nil, err
	}
	zap.L().Info("sql rows mapped",
		zap.String("cnpj_column", batch.Mapping.TaxIDColumn),
		zap.String("name_column", batch.Mapping.NameColumn),
		zap.Int("items", len(batch.Items)),
	)

	opts.ColumnMapping = batch.Mapping
	report := runner.Run(ctx, batch.Items, opts)
	report.SQL = &batch.Metadata
	return report, nil
}
