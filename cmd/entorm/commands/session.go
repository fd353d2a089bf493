package commands

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/entorm/am"
	"github.com/teranos/entorm/db"
	"github.com/teranos/entorm/entity"
	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/schemafile"
	"github.com/teranos/entorm/storage"
)

var (
	configPath   string
	schemaPaths  []string
	logVerbosity int
)

// AddGlobalFlags registers the flags every command understands.
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: ./entorm.toml searched upwards, then ~/.entorm/entorm.toml)")
	flags.StringSliceVar(&schemaPaths, "schema", nil, "Schema declaration files, replacing schema.paths (repeatable)")
	flags.Bool("json", false, "Output JSON")
	flags.CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
}

func loadConfig() (*am.Config, error) {
	if configPath != "" {
		return am.LoadFromFile(configPath)
	}
	return am.Load()
}

// InitLogging sets up the global logger from the config's log section. The
// larger of the flag count and log.verbosity wins.
func InitLogging(verbosity int) error {
	jsonOutput := false
	if cfg, err := loadConfig(); err == nil {
		jsonOutput = cfg.Log.JSON
		if cfg.Log.Verbosity > verbosity {
			verbosity = cfg.Log.Verbosity
		}
	}
	if err := logger.Initialize(jsonOutput, verbosity); err != nil {
		return err
	}
	logVerbosity = verbosity
	logger.Logger.Debugw("Logger ready", "verbosity", logger.LevelName(verbosity))
	return nil
}

// CommandContext tags ctx with a request id and the command name so every
// statement logged on the command's behalf can be grouped.
func CommandContext(ctx context.Context, cmd *cobra.Command) context.Context {
	ctx = logger.WithRequestID(ctx, uuid.NewString())
	return logger.WithComponent(ctx, "cli."+cmd.Name())
}

// session is an open database plus the registry built over it.
type session struct {
	cfg  *am.Config
	conn *sql.DB
	reg  *entity.Registry
}

// openSession loads the config and schemas, then opens the database.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	paths := schemaPaths
	if len(paths) == 0 {
		paths = cfg.Schema.Paths
	}
	return newSession(cfg, paths, logger.ComponentLogger("entorm"))
}

func newSession(cfg *am.Config, paths []string, log *zap.SugaredLogger) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if len(paths) == 0 {
		return nil, errors.WithHint(errors.New("no schema files configured"),
			"pass --schema FILE or set schema.paths in entorm.toml")
	}

	schemas, err := schemafile.Load(paths...)
	if err != nil {
		return nil, err
	}

	conn, dialect, err := db.OpenConfig(cfg.Database, log.Named("db"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	exec := storage.NewSQLExecutor(conn, dialect, log.Named("storage"))
	exec.LogArgs(logger.ShouldLogTrace(logVerbosity))
	reg, err := entity.NewRegistry(exec, schemas,
		entity.WithLogger(log.Named("entity")),
		entity.WithArraySeparator(cfg.Entity.ArraySeparator),
		entity.WithDefaultPageSize(cfg.Entity.DefaultPageSize),
	)
	if err != nil {
		conn.Close()
		return nil, err
	}

	log.Debugw("Session opened", "driver", cfg.Database.Driver, "types", reg.Types())
	return &session{cfg: cfg, conn: conn, reg: reg}, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}
