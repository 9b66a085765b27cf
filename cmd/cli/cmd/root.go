package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"pm2dash/internal/app/cli"
	"pm2dash/internal/config"
	"pm2dash/internal/utils/logger"
)

const closeTimeout = 10 * time.Second

var (
	success = color.New(color.FgGreen, color.Bold)
	warning = color.New(color.FgYellow)
	emph    = color.New(color.FgCyan, color.Bold)
)

// options - глобальные флаги одной команды
type options struct {
	cfgFile string
	debug   bool
}

// NewRootCmd собирает дерево команд; каждый вызов дает независимый экземпляр
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "pm2dash",
		Short: "pm2dash - управление учетными записями операторов",
		Long: `pm2dash управляет зашифрованным хранилищем учетных записей дашборда.

Команды работают с тем же файлом, что и сервер (DATA_DIR), и требуют
ENCRYPTION_KEY в окружении, в .env или в конфигурационном файле.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "конфигурационный файл (yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "включить отладочный вывод")

	root.AddCommand(newGenerateKeyCmd())
	root.AddCommand(newUserCmd(opts))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Ошибка:"), err)
		os.Exit(1)
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	if opts.cfgFile != "" {
		viper.SetConfigFile(opts.cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return config.Load()
}

// withApp открывает хранилище, выполняет fn и закрывает все за собой
func withApp(cmd *cobra.Command, opts *options, fn func(ctx context.Context, app *cli.App) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	level := "warn"
	if opts.debug {
		level = "debug"
	}
	log := logger.NewWithOptions(cfg.Env, logger.Options{Output: cmd.ErrOrStderr(), Level: level})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := cli.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Warn("close", slog.String("error", err.Error()))
		}
	}()

	return fn(ctx, app)
}
