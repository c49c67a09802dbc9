package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/caarlos0/env/v11"
	"github.com/glotchimo/obras/internal/bot"
	"github.com/joho/godotenv"
)

var VERSION = "dev"

type Conf struct {
	Debug       bool          `env:"DEBUG"`
	Token       string        `env:"DISCORD_TOKEN,required,notEmpty"`
	Intents     int           `env:"BOT_INTENTS" envDefault:"33283"`
	Prefix      string        `env:"COMMAND_PREFIX" envDefault:"!"`
	DataFile    string        `env:"DATA_FILE" envDefault:"bot_data.json"`
	DatabaseURL string        `env:"DATABASE_URL"`
	CacheURL    string        `env:"REDIS_URL"`
	FlowTimeout time.Duration `env:"FLOW_TIMEOUT" envDefault:"10m"`
	ShardID     int           `env:"SHARD_ID" envDefault:"0"`
	ShardCount  int           `env:"SHARD_COUNT" envDefault:"1"`
	PprofAddr   string        `env:"PPROF_ADDR"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	var conf Conf
	if err := env.Parse(&conf); err != nil {
		panic(err)
	}

	if conf.PprofAddr != "" {
		go func() {
			if err := http.ListenAndServe(conf.PprofAddr, nil); err != nil {
				slog.Error("pprof listener stopped", "addr", conf.PprofAddr, "error", err)
			}
		}()
	}

	bot, err := bot.NewBot(bot.Options{
		Debug:       conf.Debug,
		Token:       conf.Token,
		Intents:     conf.Intents,
		Prefix:      conf.Prefix,
		DataFile:    conf.DataFile,
		DatabaseURL: conf.DatabaseURL,
		CacheURL:    conf.CacheURL,
		FlowTimeout: conf.FlowTimeout,
		ShardID:     conf.ShardID,
		ShardCount:  conf.ShardCount,
	})
	if err != nil {
		panic(err)
	}
	defer bot.Close()

	slog.Info("obras started", "version", VERSION)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
