package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/reclip/internal/app"
	"go.klb.dev/reclip/internal/cache"
	"go.klb.dev/reclip/internal/clip"
	"go.klb.dev/reclip/internal/control"
	"go.klb.dev/reclip/internal/detect"
	"go.klb.dev/reclip/internal/history"
	"go.klb.dev/reclip/internal/hotkey"
	"go.klb.dev/reclip/internal/ipc"
	"go.klb.dev/reclip/internal/processor"
	"go.klb.dev/reclip/internal/sampler"
	"go.klb.dev/reclip/internal/sound"
	"go.klb.dev/reclip/internal/task"
	"go.klb.dev/reclip/internal/template"
	"go.klb.dev/reclip/internal/worker"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the clipboard daemon",
		Long: `Starts the reclip daemon: clipboard monitor, global hotkey, request worker
and the control socket used by the other sub-commands.

Copy the same text twice within --repeat-threshold to send it through the
selected template. The model's answer replaces the clipboard contents.

Precedence (lowest → highest): defaults → config file → RECLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runDaemon(v) },
	}

	f := cmd.Flags()
	f.String("templates-dir", defaultTemplatesDir(), "directory of .json/.toml templates")
	f.String("template", "", "template to select at startup (default: last used)")
	f.String("hotkey", hotkey.DefaultCombo, "global key combination that toggles the window")
	f.Duration("repeat-threshold", detect.DefaultThreshold, "max spacing of two copies counted as a double copy")
	f.Duration("min-gap", detect.DefaultMinGap, "spacing below which two copies are one copy reported twice")
	f.String("sampler", string(sampler.StrategyEvent), "clipboard sampling strategy: event|poll")
	f.Duration("poll-interval", sampler.DefaultPollInterval, "interval for the poll sampler")
	f.Duration("tick", app.DefaultTick, "event loop tick")
	f.Int("max-per-tick", app.DefaultMaxPerTick, "events handled per tick")
	f.Duration("echo-ttl", detect.DefaultEchoTTL, "how long a result write is awaited as a self-echo")
	f.Duration("request-timeout", worker.DefaultTimeout, "model request deadline (0 = none)")
	f.String("data-dir", defaultDataDir(), "directory for history and cache")
	f.Bool("cache", false, "reuse earlier answers for the same template and input")
	f.Duration("cache-ttl", cache.DefaultTTL, "response cache lifetime")
	f.Bool("no-sound", false, "disable request chimes")
	f.Bool("no-hotkey", false, "disable the global hotkey")
	f.String("openai-api-key", "", "OpenAI API key")
	f.String("openai-base-url", "", "OpenAI-compatible base URL")
	f.String("gemini-api-key", "", "Gemini API key")
	f.String("anthropic-api-key", "", "Anthropic API key")
	addSocketFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strategy, err := sampler.ParseStrategy(v.GetString("sampler"))
	if err != nil {
		return err
	}

	tmpls, err := template.Load(v.GetString("templates-dir"))
	if err != nil {
		return err
	}
	if tmpls.Len() == 0 {
		slog.Warn("no templates found; add .json or .toml files", "dir", v.GetString("templates-dir"))
	}

	dataDir := v.GetString("data-dir")
	store, err := history.OpenStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ring := history.NewRing(0)
	recent, err := store.Recent(ctx, history.DefaultCapacity)
	if err != nil {
		slog.Warn("history not restored", "err", err)
	}
	ring.Load(recent)

	selected := v.GetString("template")
	if selected == "" {
		selected, _ = store.Setting(ctx, history.SettingLastTemplate)
	}

	providers := configuredProviders(v)
	if len(providers) == 0 {
		slog.Warn("no model provider configured; set an API key")
	}
	router := processor.NewRouter(providers...)
	var proc processor.Processor = router
	if c, err := openCache(v); err != nil {
		slog.Warn("response cache disabled", "err", err)
	} else if c != nil {
		defer c.Close()
		proc = c.Wrap(proc)
	}

	timeout := v.GetDuration("request-timeout")
	if timeout == 0 {
		timeout = -1
	}
	queue := task.NewQueue()
	w := worker.New(proc, queue, timeout)

	backend := clip.New()
	defer backend.Close()

	sup := detect.NewSuppressor(v.GetDuration("echo-ttl"), nil)
	smp := sampler.New(backend, sampler.Config{
		Strategy:     strategy,
		PollInterval: v.GetDuration("poll-interval"),
	})
	det := detect.New(detect.Config{
		MinGap:     v.GetDuration("min-gap"),
		Threshold:  v.GetDuration("repeat-threshold"),
		Suppressor: sup,
		Probe:      smp.ReadImage,
	})

	var player sound.Player = sound.Nop{}
	if !v.GetBool("no-sound") {
		if sp, err := sound.NewSpeaker(); err != nil {
			slog.Warn("sound disabled", "err", err)
		} else {
			player = sp
		}
	}
	defer player.Close()

	a := app.New(app.Deps{
		View:       app.NewConsoleView(os.Stdout),
		Queue:      queue,
		Worker:     w,
		Templates:  tmpls,
		History:    ring,
		Store:      store,
		Clipboard:  backend,
		Suppressor: sup,
		Sound:      player,
	}, app.Config{
		Tick:       v.GetDuration("tick"),
		MaxPerTick: v.GetInt("max-per-tick"),
	}, selected)

	if !v.GetBool("no-hotkey") {
		hk, err := hotkey.New(v.GetString("hotkey"), func() { queue.Post(task.Toggle()) })
		if err != nil {
			return fmt.Errorf("hotkey: %w", err)
		}
		hk.Start()
		defer hk.Stop()
	}

	socket := v.GetString("socket")
	if l, err := ipc.Listen(socket); err != nil {
		slog.Warn("control socket unavailable", "err", err)
	} else {
		srv := control.NewServer(control.NewService(a, socket))
		go func() {
			if err := control.Serve(ctx, srv, l); err != nil {
				slog.Error("control server stopped", "err", err)
			}
		}()
	}

	slog.Info("reclip starting",
		"version", Version,
		"backend", backend.Name(),
		"sampler", strategy,
		"templates", tmpls.Len(),
		"providers", router.Providers(),
		"template", a.Status().Template,
		"history", ring.Len(),
	)

	go app.NewMonitor(smp, det, queue).Run(ctx)

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitShutdown):
		slog.Warn("exiting with a request still in flight")
	}
	return nil
}

// configuredProviders returns a provider for every API key that is set. The
// vendors' own env vars are honoured when the reclip key is unset.
func configuredProviders(v *viper.Viper) []processor.Provider {
	key := func(name, env string) string {
		if k := v.GetString(name); k != "" {
			return k
		}
		return os.Getenv(env)
	}

	var ps []processor.Provider
	if k, url := key("openai-api-key", "OPENAI_API_KEY"), v.GetString("openai-base-url"); k != "" || url != "" {
		ps = append(ps, processor.NewOpenAI(k, url))
	}
	if k := key("gemini-api-key", "GEMINI_API_KEY"); k != "" {
		ps = append(ps, processor.NewGemini(k, "", nil))
	}
	if k := key("anthropic-api-key", "ANTHROPIC_API_KEY"); k != "" {
		ps = append(ps, processor.NewClaude(k, "", nil))
	}
	return ps
}

// openCache opens the response cache when --cache is set. It returns nil
// when caching is off.
func openCache(v *viper.Viper) (*cache.Cache, error) {
	if !v.GetBool("cache") {
		return nil, nil
	}
	c, err := cache.Open(filepath.Join(v.GetString("data-dir"), "cache"), v.GetDuration("cache-ttl"))
	if err != nil {
		return nil, err
	}
	slog.Info("response cache enabled; repeated requests reuse earlier answers", "ttl", v.GetDuration("cache-ttl"))
	return c, nil
}

// waitShutdown bounds how long in-flight work may delay exit.
const waitShutdown = 3 * time.Second
