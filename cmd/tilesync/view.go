package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/core"
	"pkt.systems/tilesync/internal/appconfig"
	"pkt.systems/tilesync/internal/eventbus"
	"pkt.systems/tilesync/internal/logx"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/internal/sched"
	"pkt.systems/tilesync/internal/transcript"
	"pkt.systems/tilesync/internal/wsclient"
	"pkt.systems/tilesync/schema"
)

func newViewCmd() *cobra.Command {
	var cfgPath string
	var document string
	var recordPath string
	var duration time.Duration
	var edit bool
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open a document and follow its session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if document != "" {
				cfg.Server.Document = document
			}
			if recordPath != "" {
				cfg.Record.Path = recordPath
			}
			doc, err := schema.NormalizeDocumentURL(cfg.Server.Document)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			logger := logx.WithSession(ctx, doc)
			ctx = logx.ContextWithSession(ctx, pslog.Ctx(ctx), doc)
			return runView(ctx, cfg, doc, edit, logger)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default ~/.tilesync/config.yaml)")
	cmd.Flags().StringVarP(&document, "document", "d", "", "document url (overrides server.document)")
	cmd.Flags().StringVar(&recordPath, "record", "", "record the session transcript to this file")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&edit, "edit", false, "request an editing session after load")
	return cmd
}

func runView(ctx context.Context, cfg appconfig.Config, doc string, edit bool, logger pslog.Logger) error {
	client, err := wsclient.Dial(ctx, wsclient.Options{
		URL:              cfg.Server.URL,
		Origin:           cfg.Server.Origin,
		HandshakeTimeout: time.Duration(cfg.Server.HandshakeTimeoutSeconds) * time.Second,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var sender core.Sender = client
	frames := client.Frames()
	if cfg.Record.Path != "" {
		rec, err := transcript.Create(cfg.Record.Path, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Warn("transcript close failed", "err", err)
			}
		}()
		sender = transcript.RecordingSender{Next: client, Recorder: rec}
		frames = teeFrames(ctx, frames, rec, logger)
		logger.Info("recording transcript", "path", cfg.Record.Path)
	}

	bus := eventbus.New(logger)
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	sess, err := newSession(ctx, cfg, sender, bus, sched.Timers{}, logger)
	if err != nil {
		return err
	}
	if err := sender.Send(ctx, protocol.Load(doc)); err != nil {
		return err
	}
	if edit {
		sess.engine.RequestSession(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		followEvents(runCtx, sess, events, logger)
	}()
	if interval := cfg.PrefetchInterval(); interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prefetchLoop(runCtx, sess.engine, interval, logger)
		}()
	}

	err = sess.engine.Run(runCtx, frames)
	cancel()
	wg.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err == nil {
		err = client.Err()
	}
	logger.Info("view finished", "err", err)
	return err
}

// followEvents logs every surfaced event and applies scroll requests to the
// viewport on the engine goroutine.
func followEvents(ctx context.Context, sess *session, events <-chan schema.Event, logger pslog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			logEvent(logger, ev)
			if ev.Type != schema.EventScrollTo {
				continue
			}
			scroll := ev.Scroll
			if err := sess.engine.Do(ctx, func() { sess.grid.ScrollTo(scroll) }); err != nil {
				return
			}
		}
	}
}

func prefetchLoop(ctx context.Context, engine *core.Engine, interval time.Duration, logger pslog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			requested := 0
			if err := engine.Do(ctx, func() { requested = engine.Prefetch(ctx) }); err != nil {
				return
			}
			if requested > 0 {
				logger.Trace("prefetch tick", "tiles", requested)
			}
		}
	}
}

func teeFrames(ctx context.Context, in <-chan []byte, rec *transcript.Recorder, logger pslog.Logger) <-chan []byte {
	out := make(chan []byte, cap(in))
	go func() {
		defer close(out)
		for frame := range in {
			if err := rec.Frame(frame); err != nil {
				logger.Warn("transcript frame not recorded", "err", err)
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
