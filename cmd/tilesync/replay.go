package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/internal/appconfig"
	"pkt.systems/tilesync/internal/protocol"
	"pkt.systems/tilesync/internal/sched"
	"pkt.systems/tilesync/internal/transcript"
	"pkt.systems/tilesync/schema"
)

// settleDelay lets pending timers fire after the last recorded frame.
const settleDelay = time.Second

func newReplayCmd() *cobra.Command {
	var cfgPath string
	var dump bool
	var snapshotPath string
	var snapshotWidth int
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Feed a recorded transcript through the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			entries, err := transcript.ReadFile(ctx, args[0])
			if err != nil {
				return err
			}
			logger := pslog.Ctx(ctx).With("transcript", args[0])
			result, err := replay(ctx, cfg, entries, logger)
			if err != nil {
				return err
			}
			if dump {
				if err := dumpState(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			if snapshotPath != "" {
				if err := writeSnapshot(snapshotPath, snapshotWidth, result.session.grid, result.session.engine.Snapshot()); err != nil {
					return err
				}
				logger.Info("snapshot written", "path", snapshotPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default ~/.tilesync/config.yaml)")
	cmd.Flags().BoolVar(&dump, "dump", false, "print the final session state")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "write the loaded tiles of the viewport to this PNG")
	cmd.Flags().IntVar(&snapshotWidth, "snapshot-width", 0, "scale the snapshot to this width in pixels")
	return cmd
}

type replayResult struct {
	session  *session
	inbound  int
	recorded int
	sent     []string
	events   []schema.Event
}

// collectSender keeps the engine's outbound requests instead of sending them.
type collectSender struct {
	sent []string
}

func (s *collectSender) Send(_ context.Context, req protocol.Request) error {
	s.sent = append(s.sent, req.Text)
	return nil
}

// replaySink logs events and applies scroll requests directly; replay runs
// on a single goroutine.
type replaySink struct {
	log    pslog.Logger
	sess   *session
	events []schema.Event
}

func (s *replaySink) OnEvent(ev schema.Event) {
	s.events = append(s.events, ev)
	logEvent(s.log, ev)
	if ev.Type == schema.EventScrollTo && s.sess != nil {
		s.sess.grid.ScrollTo(ev.Scroll)
	}
}

func replay(ctx context.Context, cfg appconfig.Config, entries []transcript.Entry, logger pslog.Logger) (replayResult, error) {
	clock := &sched.Manual{}
	sender := &collectSender{}
	sink := &replaySink{log: logger}
	sess, err := newSession(ctx, cfg, sender, sink, clock, logger)
	if err != nil {
		return replayResult{}, err
	}
	sink.sess = sess
	sess.engine.Start(ctx)
	defer sess.engine.Close()

	res := replayResult{session: sess}
	var elapsed time.Duration
	for _, entry := range entries {
		if ctx.Err() != nil {
			return replayResult{}, ctx.Err()
		}
		if offset := entry.Offset(); offset > elapsed {
			clock.Advance(offset - elapsed)
			sess.engine.Flush()
			elapsed = offset
		}
		switch entry.Dir {
		case transcript.Inbound:
			sess.engine.HandleFrame(ctx, entry.Frame())
			res.inbound++
		case transcript.Outbound:
			res.recorded++
		}
	}
	clock.Advance(settleDelay)
	sess.engine.Flush()
	res.sent = sender.sent
	res.events = sink.events
	logger.Info("replay finished", "frames", res.inbound, "recorded_requests", res.recorded, "requests", len(res.sent), "events", len(res.events))
	return res, nil
}

func dumpState(w io.Writer, res replayResult) error {
	snap := res.session.engine.Snapshot()
	for i := range snap.Slots {
		if snap.Slots[i].Image != nil {
			img := *snap.Slots[i].Image
			img.Data = nil
			snap.Slots[i].Image = &img
		}
	}
	opts := litter.Options{
		HidePrivateFields: true,
		Compact:           false,
		StripPackageNames: true,
	}
	_, err := fmt.Fprintln(w, opts.Sdump(struct {
		Frames   int
		Requests []string
		Events   int
		State    any
	}{
		Frames:   res.inbound,
		Requests: res.sent,
		Events:   len(res.events),
		State:    snap,
	}))
	return err
}
