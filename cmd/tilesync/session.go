package main

import (
	"context"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/tilesync/core"
	"pkt.systems/tilesync/internal/appconfig"
	"pkt.systems/tilesync/internal/coords"
	"pkt.systems/tilesync/internal/sched"
	"pkt.systems/tilesync/internal/viewport"
	"pkt.systems/tilesync/schema"
)

// session wires an engine to a headless grid viewport.
type session struct {
	engine *core.Engine
	grid   *viewport.Grid
}

func newSession(ctx context.Context, cfg appconfig.Config, sender core.Sender, sink core.EventSink, scheduler sched.Scheduler, logger pslog.Logger) (*session, error) {
	engineCfg, err := schema.NormalizeEngineConfig(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	geom := coords.New(engineCfg.TileSize, engineCfg.TileTwips, engineCfg.ReferenceZoom, nil)
	grid := viewport.New(geom, viewport.Options{
		Width:   cfg.Viewport.Width,
		Height:  cfg.Viewport.Height,
		Zoom:    cfg.Viewport.Zoom,
		MinZoom: cfg.Viewport.MinZoom,
		MaxZoom: cfg.Viewport.MaxZoom,
	}, logger)
	engine, err := core.New(engineCfg, core.EngineDeps{
		Viewport:  grid,
		Sender:    sender,
		EventSink: sink,
		Scheduler: scheduler,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	grid.Attach(ctx, engine)
	return &session{engine: engine, grid: grid}, nil
}

// logEvent writes one surfaced event at a level matching its weight.
func logEvent(logger pslog.Logger, ev schema.Event) {
	switch ev.Type {
	case schema.EventError:
		logger.Warn("event", "type", string(ev.Type), "cmd", ev.Error.Command, "kind", ev.Error.Kind, "message", ev.Error.Message)
	case schema.EventPermission:
		logger.Info("event", "type", string(ev.Type), "permission", string(ev.Permission.Permission))
	case schema.EventPartsUpdated:
		logger.Info("event", "type", string(ev.Type), "parts", ev.Parts.Parts, "current", ev.Parts.CurrentPart, "names", ev.Parts.Names)
	case schema.EventPageChanged:
		logger.Info("event", "type", string(ev.Type), "page", ev.Page.Page, "pages", ev.Page.Pages)
	case schema.EventPartChanged, schema.EventPartRendered:
		logger.Info("event", "type", string(ev.Type), "part", ev.Part.Part)
	case schema.EventScrollTo:
		logger.Debug("event", "type", string(ev.Type), "x", ev.Scroll.X, "y", ev.Scroll.Y)
	case schema.EventCommandState:
		logger.Debug("event", "type", string(ev.Type), "command", ev.State.Command, "state", ev.State.State)
	case schema.EventSearchFound, schema.EventSearchNotFound:
		logger.Info("event", "type", string(ev.Type), "phrase", ev.Search.Phrase)
	case schema.EventIndicator:
		logger.Debug("event", "type", string(ev.Type), "status", string(ev.Indicator.Status), "value", ev.Indicator.Value)
	case schema.EventTilePreview:
		logger.Debug("event", "type", string(ev.Type), "id", ev.Preview.ID, "format", ev.Preview.Image.Format)
	default:
		logger.Debug("event", "type", string(ev.Type))
	}
}
