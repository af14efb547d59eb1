package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/domain"
)

// CleanupStore is what the scheduled cleanup needs from persistence.
type CleanupStore interface {
	ListRoomsCreatedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Room, error)
	DeleteRoomCascade(ctx context.Context, id domain.RoomID) error
}

// Cleaner deletes rooms older than MaxAge on a cron schedule, evicting their
// live sessions through the same path an explicit owner deletion takes.
type Cleaner struct {
	Store  CleanupStore
	Orch   *Orchestrator
	MaxAge time.Duration

	cron *cron.Cron
}

func NewCleaner(store CleanupStore, orch *Orchestrator, maxAge time.Duration) *Cleaner {
	return &Cleaner{Store: store, Orch: orch, MaxAge: maxAge}
}

// Start schedules the job. spec is a standard 5-field cron expression,
// hourly by default.
func (c *Cleaner) Start(spec string) error {
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(spec, func() { c.RunOnce(context.Background()) }); err != nil {
		return err
	}
	c.cron.Start()
	log.Info().Str("module", "app.cleanup").Str("spec", spec).Dur("max_age", c.MaxAge).Msg("room cleanup scheduled")
	return nil
}

func (c *Cleaner) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

// RunOnce performs one sweep.
func (c *Cleaner) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-c.MaxAge)
	rooms, err := c.Store.ListRoomsCreatedBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Str("module", "app.cleanup").Msg("list old rooms")
		return
	}
	for _, room := range rooms {
		if err := c.Store.DeleteRoomCascade(ctx, room.ID); err != nil {
			log.Error().Err(err).Str("module", "app.cleanup").Str("room", string(room.ID)).Msg("delete old room")
			continue
		}
		c.Orch.EvictRoom(room.ID)
		log.Info().Str("module", "app.cleanup").Str("room", string(room.ID)).Time("created_at", room.CreatedAt).Msg("deleted stale room")
	}
}
