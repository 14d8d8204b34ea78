package storage

import (
	"context"
	"errors"
	"strings"

	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

// Store is the persistence API used by the posting core.
//
// ListChannels returns channels ordered by id. GetChannel returns
// ErrNotFound for a missing id; any other error means the store itself
// was unreachable.
type Store interface {
	ListChannels(ctx context.Context) ([]Channel, error)
	GetChannel(ctx context.Context, id int64) (Channel, error)
	AppendPostLog(ctx context.Context, e PostLogEntry) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
