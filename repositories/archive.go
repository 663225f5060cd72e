//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"tero-session/domain"
)

type IArchiveRepository interface {
	StoreFinished(game ArchivedGame) error
	List(gameType domain.GameType, cursor *string) ([]ArchivedGame, *string, error)
}

// ArchiveRepository keeps finished games in BadgerDB for operators and
// post-mortem queries. This is an audit trail, not session durability:
// live sessions never touch disk.
type ArchiveRepository struct {
	db    *badger.DB
	log   *slog.Logger
	limit *int
}

func NewArchiveRepository(db *badger.DB, log *slog.Logger, limit *int) ArchiveRepository {
	return ArchiveRepository{db: db, log: log, limit: limit}
}

type ArchivedGame struct {
	GameType   domain.GameType `json:"game_type"`
	GameKey    string          `json:"game_key"`
	FinishedAt time.Time       `json:"finished_at"`
	Payload    json.RawMessage `json:"payload"`
}

// StoreFinished persists a finished game.
// The key is formatted as "game:{type}:{timestamp_padded}:{game_key}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep the game key as a collision disconnector if two games finish
//     at the same nanosecond.
func (r ArchiveRepository) StoreFinished(game ArchivedGame) error {
	key := fmt.Sprintf("game:%s:%019d:%s",
		game.GameType,
		game.FinishedAt.UnixNano(),
		game.GameKey,
	)
	bytes, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// List retrieves finished games of one type using a prefix scan, newest
// first thanks to the padded timestamp. It stops once the configured
// limit is reached and returns a cursor for the next page.
func (r ArchiveRepository) List(gameType domain.GameType, cursor *string) ([]ArchivedGame, *string, error) {
	var raw [][]byte
	var lastKey string

	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("game:%s:", gameType)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limit != nil && len(raw) == *r.limit {
				r.log.Debug(fmt.Sprintf("Maximum of %d archived games reached", *r.limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	games := make([]ArchivedGame, 0, len(raw))
	for _, b := range raw {
		var game ArchivedGame
		if err = json.Unmarshal(b, &game); err != nil {
			return nil, nil, err
		}
		games = append(games, game)
	}
	return games, &lastKey, nil
}
