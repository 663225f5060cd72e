package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"tero-session/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Store_And_List_Newest_First(t *testing.T) {
	req := require.New(t)
	repository := NewArchiveRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	for i := 1; i <= 3; i++ {
		err := repository.StoreFinished(ArchivedGame{
			GameType:   domain.GameTypeQuiz,
			GameKey:    fmt.Sprintf("game_%d", i),
			FinishedAt: at.Add(time.Duration(i) * time.Minute),
			Payload:    json.RawMessage(`{}`),
		})
		req.NoError(err)
	}

	games, _, err := repository.List(domain.GameTypeQuiz, nil)
	req.NoError(err)

	req.Len(games, 3)
	req.Equal("game_3", games[0].GameKey)
	req.Equal("game_1", games[2].GameKey)
}

func Test_List_Filters_By_Game_Type(t *testing.T) {
	req := require.New(t)
	repository := NewArchiveRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	req.NoError(repository.StoreFinished(ArchivedGame{
		GameType: domain.GameTypeQuiz, GameKey: "quiz_1", FinishedAt: at, Payload: json.RawMessage(`{}`),
	}))
	req.NoError(repository.StoreFinished(ArchivedGame{
		GameType: domain.GameTypeSpin, GameKey: "spin_1", FinishedAt: at, Payload: json.RawMessage(`{}`),
	}))

	games, _, err := repository.List(domain.GameTypeSpin, nil)
	req.NoError(err)

	req.Len(games, 1)
	req.Equal("spin_1", games[0].GameKey)
}

func Test_List_Pagination(t *testing.T) {
	req := require.New(t)
	limit := 4
	repository := NewArchiveRepository(openTestDB(t), slog.Default(), &limit)
	at := time.Now().UTC()

	for i := 1; i <= 10; i++ {
		err := repository.StoreFinished(ArchivedGame{
			GameType:   domain.GameTypeSpin,
			GameKey:    fmt.Sprintf("game_%d", i),
			FinishedAt: at.Add(time.Duration(i) * time.Minute),
			Payload:    json.RawMessage(`{}`),
		})
		req.NoError(err)
	}

	// --- PAGE 1 ---
	page1, cursor1, err := repository.List(domain.GameTypeSpin, nil)
	req.NoError(err)
	req.Len(page1, 4)
	req.Equal("game_10", page1[0].GameKey)
	req.Equal("game_7", page1[3].GameKey)
	req.NotEmpty(cursor1)

	// --- PAGE 2 ---
	page2, cursor2, err := repository.List(domain.GameTypeSpin, cursor1)
	req.NoError(err)
	req.Len(page2, 4)
	req.Equal("game_6", page2[0].GameKey)
	req.Equal("game_3", page2[3].GameKey)
	req.NotEmpty(cursor2)

	// --- PAGE 3 (end) ---
	page3, _, err := repository.List(domain.GameTypeSpin, cursor2)
	req.NoError(err)
	req.Len(page3, 2)
	req.Equal("game_2", page3[0].GameKey)
	req.Equal("game_1", page3[1].GameKey)
}

func Test_Payload_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewArchiveRepository(openTestDB(t), slog.Default(), nil)

	session := domain.QuizSession{Name: "pub quiz", Questions: []string{"q1", "q2"}}
	payload, err := json.Marshal(session)
	req.NoError(err)

	req.NoError(repository.StoreFinished(ArchivedGame{
		GameType:   domain.GameTypeQuiz,
		GameKey:    "game_1",
		FinishedAt: time.Now().UTC(),
		Payload:    payload,
	}))

	games, _, err := repository.List(domain.GameTypeQuiz, nil)
	req.NoError(err)
	req.Len(games, 1)

	var restored domain.QuizSession
	req.NoError(json.Unmarshal(games[0].Payload, &restored))
	req.Equal(session, restored)
}
