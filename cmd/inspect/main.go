// Command inspect dumps the finished-game archive of a running or stopped
// instance. Opens the database read-only so it can run next to the server.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"

	"tero-session/domain"
	"tero-session/repositories"
)

func main() {
	dbPath := flag.String("db", "/tmp/tero-session", "Path to badger DB")
	gameType := flag.String("type", "spin", "Game type to list (spin or quiz)")
	cursor := flag.String("cursor", "", "Cursor returned by a previous page")
	limit := flag.Int("limit", 50, "Maximum number of games per page")
	stats := flag.Bool("stats", false, "Show process resource usage")
	flag.Parse()

	parsed, err := domain.ParseGameType(*gameType)
	if err != nil {
		log.Fatalf("Unknown game type %q", *gameType)
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repository := repositories.NewArchiveRepository(db, slog.Default(), limit)

	var from *string
	if *cursor != "" {
		from = cursor
	}
	games, next, err := repository.List(parsed, from)
	if err != nil {
		log.Fatal(err)
	}

	header := fmt.Sprintf(" %d finished %s game(s) ", len(games), parsed)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Finished At", "Game Key", "Payload"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, game := range games {
		detail := string(game.Payload)
		if len(detail) > 80 {
			detail = detail[:80] + "..."
		}
		table.Append([]string{
			game.FinishedAt.Format("2006-01-02 15:04:05"),
			game.GameKey,
			detail,
		})
	}
	table.Render()

	if next != nil && *next != "" && len(games) == *limit {
		fmt.Printf("Next page: -cursor %s\n", *next)
	}

	if *stats {
		printStats()
	}
}

func printStats() {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Fatal("Error while retrieving process: ", err)
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		log.Fatal("Error while finding process cpu usage: ", err)
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		log.Fatal("Error while finding process ram usage: ", err)
	}
	fmt.Printf("cpu=%.2f%% ram=%.2f%%\n", cpu, ram)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
