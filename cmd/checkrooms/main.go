package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roomfinder/internal/availability"
	"roomfinder/internal/client"
	"roomfinder/internal/export"
	"roomfinder/internal/model"
)

func main() {
	apiURL := flag.String("api", envOr("ROOMFINDER_API_URL", "http://localhost:8080"), "API base URL")
	apiKey := flag.String("key", os.Getenv("ROOMFINDER_API_KEY"), "API key sent as X-Api-Key")
	building := flag.String("building", "", "Building name (substring of room names)")
	date := flag.String("date", "", "Date YYYY-MM-DD (default today)")
	at := flag.String("time", "", "Time of day HH:MM")
	room := flag.String("room", "", "Show one room's free schedule instead of a building lookup")
	listBuildings := flag.Bool("buildings", false, "List known buildings and exit")
	interactive := flag.Bool("i", false, "Read building/date/time changes from stdin")
	xlsxPath := flag.String("xlsx", "", "Also write results to this .xlsx file")
	tz := flag.String("tz", "America/New_York", "Institutional timezone")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-query timeout")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", *tz).Msg("invalid timezone")
	}

	c := client.NewClient(*apiURL, *apiKey)
	c.UseRateLimit(5, 2)
	ctx := context.Background()

	switch {
	case *listBuildings:
		entries, err := c.Buildings(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("list buildings")
		}
		for _, e := range entries {
			fmt.Println(e.Label)
		}

	case *room != "":
		q, err := roomQuery(*room, *date, loc)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid room lookup")
		}
		weekday := q.Weekday
		slots, err := c.RoomAvailability(ctx, q)
		if err != nil {
			logger.Fatal().Err(err).Msg("room availability")
		}
		fmt.Printf("%s, %s\n", *room, weekday)
		if len(slots) == 0 {
			fmt.Println("  no free time")
		}
		for _, s := range slots {
			fmt.Printf("  %s - %s\n", client.FormatClock(s.FreeStart), client.FormatClock(s.FreeEnd))
		}
		if *xlsxPath != "" {
			writeXLSX(*xlsxPath, &logger, func(w io.Writer) error {
				return export.RoomSchedule(w, *room, weekday, slots)
			})
		}

	default:
		o := client.NewOrchestrator(c, printView, client.OrchestratorOptions{
			Location: loc,
			Timeout:  *timeout,
			Logger:   &logger,
		})

		if *building != "" {
			o.SetBuilding(*building)
		}
		day, err := parseDate(*date, loc)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -date")
		}
		o.SetDate(day)
		if *at != "" {
			t, err := model.ParseTimeOfDay(*at)
			if err != nil {
				logger.Fatal().Err(err).Msg("invalid -time")
			}
			o.SetTime(t)
		}

		if *interactive {
			runInteractive(o, loc, &logger)
		}
		o.Wait()

		if *xlsxPath != "" {
			v := o.View()
			writeXLSX(*xlsxPath, &logger, func(w io.Writer) error { return export.FreeRooms(w, v) })
		}
		o.Close()
	}
}

// runInteractive applies one selection change per line until EOF or "quit".
func runInteractive(o *client.Orchestrator, loc *time.Location, logger *zerolog.Logger) {
	fmt.Println(`commands: building <name> | date <YYYY-MM-DD> | time <HH:MM> | clear building|date|time | quit`)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "":
		case "quit", "exit":
			return
		case "building":
			o.SetBuilding(arg)
		case "date":
			day, err := parseDate(arg, loc)
			if err != nil {
				logger.Error().Err(err).Msg("invalid date")
				continue
			}
			o.SetDate(day)
		case "time":
			t, err := model.ParseTimeOfDay(arg)
			if err != nil {
				logger.Error().Err(err).Msg("invalid time")
				continue
			}
			o.SetTime(t)
		case "clear":
			switch arg {
			case "building":
				o.SetBuilding("")
			case "date":
				o.ClearDate()
			case "time":
				o.ClearTime()
			default:
				logger.Error().Str("field", arg).Msg("unknown field")
			}
		default:
			logger.Error().Str("command", cmd).Msg("unknown command")
		}
	}
}

func printView(v client.View) {
	switch {
	case v.Query == nil:
		fmt.Println("-- select a building, date and time")
	case v.Loading:
		fmt.Printf("-- searching %s on %s at %s ...\n", v.Query.Building, v.Query.Weekday, client.FormatClock(*v.Query.At))
	case v.Err != "":
		fmt.Printf("!! %s\n", v.Err)
	case len(v.Rows) == 0:
		fmt.Println("   no free rooms")
	default:
		for _, r := range v.Rows {
			fmt.Printf("   %-32s %8s - %-8s  (updated %s)\n", r.Interval.Room, r.Start, r.End, r.LastUpdated)
		}
	}
}

// roomQuery validates a -room lookup for the weekday of date in loc.
func roomQuery(room, date string, loc *time.Location) (availability.RoomQuery, error) {
	day, err := parseDate(date, loc)
	if err != nil {
		return availability.RoomQuery{}, fmt.Errorf("invalid -date: %w", err)
	}
	return availability.NewRoomQuery(room, string(model.WeekdayOf(day, loc)))
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}

func writeXLSX(path string, logger *zerolog.Logger, write func(io.Writer) error) {
	f, err := os.Create(path)
	if err != nil {
		logger.Fatal().Err(err).Msg("create xlsx")
	}
	defer f.Close()
	if err := write(f); err != nil {
		logger.Fatal().Err(err).Msg("write xlsx")
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
