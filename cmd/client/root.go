package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/Jam/internal/client"
	"github.com/dkeye/Jam/internal/config"
	"github.com/dkeye/Jam/internal/domain"
)

var rootCmd = &cobra.Command{
	Use:   "jam",
	Short: "jam is a terminal client for collaborative pattern rooms.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSession(cmd.Context(), cfg)
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List public rooms and exit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return listRooms(cmd.Context(), cfg)
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("url", "ws://localhost:8080/api/ws", "server websocket url")
	f.String("name", "Anonymous", "display name")
	f.String("log_level", "warn", "log level")
	f.Duration("reconnect_delay", client.DefaultReconnectDelay, "delay before each reconnect attempt")
	f.Int("reconnect_attempts", client.DefaultReconnectAttempts, "reconnect attempts before giving up")
	rootCmd.Flags().String("room", "", "room id to join on start")
	rootCmd.AddCommand(roomsCmd)
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.ClientConfig, error) {
	cfg, err := config.LoadClient(cmd.Flags())
	if err != nil {
		return nil, err
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

// restURL maps ws://host/api/ws to http://host/api/<path>.
func restURL(wsURL, path string) string {
	u := strings.Replace(wsURL, "ws", "http", 1)
	return strings.TrimSuffix(u, "/ws") + "/" + path
}

func listRooms(ctx context.Context, cfg *config.ClientConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, restURL(cfg.URL, "rooms"), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Rooms []domain.RoomSummary `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode rooms: %w", err)
	}
	printRooms(body.Rooms)
	return nil
}

func printRooms(rooms []domain.RoomSummary) {
	if len(rooms) == 0 {
		fmt.Println("no public rooms")
		return
	}
	for _, r := range rooms {
		fmt.Printf("%s  %-20s %3.0f bpm  %d/%d  %s\n", r.ID, r.Name, r.Tempo, r.ParticipantCount, r.MaxUsers, r.Genre)
	}
}
