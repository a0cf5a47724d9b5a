package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dkeye/Jam/internal/client"
	"github.com/dkeye/Jam/internal/config"
	"github.com/dkeye/Jam/internal/protocol"
)

const help = `commands:
  /create [name]   create a room and join it
  /join <roomId>   join a room
  /leave           leave the current room
  /rooms           list public rooms
  /p <pattern>     set your layer
  /tempo <bpm>     change the room tempo
  /key <key>       change the room key
  /mix             print the merged pattern
  /play            send the merged pattern to the player
  /ping            ping the server
  /quit            exit
anything else is sent as chat`

// printPlayer stands in for the audio engine.
type printPlayer struct{}

func (printPlayer) Play(pattern string) error {
	fmt.Printf("♪ %s\n", pattern)
	return nil
}

func runSession(ctx context.Context, cfg *config.ClientConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := client.New(client.Options{
		URL:               cfg.URL,
		Username:          cfg.Name,
		ReconnectDelay:    cfg.ReconnectDelay,
		ReconnectAttempts: cfg.ReconnectAttempts,
		Player:            printPlayer{},
		OnReconnectAttempt: func(n int) {
			fmt.Printf("* reconnecting (%d/%d)\n", n, cfg.ReconnectAttempts)
		},
		OnReconnected: func() { fmt.Println("* reconnected, rejoin with /join") },
		OnDisconnect: func(err error) {
			fmt.Printf("* %v\n", err)
			cancel()
		},
	})
	render(s)

	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Close()
	fmt.Printf("connected as %s (%s). /help for commands\n", cfg.Name, s.UserID())

	if cfg.Room != "" {
		if err := s.JoinRoom(cfg.Room); err != nil {
			return err
		}
	}

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := execute(s, strings.TrimSpace(line))
			if err != nil {
				fmt.Printf("! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func execute(s *client.Session, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, s.SendChat(line)
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Println(help)
	case "/create":
		return false, s.CreateRoom(protocol.RoomConfig{Name: arg})
	case "/join":
		if arg == "" {
			return false, fmt.Errorf("usage: /join <roomId>")
		}
		return false, s.JoinRoom(arg)
	case "/leave":
		return false, s.LeaveRoom()
	case "/rooms":
		return false, s.ListRooms()
	case "/p":
		return false, s.UpdatePattern(arg)
	case "/tempo":
		bpm, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return false, fmt.Errorf("bad tempo %q", arg)
		}
		return false, s.UpdateRoomState(protocol.StateUpdates{Tempo: &bpm})
	case "/key":
		return false, s.UpdateRoomState(protocol.StateUpdates{Key: &arg})
	case "/mix":
		fmt.Println(s.MergedPattern())
	case "/play":
		return false, s.Play()
	case "/ping":
		return false, s.Ping()
	case "/quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %s", cmd)
	}
	return false, nil
}

// render prints server events; it only reads them.
func render(s *client.Session) {
	s.On(protocol.TypeRoomJoined, func(ev client.Event) {
		m := ev.Message.(protocol.RoomJoined)
		fmt.Printf("* joined %s (%s), %d here, %.0f bpm\n", m.Room.Name, m.RoomID, len(m.Participants), m.State.Tempo)
		for _, p := range s.Room().Participants {
			fmt.Printf("  [%s] %s\n", p.Color, p.Username)
		}
	})
	s.On(protocol.TypeUserJoined, func(ev client.Event) {
		fmt.Printf("* %s joined\n", ev.Message.(protocol.UserJoined).User.Username)
	})
	s.On(protocol.TypeUserLeft, func(ev client.Event) {
		m := ev.Message.(protocol.UserLeft)
		fmt.Printf("* %s left\n", m.Username)
	})
	s.On(protocol.TypePatternUpdate, func(ev client.Event) {
		m := ev.Message.(protocol.PatternUpdate)
		fmt.Printf("~ %s: %s\n", m.Username, m.Pattern)
	})
	s.On(protocol.TypeChat, func(ev client.Event) {
		m := ev.Message.(protocol.Chat)
		fmt.Printf("<%s> %s\n", m.Username, m.Message)
	})
	s.On(protocol.TypeRoomState, func(ev client.Event) {
		st := ev.Message.(protocol.RoomState).State
		fmt.Printf("* room: %.0f bpm, key %s, %s\n", st.Tempo, st.Key, st.Genre)
	})
	s.On(protocol.TypeRoomList, func(ev client.Event) {
		printRooms(ev.Message.(protocol.RoomList).Rooms)
	})
	s.On(protocol.TypeError, func(ev client.Event) {
		fmt.Printf("! %s\n", ev.Message.(protocol.Error).Message)
	})
	s.On(protocol.TypePong, func(client.Event) { fmt.Println("* pong") })
}
