// dicee-bot is a headless WebSocket client that plays with one of the
// built-in strategies. Pointed at an existing room it takes a seat and
// waits for the host; with --bots it creates a room, fills it with
// server-side bots and starts the game itself, which makes a handy
// smoke test for a running server.
package main

import (
	"encoding/json"
	"fmt"
	rand "math/rand/v2"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/playdicee/dicee/internal/dicee"
	"github.com/playdicee/dicee/internal/game"
	"github.com/playdicee/dicee/internal/randutil"
	"github.com/playdicee/dicee/internal/room"
	"github.com/playdicee/dicee/internal/server"
	"github.com/playdicee/dicee/internal/strategy"
)

var CLI struct {
	Server   string `short:"s" long:"server" default:"ws://localhost:8080/ws" help:"Server WebSocket URL"`
	Room     string `short:"r" long:"room" help:"Room code to join; empty creates a new room"`
	Name     string `short:"n" long:"name" help:"Player name"`
	Strategy string `long:"strategy" default:"expected-value" help:"Decision strategy (random, greedy, expected-value)"`
	Bots     int    `short:"b" long:"bots" help:"When creating a room, add this many server bots and start"`
	Seed     int64  `long:"seed" help:"RNG seed for reproducible runs (0 uses the clock)"`
	LogLevel string `short:"l" long:"log-level" default:"info" help:"Log level"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logger := log.New(os.Stderr)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	seed := CLI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := randutil.New(seed)

	strat, err := strategy.New(CLI.Strategy, rng)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		ctx.Exit(1)
	}

	name := CLI.Name
	if name == "" {
		name = fmt.Sprintf("%s-%04d", CLI.Strategy, rng.IntN(10000))
	}

	bot := &Bot{
		playerID: name,
		name:     name,
		strategy: strat,
		profile:  strategy.DefaultProfile(CLI.Strategy),
		rng:      rng,
		logger:   logger.With("player", name, "strategy", CLI.Strategy),
		cells:    make(map[dicee.Category]int),
	}

	if err := bot.Run(CLI.Server, CLI.Room, CLI.Bots); err != nil {
		bot.logger.Error("Bot stopped", "error", err)
		ctx.Exit(1)
	}
}

// Bot tracks just enough room state to build a strategy context.
type Bot struct {
	conn     *websocket.Conn
	playerID string
	name     string
	strategy strategy.Strategy
	profile  strategy.Profile
	rng      *rand.Rand
	logger   *log.Logger

	roomCode string
	seated   int

	cells          map[dicee.Category]int
	opponents      map[string]int
	dice           *[5]int
	kept           [5]bool
	rollsRemaining int
	round          int
	myTurn         bool
}

// Run connects, joins or creates a room, and plays until game over.
func (b *Bot) Run(serverURL, roomCode string, addBots int) error {
	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", serverURL, err)
	}
	b.conn = conn
	defer func() { _ = conn.Close() }()

	b.opponents = make(map[string]int)

	if roomCode == "" {
		if err := b.send(server.MessageTypeCreateRoom, server.CreateRoomData{
			PlayerID: b.playerID, DisplayName: b.name,
		}); err != nil {
			return err
		}
	} else {
		b.roomCode = roomCode
		if err := b.send(server.MessageTypeJoinRoom, server.JoinRoomData{
			RoomCode: roomCode, PlayerID: b.playerID, DisplayName: b.name,
		}); err != nil {
			return err
		}
	}

	for {
		var msg server.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		done, err := b.handle(&msg, addBots)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (b *Bot) send(typ server.MessageType, data interface{}) error {
	msg, err := server.NewMessage(typ, data)
	if err != nil {
		return err
	}
	return b.conn.WriteJSON(msg)
}

func (b *Bot) handle(msg *server.Message, addBots int) (bool, error) {
	switch msg.Type {
	case server.MessageTypeRoomCreated:
		var data server.RoomCreatedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		b.roomCode = data.RoomCode
		b.logger.Info("Created room", "room", b.roomCode)
		for i := 0; i < addBots; i++ {
			if err := b.send(server.MessageTypeAddBot, server.AddBotData{Strategy: "greedy"}); err != nil {
				return false, err
			}
		}

	case server.MessageTypeSeatAssigned:
		var data room.SeatAssignedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		b.seated++
		b.logger.Info("Seat filled", "seat", data.SeatIndex, "player", data.PlayerID)
		// Creator with bots: start once everyone asked for is seated.
		if addBots > 0 && b.seated >= addBots+1 {
			if err := b.send(server.MessageTypeStartGame, nil); err != nil {
				return false, err
			}
		}

	case server.MessageTypeGameStarted, server.MessageTypeRoomState:
		var data room.RoomStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		b.applyState(data)
		if b.myTurn {
			return false, b.act()
		}

	case server.MessageTypeDiceRolled:
		var data room.DiceRolledData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		if data.PlayerID == b.playerID {
			dice := data.Dice
			b.dice = &dice
			b.rollsRemaining = data.RollsRemaining
			return false, b.act()
		}

	case server.MessageTypeDiceKept:
		var data room.DiceKeptData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		if data.PlayerID == b.playerID {
			b.kept = data.Kept
		}

	case server.MessageTypeCategoryScored:
		var data room.CategoryScoredData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		b.round = data.Round
		if data.PlayerID == b.playerID {
			b.cells[data.Category] = data.Score
		} else {
			b.opponents[data.PlayerID] += data.Score
		}
		b.resetTurn(data.NextPlayerID == b.playerID)
		if b.myTurn {
			return false, b.act()
		}

	case server.MessageTypeGameOver:
		var data room.GameOverData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		for _, s := range data.Scores {
			b.logger.Info("Final score", "player", s.PlayerID, "total", s.Totals.Grand, "dropped", s.Dropped)
		}
		if data.Winner == b.playerID {
			b.logger.Info("Won the game", "room", b.roomCode)
		}
		return true, nil

	case server.MessageTypeError:
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return false, err
		}
		if data.Code == string(room.CodeInternal) || data.Code == "not_found" {
			return false, fmt.Errorf("server error: %s: %s", data.Code, data.Message)
		}
		b.logger.Warn("Command rejected", "code", data.Code, "message", data.Message)
	}

	return false, nil
}

func (b *Bot) applyState(data room.RoomStateData) {
	b.round = data.Round
	for _, sc := range data.Scorecards {
		if sc.PlayerID == b.playerID {
			b.cells = sc.Cells
		} else {
			b.opponents[sc.PlayerID] = sc.Totals.Grand
		}
	}
	if data.Turn != nil && data.Turn.PlayerID == b.playerID {
		b.dice = data.Turn.Dice
		b.kept = data.Turn.Kept
		b.rollsRemaining = data.Turn.RollsRemaining
		b.myTurn = true
	} else {
		b.myTurn = false
	}
}

func (b *Bot) resetTurn(mine bool) {
	b.myTurn = mine
	if mine {
		b.dice = nil
		b.kept = [5]bool{}
		b.rollsRemaining = game.MaxRerolls
	}
}

// act makes one strategy decision and sends the matching commands.
func (b *Bot) act() error {
	time.Sleep(b.profile.ThinkDelay(b.rng))

	dec := b.strategy.Decide(b.context())
	switch dec.Action {
	case strategy.ActionScore:
		b.logger.Debug("Scoring", "category", dec.Category, "dice", b.dice)
		return b.send(server.MessageTypeScore, server.ScoreData{Category: dec.Category.String()})

	case strategy.ActionKeep:
		for die := 0; die < 5; die++ {
			if b.kept[die] != dec.Keep[die] {
				if err := b.send(server.MessageTypeToggleKeep, server.ToggleKeepData{Die: die}); err != nil {
					return err
				}
				b.kept[die] = dec.Keep[die]
			}
		}
		return b.send(server.MessageTypeRoll, nil)

	default:
		return b.send(server.MessageTypeRoll, nil)
	}
}

func (b *Bot) context() strategy.GameContext {
	sc := game.Scorecard{Cells: b.cells}
	totals := sc.Totals()

	ctx := strategy.GameContext{
		Dice:           b.dice,
		Kept:           b.kept,
		RollsRemaining: b.rollsRemaining,
		Available:      sc.Available(),
		UpperSubtotal:  totals.Upper,
		OwnTotal:       totals.Grand,
		Round:          b.round,
		FinalRound:     b.round >= game.NumRounds,
	}
	best := -1
	for _, total := range b.opponents {
		ctx.OpponentTotals = append(ctx.OpponentTotals, total)
		if total > best {
			best = total
		}
	}
	if best >= 0 {
		ctx.ScoreDiff = totals.Grand - best
	}
	return ctx
}
