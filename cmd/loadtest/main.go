// Command loadtest drives N websocket bots against a running server,
// mirrors the event stream into per-bot timelines and prints a summary
// table of what each bot observed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/gateway"
	"chat-broker/projection"
)

type Config struct {
	ServerURL string        `envconfig:"LOADTEST_SERVER_URL" default:"ws://localhost:8080/ws"`
	Bots      int           `envconfig:"LOADTEST_BOTS" default:"5"`
	Messages  int           `envconfig:"LOADTEST_MESSAGES" default:"10"`
	Interval  time.Duration `envconfig:"LOADTEST_INTERVAL" default:"100ms"`
	Duration  time.Duration `envconfig:"LOADTEST_DURATION" default:"15s"`
	Colours   bool          `envconfig:"LOADTEST_COLOURS" default:"true"`
}

type botReport struct {
	name     string
	sent     int
	received int
	errors   int
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}

	header := fmt.Sprintf("  ====== Load test: %d bots -> %s ======", cfg.Bots, cfg.ServerURL)
	if cfg.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	reports := make([]*botReport, cfg.Bots)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Bots; i++ {
		reports[i] = &botReport{name: fmt.Sprintf("bot-%02d", i)}
		wg.Add(1)
		go func(r *botReport) {
			defer wg.Done()
			if err := runBot(ctx, cfg, r); err != nil {
				r.errors++
				log.Printf("%s: %v", r.name, err)
			}
		}(reports[i])
	}
	wg.Wait()

	printSummary(reports)
}

// runBot joins, posts into the general room at the configured rate and
// feeds everything it receives into a timeline projection.
func runBot(ctx context.Context, cfg Config, r *botReport) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	timeline := projection.NewTimeline(r.name)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			r.received++
			if e, ok := decodeEvent(raw); ok {
				_ = timeline.Consume(ctx, e)
			}
		}
	}()

	if err := send(conn, gateway.OpJoin, gateway.JoinRequest{Username: r.name}); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for i := 0; i < cfg.Messages; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return fmt.Errorf("connection closed early")
		case <-ticker.C:
			req := gateway.PostMessageRequest{
				RoomID: domain.RoomGeneral,
				Body:   fmt.Sprintf("hello %d from %s", i, r.name),
			}
			if err := send(conn, gateway.OpPostMessage, req); err != nil {
				return err
			}
			r.sent++
		}
	}

	// Let the tail of the fan-out arrive before tearing down.
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	<-done
	return nil
}

func send(conn *websocket.Conn, op string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(gateway.Frame{Op: op, Data: data})
}

// decodeEvent rebuilds a typed event from the wire form so the timeline
// can apply it. Acknowledgement responses and unknown types are skipped.
func decodeEvent(raw []byte) (event.Event, bool) {
	var envelope struct {
		Type    event.Type      `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Type == "" {
		return event.Event{}, false
	}

	var payload any
	switch envelope.Type {
	case event.Welcome:
		payload = decodeAs[projection.WelcomeView](envelope.Payload)
	case event.MessagePosted, event.PrivateMessagePosted, event.UserJoinedRoom, event.UserLeftRoom:
		payload = decodeAs[projection.MessageView](envelope.Payload)
	case event.TypingChanged:
		payload = decodeAs[projection.TypingView](envelope.Payload)
	case event.ReceiptUpdated:
		payload = decodeAs[projection.ReceiptView](envelope.Payload)
	case event.ReactionUpdated:
		payload = decodeAs[projection.ReactionView](envelope.Payload)
	default:
		return event.Event{}, false
	}
	return event.Event{Type: envelope.Type, Payload: payload}, true
}

func decodeAs[T any](raw json.RawMessage) T {
	var v T
	_ = json.Unmarshal(raw, &v)
	return v
}

func printSummary(reports []*botReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Bot", "Sent", "Received", "Errors"})
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

	for _, r := range reports {
		table.Append([]string{
			r.name,
			fmt.Sprintf("%d", r.sent),
			fmt.Sprintf("%d", r.received),
			fmt.Sprintf("%d", r.errors),
		})
	}
	table.Render()
}
