package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat       = 1
	MsgTypeJoinLobby       = 101
	MsgTypeBuyBalls        = 102
	MsgTypeAdminForceStart = 103
	MsgTypeAdminReset      = 104
)

var msgNames = map[uint16]string{
	201: "error",
	202: "player-stats",
	203: "admin-ack",
	301: "lobby-update",
	302: "next-race-time",
	303: "race-started",
	304: "race-state",
	305: "race-ended",
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	userID := flag.String("user", "tester", "user id")
	name := flag.String("name", "Tester", "display name")
	price := flag.Int64("price", 50, "stars per ball")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			label := msgNames[msgID]
			if label == "" {
				label = "unknown"
			}
			// 比赛快照太吵，只打一行摘要
			if msgID == 304 {
				var state struct {
					RaceID string            `json:"raceId"`
					Balls  []json.RawMessage `json:"balls"`
					Winner *json.RawMessage  `json:"winner"`
				}
				if err := json.Unmarshal(data, &state); err == nil {
					log.Printf("<- race-state: %d balls, winner=%v", len(state.Balls), state.Winner != nil)
					continue
				}
			}
			log.Printf("<- %s (ID: %d): %s", label, msgID, string(data))
		}
	}()

	// 自动加入大厅
	joinReq := map[string]string{"userId": *userID, "username": *name}
	joinData, _ := json.Marshal(joinReq)
	if err := send(c, MsgTypeJoinLobby, joinData); err != nil {
		log.Println("Write error:", err)
		return
	}
	log.Printf("-> joined lobby as %s", *userID)

	// 心跳
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				send(c, MsgTypeHeartbeat, nil)
			}
		}
	}()

	fmt.Println("Commands: buy <n> | start | reset | quit")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			switch fields[0] {
			case "buy":
				count := 1
				if len(fields) > 1 {
					if n, err := strconv.Atoi(fields[1]); err == nil {
						count = n
					}
				}
				req := map[string]interface{}{
					"ballCount": count,
					"paymentId": fmt.Sprintf("cli-%d", time.Now().UnixNano()),
					"amount":    int64(count) * *price,
				}
				data, _ := json.Marshal(req)
				if err := send(c, MsgTypeBuyBalls, data); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Printf("-> bought %d balls", count)
			case "start":
				if err := send(c, MsgTypeAdminForceStart, nil); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Println("-> force start")
			case "reset":
				if err := send(c, MsgTypeAdminReset, nil); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Println("-> reset")
			case "quit":
				return
			default:
				fmt.Println("Commands: buy <n> | start | reset | quit")
			}
		}
	}
}
