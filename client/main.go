package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatherly/chat-service/pkg/model"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func login(apiAddr, userID, username string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID, "username": username})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}

	return loginResp.Token, nil
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	userID := flag.String("user", "user1", "user id")
	name := flag.String("name", "Alice", "display name in the room")
	roomID := flag.String("event", "demo-event", "event room to join")
	flag.Parse()

	// 1. Login to get token
	log.Printf("Logging in as %s...", *userID)
	token, err := login(*apiAddr, *userID, *name)
	if err != nil {
		log.Fatal("Login failed:", err)
	}

	// 2. Connect to the gateway with the token
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// 3. Render inbound frames
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}

			var base model.BaseFrame
			if err := json.Unmarshal(message, &base); err != nil {
				log.Printf("Received raw: %s", message)
				continue
			}

			switch base.Type {
			case model.FramePreviousMessages:
				var frame model.PreviousMessagesFrame
				if err := json.Unmarshal(message, &frame); err != nil {
					continue
				}
				fmt.Printf("\r--- %d earlier messages ---\n", len(frame.Messages))
				for _, m := range frame.Messages {
					fmt.Printf("%s: %s\n", m.SenderName, m.Content)
				}
				fmt.Print("> ")

			case model.FrameNewMessage:
				var frame model.NewMessageFrame
				if err := json.Unmarshal(message, &frame); err != nil {
					continue
				}
				fmt.Printf("\r%s: %s\n> ", frame.SenderName, frame.Content)

			case model.FrameUserJoined, model.FrameUserLeft:
				var frame model.SystemNoticeFrame
				if err := json.Unmarshal(message, &frame); err != nil {
					continue
				}
				fmt.Printf("\r* %s\n> ", frame.Content)

			case model.FrameUserTyping:
				var frame model.UserTypingFrame
				if err := json.Unmarshal(message, &frame); err != nil {
					continue
				}
				if frame.IsTyping {
					fmt.Printf("\r%s is typing...      \n> ", frame.SenderName)
				}

			case model.FrameNewMockEvent:
				// Engagement filler; skip it in the terminal.

			case model.FrameError:
				var frame model.ErrorFrame
				if err := json.Unmarshal(message, &frame); err != nil {
					continue
				}
				fmt.Printf("\r! %s: %s\n> ", frame.Code, frame.Message)

			default:
				log.Printf("Received unknown frame: %s", message)
			}
		}
	}()

	// 4. Join the room
	join, _ := json.Marshal(model.JoinEventFrame{
		Type:        model.FrameJoinEvent,
		RoomID:      *roomID,
		DisplayName: *name,
	})
	if err := c.WriteMessage(websocket.TextMessage, join); err != nil {
		log.Fatal("join:", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// 5. Read from stdin and send messages
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}

			if text == "/quit" {
				close(interrupt)
				break
			}

			if text == "/typing" {
				frame, _ := json.Marshal(model.TypingFrame{
					Type:     model.FrameTyping,
					RoomID:   *roomID,
					IsTyping: true,
				})
				if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
					log.Println("write:", err)
					break
				}
				fmt.Print("> ")
				continue
			}

			frame, _ := json.Marshal(model.SendMessageFrame{
				Type:    model.FrameSendMessage,
				RoomID:  *roomID,
				Content: text,
			})
			if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Println("write:", err)
				break
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			// Cleanly close the connection by sending a close message and then
			// waiting (with timeout) for the server to close the connection.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
