package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Load generator: registers pairs of users, creates one trip per pair, joins
// both members to the trip's chat room, and spams messages while counting
// echoes. A pair passes when each member saw both sides' traffic.

var (
	baseURL  = flag.String("base", "http://localhost:8080", "server base URL")
	wsURL    = flag.String("ws", "ws://localhost:8080", "websocket base URL")
	pairs    = flag.Int("pairs", 50, "number of chat pairs")
	msgCount = flag.Int("messages", 20, "messages per user")
)

type authResponse struct {
	Token string `json:"access_token"`
	ID    int    `json:"id"`
	Email string `json:"email"`
}

type tripResponse struct {
	RoomKey string `json:"room_key"`
}

func main() {
	flag.Parse()
	log.Printf("🔥 STARTING LOAD TEST: %d users, %d messages each...", *pairs*2, *msgCount)

	var wg sync.WaitGroup
	var failed atomic.Int64
	for i := 0; i < *pairs; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			if err := runPair(pairID); err != nil {
				failed.Add(1)
				log.Printf("❌ pair %d: %v", pairID, err)
			}
		}(i)
	}

	wg.Wait()
	log.Printf("✅ LOAD TEST COMPLETE (%d/%d pairs ok)", int64(*pairs)-failed.Load(), *pairs)
}

func runPair(pairID int) error {
	emailA := fmt.Sprintf("u_%d_a@example.com", pairID)
	emailB := fmt.Sprintf("u_%d_b@example.com", pairID)
	pass := "password123"

	authA, err := authenticate(emailA, pass)
	if err != nil {
		return err
	}
	authB, err := authenticate(emailB, pass)
	if err != nil {
		return err
	}

	roomKey, err := createTrip(authA.Token, fmt.Sprintf("load-trip-%d", pairID))
	if err != nil {
		return err
	}

	// Each side should see its own echoes plus the peer's messages.
	want := *msgCount * 2
	var wsWg sync.WaitGroup
	errs := make(chan error, 4)
	wsWg.Add(2)
	go chatInRoom(&wsWg, errs, authA.Token, roomKey, emailA, want)
	go chatInRoom(&wsWg, errs, authB.Token, roomKey, emailB, want)
	wsWg.Wait()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func authenticate(email, password string) (*authResponse, error) {
	// Register, ignoring failures from reruns against a warm database.
	postJSON("/register", map[string]string{"email": email, "password": password})

	resp, err := postJSON("/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", email, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login %s: status %d", email, resp.StatusCode)
	}

	var data authResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

func createTrip(token, name string) (string, error) {
	jsonBody, _ := json.Marshal(map[string]string{"name": name})
	req, _ := http.NewRequest("POST", *baseURL+"/api/trips", bytes.NewBuffer(jsonBody))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create trip: status %d", resp.StatusCode)
	}

	var data tripResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	return data.RoomKey, nil
}

func chatInRoom(wg *sync.WaitGroup, errs chan<- error, token, roomKey, email string, want int) {
	defer wg.Done()

	url := fmt.Sprintf("%s/ws/chat/%s?token=%s", *wsURL, roomKey, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		errs <- fmt.Errorf("dial %s: %w", email, err)
		return
	}
	defer conn.Close()

	received := make(chan struct{})
	go func() {
		defer close(received)
		seen := 0
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		for seen < want {
			var frame struct {
				Message string `json:"message"`
				User    string `json:"user"`
			}
			if err := conn.ReadJSON(&frame); err != nil {
				errs <- fmt.Errorf("read %s after %d frames: %w", email, seen, err)
				return
			}
			if frame.User != "" {
				seen++
			}
		}
	}()

	for i := 0; i < *msgCount; i++ {
		payload := map[string]string{"message": fmt.Sprintf("msg %d from %s", i, email)}
		if err := conn.WriteJSON(payload); err != nil {
			errs <- fmt.Errorf("send %s: %w", email, err)
			return
		}
		// Small pause so localhost doesn't collapse every send into one burst.
		time.Sleep(10 * time.Millisecond)
	}

	<-received
}

func postJSON(endpoint string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	return http.Post(*baseURL+endpoint, "application/json", bytes.NewBuffer(jsonData))
}
