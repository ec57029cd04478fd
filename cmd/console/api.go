package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/pkg/arena"
	"github.com/maduarte95/arena-test/pkg/chat"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

type createSessionRequest struct {
	Username string `json:"username,omitempty"`
}

func createSession(client *http.Client, baseURL string, username string) (*arena.GameState, error) {
	jsonData, err := json.Marshal(createSessionRequest{Username: username})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/sessions",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to create session: %s", errorResp.Error)
	}

	var gs arena.GameState
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	return &gs, nil
}

// streamTurn posts the message with streaming enabled and forwards SSE
// events onto ch as tea messages: turnChunkMsg per narrative fragment,
// then a single turnResultMsg (or turnErrorMsg).
func streamTurn(client *http.Client, baseURL string, sessionID uuid.UUID, message string, ch chan<- tea.Msg) {
	defer close(ch)

	jsonData, err := json.Marshal(chat.TurnRequest{Message: message})
	if err != nil {
		ch <- turnErrorMsg{fmt.Errorf("failed to marshal request: %w", err)}
		return
	}

	resp, err := client.Post(
		fmt.Sprintf("%s/v1/sessions/%s/turns?stream=true", baseURL, sessionID),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		ch <- turnErrorMsg{fmt.Errorf("failed to send request: %w", err)}
		return
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			ch <- turnErrorMsg{fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))}
			return
		}
		ch <- turnErrorMsg{fmt.Errorf("turn request failed: %s", errorResp.Error)}
		return
	}

	var eventType string
	gotResult := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch eventType {
			case "chunk":
				var chunk struct {
					Text string `json:"text"`
				}
				if err := json.Unmarshal([]byte(data), &chunk); err == nil {
					ch <- turnChunkMsg{chunk.Text}
				}
			case "result":
				var result chat.TurnResult
				if err := json.Unmarshal([]byte(data), &result); err != nil {
					ch <- turnErrorMsg{fmt.Errorf("failed to parse turn result: %w", err)}
					return
				}
				gotResult = true
				ch <- turnResultMsg{&result}
			case "error":
				var errorResp ErrorResponse
				if err := json.Unmarshal([]byte(data), &errorResp); err != nil {
					ch <- turnErrorMsg{fmt.Errorf("turn failed: %s", data)}
					return
				}
				ch <- turnErrorMsg{fmt.Errorf("turn failed: %s", errorResp.Error)}
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		ch <- turnErrorMsg{fmt.Errorf("stream read failed: %w", err)}
		return
	}
	if !gotResult {
		ch <- turnErrorMsg{fmt.Errorf("stream ended without a result")}
	}
}
