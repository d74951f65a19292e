//go:build ignore

// Smoke test for a running server: go run scripts/smoke_chat_api.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

var baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

type client struct {
	guestId string
}

// Request helper
func (c *client) send(method, url string, body interface{}) (*http.Response, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.guestId != "" {
		req.Header.Set("X-Guest-Id", c.guestId)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if id := resp.Header.Get("X-Guest-Id"); id != "" {
		c.guestId = id
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded, nil
}

func step(c *client, title, method, url string, body interface{}) map[string]interface{} {
	color.Yellow("\n%s", title)
	resp, decoded, err := c.send(method, url, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
	} else {
		color.Green("Status: %s", resp.Status)
	}
	prettyPrint(decoded)
	return decoded
}

func main() {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		baseURL = v
	}
	c := &client{}

	color.Cyan("Starting chat API smoke test against %s\n", baseURL)

	step(c, "1. Open guest session", "GET", "/chat/v1/session", nil)
	color.HiBlack("guest id: %s", c.guestId)

	created := step(c, "2. New chat", "POST", "/chat/v1/threads", nil)
	data, _ := created["data"].(map[string]interface{})
	threadId, _ := data["id"].(string)

	step(c, "3. Send message", "POST", "/chat/v1/messages", map[string]string{
		"content": "Can you suggest a three day itinerary for Kyoto in autumn?",
	})
	step(c, "4. List threads (auto-title should apply)", "GET", "/chat/v1/threads", nil)
	step(c, "5. Messages", "GET", "/chat/v1/threads/"+threadId+"/messages", nil)
	step(c, "6. Rename", "PUT", "/chat/v1/threads/"+threadId, map[string]string{"name": "Kyoto trip"})
	step(c, "7. Delete", "DELETE", "/chat/v1/threads/"+threadId, nil)
	step(c, "8. Legacy history send", "POST", "/history/v1", map[string]string{"content": "hello"})
	step(c, "9. Legacy history clear", "DELETE", "/history/v1", nil)

	color.Cyan("\nDone")
}
