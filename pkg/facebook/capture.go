package facebook

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Capture is the out-of-band recording a browser session produced: the
// operation templates needed to replay navigation requests, plus the raw
// GraphQL responses observed while scrolling the feed.
type Capture struct {
	Operations []Operation
	Responses  []json.RawMessage
}

// captureRecord is one line of a JSONL capture file
type captureRecord struct {
	Kind      string          `json:"kind"`
	Operation *Operation      `json:"operation,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
}

// LoadCapture reads a JSONL capture file. Lines with an unknown kind are
// skipped so capture formats can grow without breaking older readers.
func LoadCapture(path string) (*Capture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer file.Close()

	capture := &Capture{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record captureRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("invalid capture record at line %d: %w", lineNum, err)
		}

		switch record.Kind {
		case "operation":
			if record.Operation != nil && record.Operation.Name != "" {
				capture.Operations = append(capture.Operations, *record.Operation)
			}
		case "response":
			if len(record.Response) > 0 {
				capture.Responses = append(capture.Responses, record.Response)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture file: %w", err)
	}

	return capture, nil
}

// Register loads every captured operation template into a client
func (c *Capture) Register(client *Client) {
	for _, op := range c.Operations {
		client.Capture(op)
	}
}
