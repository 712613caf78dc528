// monitor: terminal status monitor for a running binsight daemon.
//
// Subscribes to the dashboard's /ws/status stream and prints one line per
// state change.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
)

var addr = flag.String("addr", "localhost:8080", "binsight dashboard address")

// status mirrors the dashboard's composite status payload.
type status struct {
	Loop struct {
		State      string `json:"state"`
		Enabled    bool   `json:"enabled"`
		LastError  string `json:"last_error"`
		LastSignal string `json:"last_signal"`
		Ticks      uint64 `json:"ticks"`
		LastResult *struct {
			Object   string `json:"object"`
			Category string `json:"category"`
			Reason   string `json:"reason"`
		} `json:"last_result"`
	} `json:"loop"`
	SorterAddr  string `json:"sorter_addr"`
	CameraReady bool   `json:"camera_ready"`
}

func main() {
	flag.Parse()

	url := fmt.Sprintf("ws://%s/ws/status", *addr)
	fmt.Printf("📡 Connecting to %s\n", url)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: connect failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n👋 Goodbye!")
		conn.Close()
		os.Exit(0)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: connection lost: %v\n", err)
			os.Exit(1)
		}

		var st status
		if err := json.Unmarshal(data, &st); err != nil {
			continue
		}

		line := fmt.Sprintf("[%s] tick=%d camera=%v", st.Loop.State, st.Loop.Ticks, st.CameraReady)
		if st.Loop.LastResult != nil {
			line += fmt.Sprintf(" | %s → %s", st.Loop.LastResult.Object, st.Loop.LastResult.Category)
		}
		if st.Loop.LastSignal != "" {
			line += " | " + st.Loop.LastSignal
		}
		if st.Loop.LastError != "" {
			line += " | ⚠️  " + st.Loop.LastError
		}
		fmt.Println(line)
	}
}
