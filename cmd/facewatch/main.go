// facewatch - tails the facepipe results feed
// Connects to /ws/results and prints every batch in the same text form
// facepipe writes to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facepipe/internal/config"
	"github.com/teslashibe/go-facepipe/internal/log"
	"github.com/teslashibe/go-facepipe/pkg/face"
	"github.com/teslashibe/go-facepipe/pkg/report"
)

func main() {
	host := flag.String("host", "localhost", "facepipe host")
	port := flag.String("port", "", "facepipe dashboard port (overrides FACEPIPE_PORT)")
	verbose := flag.Bool("v", false, "Print batch IDs and timing")
	flag.Parse()

	log.Init(config.LogLevel(config.DefaultLogLevel))

	p := config.Port(config.DefaultPort)
	if *port != "" {
		p = *port
	}
	u := url.URL{Scheme: "ws", Host: *host + ":" + p, Path: "/ws/results"}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backoff := time.Second
	for ctx.Err() == nil {
		err := tail(ctx, u.String(), os.Stdout, *verbose)
		if ctx.Err() != nil {
			break
		}
		log.Warn("results feed disconnected", "url", u.String(), "error", err, "retry", backoff)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 10*time.Second)
	}
}

// tail prints results until the connection fails or ctx is done.
func tail(ctx context.Context, addr string, w io.Writer, verbose bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("connected", "url", addr)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg report.ResultsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "results" {
			continue
		}
		if verbose {
			fmt.Fprintf(w, "# %s frame=%d snapshot=%d %.1fms\n",
				msg.ID, msg.FrameSeq, msg.SnapshotVersion, msg.ElapsedMs)
		}
		if err := report.FormatResults(w, results(msg)); err != nil {
			return err
		}
	}
}

// results rebuilds the reported landmarks of a message. Landmarks that are
// not on the feed stay at the origin.
func results(msg report.ResultsMessage) []face.Result {
	out := make([]face.Result, len(msg.Faces))
	for i, f := range msg.Faces {
		out[i].Pose = f.Pose
		for _, nl := range face.ReportedLandmarks {
			if p, ok := f.Landmarks[nl.Label]; ok {
				out[i].Landmarks[nl.Index] = face.Point{X: p.X, Y: p.Y}
			}
		}
	}
	return out
}
