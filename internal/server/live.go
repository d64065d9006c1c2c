package server

import (
	"context"
	"errors"
	"sync"

	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/transcript"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// handleLive reads transcript segments as text frames and writes a verdict
// frame whenever the rolling window is checked.
func (s *Server) handleLive(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	monitor, err := transcript.NewMonitor(s.checker,
		transcript.WithCapacity(s.liveWindow),
		transcript.WithInterval(s.liveInterval),
		transcript.WithCheckTimeout(s.requestTimeout),
		transcript.WithLogger(s.logger),
	)
	if err != nil {
		s.logger.Error("failed to start live monitor", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	emit := func(v core.Verdict) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(VerdictResponse{Verdict: v, OverallAssessment: assessmentOf(v)})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := monitor.Run(ctx, emit); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("live monitor stopped", "error", err)
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := monitor.Add(string(data)); err != nil && !errors.Is(err, transcript.ErrEmptySegment) {
			s.logger.Warn("dropping live segment", "error", err)
		}
	}

	cancel()
	<-done
}
