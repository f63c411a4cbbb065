package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/terrawatt/terrawatt/internal/app/config"
	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
	"github.com/terrawatt/terrawatt/internal/realtime"
	"github.com/terrawatt/terrawatt/pkg/logger"
)

// A terminal client for task messaging. Joins one task room and relays
// between stdin and the websocket until interrupted.
func main() {
	log := logger.New()

	url := flag.String("url", "ws://localhost:8080/api/v1/ws", "websocket endpoint")
	token := flag.String("token", "", "access token")
	task := flag.String("task", "", "review task ID to join")
	flag.Parse()

	if *token == "" || *task == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -token <access-token> -task <task-id> [-url <endpoint>]")
		os.Exit(2)
	}

	taskID, err := uuid.Parse(*task)
	if err != nil {
		log.Error("Invalid task ID", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ch := realtime.NewChannel(realtime.ChannelConfig{
		URL:                  *url,
		Token:                *token,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		BaseReconnectDelay:   cfg.Realtime.BaseReconnectDelay,
		Events: realtime.Events{
			NewMessage: func(message models.TaskMessage) {
				fmt.Printf("[%s] %s\n", message.SenderID, message.Content)
			},
			JoinedTask: func(payload realtime.JoinedTaskPayload) {
				for i := len(payload.Messages) - 1; i >= 0; i-- {
					fmt.Printf("[%s] %s\n", payload.Messages[i].SenderID, payload.Messages[i].Content)
				}
			},
			Error: func(payload realtime.ErrorPayload) {
				fmt.Fprintln(os.Stderr, "server error:", payload.Message)
			},
			Reconnected: func(attempt int) {
				log.Info("Reconnected", "attempt", attempt)
			},
			Disconnected: func(err error) {
				log.Error("Connection lost for good", "error", err)
				os.Exit(1)
			},
		},
	})

	if err := ch.Connect(context.Background()); err != nil {
		log.Error("Failed to connect", "error", err)
		os.Exit(1)
	}
	defer ch.Disconnect()

	if err := ch.JoinTask(taskID, 20, 0); err != nil {
		log.Error("Failed to join task", "error", err)
		os.Exit(1)
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := ch.SendMessage(taskID, line, nil, false); err != nil {
				fmt.Fprintln(os.Stderr, "send failed:", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
