package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/bootstrap"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/models"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer app.Close()

	messages := services.InitialMessages()
	var turns []models.ChatTurn
	var records [][]string

	for _, m := range messages {
		fmt.Printf("%s: %s\n", m.Role, m.Content)
	}
	fmt.Println(`Type a question, "/sources <n>" to show the sources of message n, or "/quit".`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/sources"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/sources")))
			if err != nil || n < 0 || n >= len(messages) {
				fmt.Println("Usage: /sources <message number>")
				continue
			}
			printSources(services.GetSources(records, messages[n].Role, n))
			continue
		}

		messages = append(messages, models.ChatMessage{ID: strconv.Itoa(len(messages)), Role: models.RoleUser, Content: line})
		answer, sources, err := ask(ctx, app.Chain, line, services.FormatChatHistory(turns))
		if err != nil {
			// Keep the transcript aligned with the citation records.
			messages = messages[:len(messages)-1]
			if ctx.Err() != nil {
				return
			}
			fmt.Printf("\nerror (%s): %v\n", apperr.KindOf(err), err)
			continue
		}

		messages = append(messages, models.ChatMessage{ID: strconv.Itoa(len(messages)), Role: models.RoleAssistant, Content: answer})
		turns = append(turns, models.ChatTurn{Question: line, Answer: answer})
		records = append(records, sources)
		printSources(services.GetSources(records, models.RoleAssistant, len(messages)-1))
	}
}

// ask streams one answer to stdout and returns the full text with its sources.
func ask(ctx context.Context, chain *services.Chain, question, history string) (string, []string, error) {
	ctx, cancel := utils.WithStreamTimeout(ctx)
	defer cancel()

	events, err := chain.Call(ctx, question, history)
	if err != nil {
		return "", nil, err
	}

	var answer strings.Builder
	var sources []string
	for ev := range events {
		switch ev.Kind {
		case services.EventText:
			fmt.Print(ev.Text)
			answer.WriteString(ev.Text)
		case services.EventSources:
			sources = ev.Sources
		case services.EventError:
			return "", nil, ev.Err
		}
	}
	fmt.Println()
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	return answer.String(), sources, nil
}

func printSources(sources []string) {
	for i, s := range sources {
		fmt.Printf("  [%d] %s\n", i+1, services.FormattedText(truncate(s, 240)))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
