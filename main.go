// contentbot runs the autonomous content-marketing agent from the command
// line: execute a task, inspect bot state, optimize a post, or serve metrics.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/middleware/metrics"
	"github.com/joshn8er2022/content-marketing-agent/pkg/bot"
	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
	"github.com/joshn8er2022/content-marketing-agent/pkg/profile"
)

func main() {
	var (
		configPath    = flag.String("config", "contentbot.yaml", "path to the YAML configuration file")
		task          = flag.String("task", "", "task for the agent to execute")
		maxIterations = flag.Int("max-iterations", 0, "iteration budget (0 uses the configured default)")
		platform      = flag.String("platform", "", "target platform (instagram, tiktok, twitter)")
		language      = flag.String("language", "", "output language")
		optimize      = flag.String("optimize", "", "existing post text to optimize instead of running a task")
		goal          = flag.String("goal", "reach", "optimization goal when -optimize is set")
		chat          = flag.Bool("chat", false, "interactive chat session on stdin")
		status        = flag.Bool("status", false, "print the bot state summary and exit")
		serveMetrics  = flag.String("serve-metrics", "", "address to expose /metrics on (e.g. :9090), empty to disable")
	)
	flag.Parse()

	logger := logx.NewLogger("main")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("configuration: %v", err)
		os.Exit(1)
	}

	if err := unlockSecrets(); err != nil {
		logger.Error("secrets: %v", err)
		os.Exit(1)
	}

	store, err := profile.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("profile store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	b, err := bot.New(cfg, store, metrics.NewPrometheusRecorder())
	if err != nil {
		logger.Error("bot init: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *serveMetrics != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("serving metrics on %s", *serveMetrics)
			server := &http.Server{Addr: *serveMetrics, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server: %v", err)
			}
		}()
	}

	switch {
	case *status:
		printJSON(b.StateSummary())

	case *chat:
		if err := chatSession(ctx, b, *maxIterations); err != nil {
			logger.Error("chat: %v", err)
			os.Exit(1)
		}

	case *optimize != "":
		out, err := b.Optimize(ctx, *optimize, orDefault(*platform, "instagram"), *goal)
		if err != nil {
			logger.Error("optimize: %v", err)
			os.Exit(1)
		}
		printJSON(out)

	case *task != "":
		callerCtx := map[string]any{}
		if *platform != "" {
			callerCtx[bot.CtxPlatform] = *platform
		}
		if *language != "" {
			callerCtx[bot.CtxLanguage] = *language
		}

		result, err := b.Execute(ctx, *task, callerCtx, *maxIterations)
		if err != nil {
			logger.Error("execute: %v", err)
			os.Exit(1)
		}

		fmt.Printf("run %s: state=%s iterations=%d status=%s\n",
			result.RunID, result.FinalState, result.TotalIterations, statusLabel(result.Status))
		for _, tr := range result.Transitions {
			fmt.Printf("  %2d. %s -> %s (errors=%v)\n", tr.Iteration, tr.From, tr.To, tr.Snapshot.ErrorOccurred)
		}
		if result.Error != "" {
			fmt.Printf("last error: %s\n", result.Error)
		}
		printJSON(result.Output)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// unlockSecrets loads the encrypted secrets file when one exists, prompting
// for the password on a terminal. Without a file, API keys come from the
// environment and no prompt appears.
func unlockSecrets() error {
	path := config.SecretsFileName
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if !term.IsTerminal(syscall.Stdin) {
		return fmt.Errorf("%s exists but stdin is not a terminal; set API keys in the environment instead", path)
	}

	fmt.Print("Secrets password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if err := config.LoadSecretsFile(path, strings.TrimSpace(string(password))); err != nil {
		return fmt.Errorf("decrypt %s: %w", path, err)
	}
	return nil
}

// chatSession reads messages from stdin one line at a time and runs each one
// through the agent. An empty line or EOF ends the session.
func chatSession(ctx context.Context, b *bot.Bot, maxIterations int) error {
	fmt.Println("chat mode; empty line to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}

		result, err := b.Execute(ctx, line, nil, maxIterations)
		if err != nil {
			return err
		}
		if reply, ok := result.Output[agent.KeyResponse].(string); ok {
			fmt.Println(reply)
		} else {
			printJSON(result.Output)
		}
	}
	return scanner.Err()
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(data))
}

func statusLabel(status string) string {
	if status == "" {
		return "incomplete"
	}
	return status
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
