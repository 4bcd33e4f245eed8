// Command synapse-repl is a manual protocol test client: a readline loop
// that sends suggest/complete/interaction requests to a running synapsed
// and prints the TSV frames it sends back, for exercising the socket
// protocol without a real zsh widget (spec.md §6.1).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/synapse-sh/synapse/internal/config"
	"github.com/synapse-sh/synapse/internal/protocol"
	"github.com/synapse-sh/synapse/internal/ui"
)

func main() {
	socketPath := flag.String("socket", config.Default().Socket.Path, "path to synapsed's unix socket")
	flag.Parse()

	conn, err := net.Dial("unix", *socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synapse-repl: connecting to %s: %v\n", *socketPath, err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	frames := make(chan string, 16)
	go readFrames(conn, frames)

	disp := ui.New(frames)
	go disp.Run(ctx)

	cacheDir, _ := os.UserCacheDir()
	historyFile := ""
	if cacheDir != "" {
		historyFile = filepath.Join(cacheDir, "synapse", "repl_history")
		_ = os.MkdirAll(filepath.Dir(historyFile), 0o755)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36msynapse>\033[0m ",
		HistoryFile:       historyFile,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "synapse-repl: readline init: %v\n", err)
		cancel()
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("synapse-repl — type a command buffer to get a suggestion, or /help for meta-commands")

	sessionID := uuid.New().String()
	cwd, _ := os.Getwd()
	enc := json.NewEncoder(conn)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			cancel()
			break
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}

		req, quit := buildRequest(line, sessionID, cwd)
		if quit {
			sendRequest(enc, protocol.Request{Type: protocol.RequestShutdown})
			cancel()
			break
		}
		if req == nil {
			continue
		}
		if req.Type == protocol.RequestCwdChanged {
			cwd = req.Cwd
		}
		sendRequest(enc, *req)
	}
}

// buildRequest translates one REPL line into a protocol.Request. Lines
// starting with "/" are meta-commands; anything else is treated as the
// current shell buffer and sent as a suggest request.
func buildRequest(line, sessionID, cwd string) (*protocol.Request, bool) {
	if !strings.HasPrefix(line, "/") {
		return &protocol.Request{
			Type:      protocol.RequestSuggest,
			SessionID: sessionID,
			Buffer:    line,
			CursorPos: len(line),
			Cwd:       cwd,
		}, false
	}

	fields := strings.Fields(line)
	cmd := fields[0]
	rest := fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return nil, true

	case "/help":
		printHelp()
		return nil, false

	case "/ping":
		return &protocol.Request{Type: protocol.RequestPing}, false

	case "/list":
		buffer := strings.Join(rest, " ")
		return &protocol.Request{
			Type: protocol.RequestListSuggestions, SessionID: sessionID,
			Buffer: buffer, CursorPos: len(buffer), Cwd: cwd, MaxResults: 10,
		}, false

	case "/complete":
		if len(rest) == 0 {
			fmt.Println("usage: /complete <command> [context words...]")
			return nil, false
		}
		return &protocol.Request{
			Type: protocol.RequestComplete, Command: rest[0], Context: rest[1:], Cwd: cwd,
		}, false

	case "/exec":
		executed := strings.Join(rest, " ")
		return &protocol.Request{
			Type: protocol.RequestCommandExecuted, SessionID: sessionID, Command: executed, Cwd: cwd,
		}, false

	case "/cwd":
		if len(rest) == 0 {
			fmt.Println("usage: /cwd <path>")
			return nil, false
		}
		return &protocol.Request{Type: protocol.RequestCwdChanged, SessionID: sessionID, Cwd: rest[0]}, false

	case "/nl":
		query := strings.Join(rest, " ")
		return &protocol.Request{Type: protocol.RequestNaturalLanguage, SessionID: sessionID, Query: query, Cwd: cwd}, false

	case "/accept", "/dismiss":
		if len(rest) == 0 {
			fmt.Printf("usage: %s <suggestion text>\n", cmd)
			return nil, false
		}
		action := protocol.ActionAccept
		if cmd == "/dismiss" {
			action = protocol.ActionDismiss
		}
		return &protocol.Request{
			Type: protocol.RequestInteraction, SessionID: sessionID,
			Action: action, Suggestion: strings.Join(rest, " "),
		}, false

	case "/clearcache":
		return &protocol.Request{Type: protocol.RequestClearCache, Cwd: cwd}, false

	case "/exitcode":
		if len(rest) == 0 {
			fmt.Println("usage: /exitcode <n>")
			return nil, false
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			fmt.Printf("invalid exit code %q\n", rest[0])
			return nil, false
		}
		return &protocol.Request{Type: protocol.RequestCommandExecuted, SessionID: sessionID, LastExitCode: &n, Cwd: cwd}, false

	default:
		fmt.Printf("unknown meta-command %q — try /help\n", cmd)
		return nil, false
	}
}

func printHelp() {
	fmt.Println(`meta-commands:
  <buffer>             suggest for this buffer (cursor at end)
  /list <buffer>        list up to 10 ranked suggestions
  /complete <cmd> [ctx] resolve a compsys-style completion
  /exec <command>       record a command as executed (feeds the workflow predictor)
  /cwd <path>           notify a directory change
  /nl <query>           translate a natural-language query
  /accept <text>        record an acceptance interaction
  /dismiss <text>       record a dismissal interaction
  /clearcache           clear the spec cache
  /ping                 round-trip check
  /exit                 shut down synapsed and quit`)
}

func sendRequest(enc *json.Encoder, req protocol.Request) {
	if err := enc.Encode(req); err != nil {
		fmt.Fprintf(os.Stderr, "synapse-repl: send error: %v\n", err)
	}
}

// readFrames scans newline-terminated response frames off conn and forwards
// them to out until the connection closes.
func readFrames(conn net.Conn, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}
