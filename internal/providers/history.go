package providers

import (
	"bufio"
	"context"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/synapse-sh/synapse/internal/compctx"
)

// extendedHistoryLine matches zsh's `EXTENDED_HISTORY` format:
// `: <epoch>:<duration>;<command>`. Bare lines are plain commands.
var extendedHistoryLine = regexp.MustCompile(`^: (\d+):(\d+);(.*)$`)

type historyEntry struct {
	command  string
	freq     int
	lastUsed time.Time
}

// HistoryProvider scores shell history entries by a blend of frequency and
// recency (spec.md §4.5.1). It loads the history file once at startup and
// holds its parsed entries in memory.
type HistoryProvider struct {
	mu      sync.RWMutex
	entries map[string]*historyEntry
	maxFreq int
}

// NewHistoryProvider parses path (a zsh/bash history file) into scored
// entries. A missing or unreadable file yields an empty, still-usable
// provider.
func NewHistoryProvider(path string) *HistoryProvider {
	p := &HistoryProvider{entries: make(map[string]*historyEntry)}
	p.load(path)
	return p
}

func (p *HistoryProvider) load(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	now := time.Now()
	var pending strings.Builder
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if pending.Len() > 0 {
			pending.WriteByte('\n')
			pending.WriteString(line)
			if strings.HasSuffix(line, "\\") {
				continue
			}
			p.record(strings.TrimSuffix(pending.String(), "\\"), now)
			pending.Reset()
			continue
		}

		if strings.HasSuffix(line, "\\") {
			pending.WriteString(line)
			continue
		}

		if m := extendedHistoryLine.FindStringSubmatch(line); m != nil {
			epoch, _ := strconv.ParseInt(m[1], 10, 64)
			p.record(m[3], time.Unix(epoch, 0))
			continue
		}

		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		p.record(cmd, now)
	}

	for _, e := range p.entries {
		if e.freq > p.maxFreq {
			p.maxFreq = e.freq
		}
	}
}

func (p *HistoryProvider) record(cmd string, when time.Time) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	e, ok := p.entries[cmd]
	if !ok {
		e = &historyEntry{command: cmd}
		p.entries[cmd] = e
	}
	e.freq++
	if when.After(e.lastUsed) {
		e.lastUsed = when
	}
}

func (p *HistoryProvider) freqScore(freq int) float64 {
	if p.maxFreq <= 1 {
		return 1.0
	}
	return math.Log(1+float64(freq)) / math.Log(1+float64(p.maxFreq))
}

func recencyScore(last time.Time) float64 {
	ageDays := time.Since(last).Hours() / 24
	return math.Exp(-ageDays * 0.1)
}

// Suggest implements Provider.
func (p *HistoryProvider) Suggest(_ context.Context, req ProviderRequest, max int) []ProviderSuggestion {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ctx := req.Context
	type scored struct {
		entry *historyEntry
		score float64
	}
	var candidates []scored

	matchDirect := func(e *historyEntry) (bool, string) {
		switch ctx.Position {
		case compctx.PositionArgument, compctx.PositionSubcommand, compctx.PositionOptionValue:
			if !strings.HasPrefix(e.command, ctx.Prefix) {
				return false, ""
			}
			rest := strings.TrimPrefix(e.command, ctx.Prefix)
			if ctx.Partial != "" && !strings.HasPrefix(rest, ctx.Partial) {
				return false, ""
			}
			return true, e.command
		case compctx.PositionCommandName, compctx.PositionPipeTarget:
			if !strings.HasPrefix(e.command, ctx.Partial) {
				return false, ""
			}
			return true, e.command
		default:
			if !strings.HasPrefix(e.command, ctx.Buffer) {
				return false, ""
			}
			return true, e.command
		}
	}

	query := ctx.Partial
	if query == "" {
		query = ctx.Buffer
	}

	for _, e := range p.entries {
		if ok, _ := matchDirect(e); ok {
			s := 0.6*p.freqScore(e.freq) + 0.4*recencyScore(e.lastUsed)
			candidates = append(candidates, scored{e, s})
		}
	}

	if len(candidates) == 0 && req.FuzzyEnabled && query != "" {
		threshold := int(0.3 * float64(len(query)))
		for _, e := range p.entries {
			target := e.command
			if len(target) > len(query)*4 {
				continue // avoid pathological distance computation on huge entries
			}
			d := levenshtein(query, target)
			if d <= threshold {
				base := 0.6*p.freqScore(e.freq) + 0.4*recencyScore(e.lastUsed)
				fuzzy := 0.8 * (1 - float64(d)/float64(len(query)))
				if fuzzy < 0 {
					fuzzy = 0
				}
				candidates = append(candidates, scored{e, base * fuzzy})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > max {
		candidates = candidates[:max]
	}

	out := make([]ProviderSuggestion, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, ProviderSuggestion{
			Text:   c.entry.command,
			Source: SourceHistory,
			Score:  c.score,
			Kind:   KindHistory,
		})
	}
	return out
}

// levenshtein computes the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
