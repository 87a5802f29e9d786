package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hunterwarburton/tokenlens/internal/core"
	"github.com/hunterwarburton/tokenlens/internal/logger"
	"github.com/hunterwarburton/tokenlens/internal/portfolio"
)

// maxTokensPerCommand caps the addresses accepted by a single "tokens" call.
const maxTokensPerCommand = 50

// ErrNotAllowed is returned when the policy rejects a command.
var ErrNotAllowed = errors.New("command not allowed")

// PolicyService defines the interface for checking command permissions.
type PolicyService interface {
	IsCommandAllowed(userID int64, command string) bool
}

// HoldingsService is implemented by *portfolio.Service.
type HoldingsService interface {
	Holdings(ctx context.Context, walletOrName string) (*portfolio.Report, error)
}

// Command is one parsed user command, e.g. "token <mint>".
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits "/token@bot abc" or "token abc" into a Command.
func ParseCommand(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return Command{Name: strings.ToLower(name), Args: fields[1:]}
}

// Result is the rendered outcome of a command.
type Result struct {
	Text string
	// PhotoURL is set when the answer has a token logo worth showing.
	PhotoURL string
}

// CommandRouter routes and executes user commands.
type CommandRouter struct {
	policy   PolicyService
	resolver core.MetadataResolver
	holdings HoldingsService
}

// NewCommandRouter creates a new CommandRouter. holdings may be nil, in
// which case the holdings command reports that it is unavailable.
func NewCommandRouter(policy PolicyService, resolver core.MetadataResolver, holdings HoldingsService) *CommandRouter {
	return &CommandRouter{
		policy:   policy,
		resolver: resolver,
		holdings: holdings,
	}
}

// ExecuteCommand executes cmd on behalf of userID.
func (r *CommandRouter) ExecuteCommand(ctx context.Context, userID int64, cmd Command) (*Result, error) {
	if !r.policy.IsCommandAllowed(userID, cmd.Name) {
		err := fmt.Errorf("user %d: %w: %s", userID, ErrNotAllowed, cmd.Name)
		logger.ToolWarn("Command rejected: %v", err)
		return nil, err
	}

	logger.ToolDebug("Executing command '%s' for user %d with %d args", cmd.Name, userID, len(cmd.Args))

	var (
		result *Result
		err    error
	)

	switch cmd.Name {
	case "token":
		if len(cmd.Args) != 1 {
			return nil, errors.New("usage: token <address>")
		}
		var md *core.TokenMetadata
		md, err = r.resolver.Resolve(ctx, cmd.Args[0])
		if err != nil {
			break
		}
		result = &Result{Text: formatToken(md), PhotoURL: md.LogoURI}

	case "tokens":
		if len(cmd.Args) == 0 {
			return nil, errors.New("usage: tokens <address> [address...]")
		}
		if len(cmd.Args) > maxTokensPerCommand {
			return nil, fmt.Errorf("at most %d addresses per request", maxTokensPerCommand)
		}
		found := r.resolver.ResolveBatch(ctx, cmd.Args)
		result = &Result{Text: formatTokens(cmd.Args, found)}

	case "holdings":
		if len(cmd.Args) != 1 {
			return nil, errors.New("usage: holdings <wallet or name.sol>")
		}
		if r.holdings == nil {
			return nil, errors.New("holdings are not available")
		}
		var report *portfolio.Report
		report, err = r.holdings.Holdings(ctx, cmd.Args[0])
		if err != nil {
			break
		}
		result = &Result{Text: formatHoldings(report)}

	case "stats":
		result = &Result{Text: FormatStats(r.resolver.Stats())}

	case "preload":
		r.resolver.PreloadKnownLists(ctx)
		result = &Result{Text: "Token lists loaded.\n\n" + FormatStats(r.resolver.Stats())}

	case "clearcache":
		r.resolver.ClearCache()
		result = &Result{Text: "Metadata cache cleared."}

	default:
		err = fmt.Errorf("unknown command: %s", cmd.Name)
	}

	if err != nil {
		logger.ToolError("Command '%s' failed for user %d: %v", cmd.Name, userID, err)
		return nil, err
	}

	resultText := result.Text
	if len(resultText) > 100 {
		resultText = resultText[:100] + "..."
	}
	logger.ToolDebug("Command '%s' succeeded for user %d. Result: %q", cmd.Name, userID, resultText)
	return result, nil
}

func formatToken(md *core.TokenMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", md.Symbol, md.Name)
	fmt.Fprintf(&b, "Address: %s\n", md.Address)
	fmt.Fprintf(&b, "Decimals: %d\n", md.Decimals)
	fmt.Fprintf(&b, "Source: %s", md.Source)
	return b.String()
}

func formatTokens(requested []string, found map[string]*core.TokenMetadata) string {
	var b strings.Builder
	seen := make(map[string]bool, len(requested))
	for _, addr := range requested {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		md, ok := found[addr]
		if !ok {
			fmt.Fprintf(&b, "%s: unavailable\n", addr)
			continue
		}
		fmt.Fprintf(&b, "%s  %s  (%s, %s)\n", md.Symbol, addr, md.Name, md.Source)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHoldings(report *portfolio.Report) string {
	if len(report.Holdings) == 0 {
		return fmt.Sprintf("Wallet %s holds no SPL tokens.", report.Owner)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Wallet %s\n", report.Owner)
	for _, h := range report.Holdings {
		symbol := h.Mint
		if h.Metadata != nil {
			symbol = h.Metadata.Symbol
		}
		fmt.Fprintf(&b, "%s: %s\n", symbol, strconv.FormatFloat(h.Amount, 'f', -1, 64))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStats renders resolver stats as plain text.
func FormatStats(s core.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cached tokens: %d\n", s.CacheSize)
	fmt.Fprintf(&b, "Registry: loaded=%t entries=%d\n", s.RegistryLoaded, s.RegistryCount)
	fmt.Fprintf(&b, "Jupiter: loaded=%t entries=%d", s.JupiterLoaded, s.JupiterCount)
	if len(s.Hits) > 0 {
		sources := make([]string, 0, len(s.Hits))
		for src := range s.Hits {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		b.WriteString("\nHits:")
		for _, src := range sources {
			fmt.Fprintf(&b, " %s=%d", src, s.Hits[src])
		}
	}
	return b.String()
}
