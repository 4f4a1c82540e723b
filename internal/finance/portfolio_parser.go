package finance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"corrMinvar/internal/portfolio"
)

var (
	spanRe   = regexp.MustCompile(`^\d{4}[-:]\d{4}$`)
	tickerRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-^=]{0,14}$`)
)

// ReadTickers reads a CSV with a one-line header and the ticker in the first
// column. Blank rows are skipped and repeated tickers kept once, first wins.
func ReadTickers(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("ticker file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var out []string
	seen := map[string]bool{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ticker file: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(rec[0]))
		if sym == "" || seen[sym] {
			continue
		}
		if !tickerRe.MatchString(sym) {
			return nil, fmt.Errorf("invalid ticker %q", rec[0])
		}
		seen[sym] = true
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil, errors.New("no tickers found")
	}
	return out, nil
}

// MinVarCommand is a parsed /minvar request. Zero fields mean "use the configured default".
type MinVarCommand struct {
	Target  float64
	Symbols []string
	Span    *Span
	Method  portfolio.Method
	Period  Period
}

// ParseMinVarCommand parses a bot command.
// Format: /minvar 10 AAPL KO PEP 2010-2020 method=pg period=1mo
func ParseMinVarCommand(input string) (MinVarCommand, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "/minvar") {
		input = strings.TrimSpace(input[len("/minvar"):])
		// "/minvar@SomeBot args" in group chats
		if strings.HasPrefix(input, "@") {
			if i := strings.IndexAny(input, " \t"); i >= 0 {
				input = strings.TrimSpace(input[i:])
			} else {
				input = ""
			}
		}
	}

	parts := strings.Fields(input)
	if len(parts) < 2 {
		return MinVarCommand{}, errors.New("insufficient arguments: need a target and at least one ticker")
	}

	var cmd MinVarCommand
	target, err := strconv.ParseFloat(strings.TrimSuffix(parts[0], "%"), 64)
	if err != nil {
		return MinVarCommand{}, fmt.Errorf("invalid target '%s': %w", parts[0], err)
	}
	cmd.Target = target

	seen := map[string]bool{}
	for _, p := range parts[1:] {
		lower := strings.ToLower(p)
		switch {
		case strings.HasPrefix(lower, "method="):
			m, err := portfolio.ParseMethod(strings.TrimPrefix(lower, "method="))
			if err != nil {
				return MinVarCommand{}, err
			}
			cmd.Method = m
		case strings.HasPrefix(lower, "period="):
			per, err := ParsePeriod(strings.TrimPrefix(lower, "period="))
			if err != nil {
				return MinVarCommand{}, err
			}
			cmd.Period = per
		case spanRe.MatchString(p):
			span, err := ParseSpan(p)
			if err != nil {
				return MinVarCommand{}, err
			}
			cmd.Span = &span
		default:
			sym := strings.ToUpper(strings.Trim(p, ","))
			if !tickerRe.MatchString(sym) {
				return MinVarCommand{}, fmt.Errorf("invalid ticker '%s'", p)
			}
			if seen[sym] {
				return MinVarCommand{}, fmt.Errorf("duplicate symbol: %s", sym)
			}
			seen[sym] = true
			cmd.Symbols = append(cmd.Symbols, sym)
		}
	}
	if len(cmd.Symbols) == 0 {
		return MinVarCommand{}, errors.New("no tickers given")
	}
	return cmd, nil
}
