package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"corrMinvar/internal/config"
	"corrMinvar/internal/finance"
	"corrMinvar/internal/metrics"
	"corrMinvar/internal/storage"
)

var (
	// /minvar TARGET T1 T2 ... [YYYY-YYYY] [method=mc|pg] [period=1y|1mo|1d]
	reMinVar = regexp.MustCompile(`^/minvar(?:@[\w_]+)?(?:\s+.*)?$`)
	// /history [N]
	reHistory = regexp.MustCompile(`^/history(?:@[\w_]+)?(?:\s+(\d+))?$`)
	// /help
	reHelp = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// maxCorrelationTickers keeps the correlation table readable on a phone.
const maxCorrelationTickers = 15

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type analyzer interface {
	Analyze(ctx context.Context, req finance.Request) (*finance.Analysis, error)
}

type history interface {
	SaveRun(rec storage.RunRecord) (string, error)
	RecentRuns(chatID int64, limit int) ([]storage.RunRecord, error)
}

type commentator interface {
	Explain(ctx context.Context, summary string) (string, error)
}

// Deps are the collaborators of the handlers. History and Commentator are optional.
type Deps struct {
	Config      config.Config
	Analyzer    analyzer
	History     history
	Commentator commentator
	Timeout     time.Duration
}

type Handlers struct {
	api  sender
	deps Deps
}

func NewHandlers(api sender, deps Deps) *Handlers {
	if deps.Timeout <= 0 {
		deps.Timeout = 5 * time.Minute
	}
	return &Handlers{api: api, deps: deps}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reMinVar.MatchString(txt):
		metrics.BotCommands.WithLabelValues("minvar").Inc()
		cmd, err := finance.ParseMinVarCommand(txt)
		if err != nil {
			h.reply(m.Chat.ID, "Usage error: "+err.Error()+"\n\n"+helpText)
			return
		}
		h.handleMinVar(m.Chat.ID, cmd)

	case reHistory.MatchString(txt):
		metrics.BotCommands.WithLabelValues("history").Inc()
		h.handleHistory(m.Chat.ID, historyLimit(txt))

	case reHelp.MatchString(txt):
		metrics.BotCommands.WithLabelValues("help").Inc()
		h.reply(m.Chat.ID, helpText)
	}
}

// requestFor fills the parts of cmd the user left out from the configured defaults.
func requestFor(cfg config.Config, cmd finance.MinVarCommand) finance.Request {
	opts := cfg.PortfolioOptions(cmd.Target)
	if cmd.Method != "" {
		opts.Method = cmd.Method
	}
	span := finance.Span{StartYear: cfg.Data.StartYear, EndYear: cfg.Data.EndYear}
	if cmd.Span != nil {
		span = *cmd.Span
	}
	period := cmd.Period
	if period == "" {
		period, _ = finance.ParsePeriod(cfg.Data.Period)
	}
	return finance.Request{
		Symbols: cmd.Symbols,
		Span:    span,
		Period:  period,
		Options: opts,
		Seed:    cfg.Optimizer.Seed,
	}
}

func (h *Handlers) handleMinVar(chatID int64, cmd finance.MinVarCommand) {
	req := requestFor(h.deps.Config, cmd)
	h.reply(chatID, fmt.Sprintf("Optimizing %d tickers for %.2f%% over %s (%s)…", len(req.Symbols), req.Options.Target, req.Span, req.Options.Method))

	ctx, cancel := context.WithTimeout(context.Background(), h.deps.Timeout)
	defer cancel()
	an, err := h.deps.Analyzer.Analyze(ctx, req)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: minvar failed")
		h.reply(chatID, "Optimization failed: "+err.Error())
		return
	}

	summary := finance.FormatSummary(an, finance.SummaryOptions{})
	h.reply(chatID, summary)

	h.sendChart(chatID, "allocation", an, finance.MakeAllocationChart)
	h.sendChart(chatID, "performance", an, finance.MakePerformanceChart)
	if len(an.Result.Instruments) <= maxCorrelationTickers {
		h.sendChart(chatID, "correlation", an, finance.MakeCorrelationChart)
	}

	if h.deps.History != nil {
		if _, err := h.deps.History.SaveRun(an.Record(chatID)); err != nil {
			log.Warn().Err(err).Msg("telegram: failed to save run")
		}
	}
	if h.deps.Commentator != nil {
		text, err := h.deps.Commentator.Explain(ctx, summary)
		if err != nil {
			log.Warn().Err(err).Msg("telegram: commentary failed")
			return
		}
		h.reply(chatID, text)
	}
}

func (h *Handlers) sendChart(chatID int64, name string, an *finance.Analysis, render func(*finance.Analysis) ([]byte, error)) {
	img, err := render(an)
	if err != nil {
		log.Warn().Err(err).Str("chart", name).Msg("telegram: chart failed")
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "minvar_" + name + ".png", Bytes: img})
	photo.Caption = strings.Join(an.Result.Tickers(), ", ") + " • " + an.Request.Span.String()
	if _, err := h.api.Send(photo); err != nil {
		log.Warn().Err(err).Str("chart", name).Msg("telegram: send photo failed")
	}
}

// historyLimit reads N from "/history N", clamped to 1..20. Anything unparsable gets the default.
func historyLimit(txt string) int {
	const def = 5
	g := reHistory.FindStringSubmatch(txt)
	if len(g) != 2 || g[1] == "" {
		return def
	}
	n, err := strconv.Atoi(g[1])
	if err != nil {
		return def
	}
	return min(max(n, 1), 20)
}

func (h *Handlers) handleHistory(chatID int64, n int) {
	if h.deps.History == nil {
		h.reply(chatID, "History is not enabled.")
		return
	}
	runs, err := h.deps.History.RecentRuns(chatID, n)
	if err != nil {
		h.reply(chatID, "History failed: "+err.Error())
		return
	}
	if len(runs) == 0 {
		h.reply(chatID, "No runs yet. Try /minvar 10 KO PEP JNJ")
		return
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%s • %s • target %.2f%% • %s • var %.4f\n", r.CreatedAt.UTC().Format("2006-01-02 15:04"), r.Method, r.Target, r.Span, r.Variance)
		for i, p := range r.Positions {
			if i == 5 {
				fmt.Fprintf(&b, "   … %d more\n", len(r.Positions)-5)
				break
			}
			fmt.Fprintf(&b, "   %s %.2f%%\n", p.Ticker, p.Position)
		}
	}
	h.reply(chatID, b.String())
}

const helpText = `Commands:
/minvar TARGET T1 T2 … [YYYY-YYYY] [method=mc|pg] [period=1y|1mo|1d]
  Minimum-variance weights for tickers whose average return is within ±10 of TARGET (percent).
  e.g. /minvar 10 KO PEP JNJ PG 2010-2020
/history [N] - your last N optimizations
/help - this message`

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: send failed")
	}
}
