// Package advisor answers finance questions through an OpenAI-compatible chat
// completion endpoint, grounding every conversation in the user's own
// transaction aggregates.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finboard/internal/analytics"
	"finboard/internal/core"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"

	// HistoryLimit is how many prior messages accompany a question.
	HistoryLimit = 8
	// RecentLimit is how many trailing transactions the prompt lists.
	RecentLimit = 10
)

var (
	ErrNotConfigured = errors.New("advisor not configured: missing API key")
	ErrEmptyReply    = errors.New("no response from advisor")
	ErrEmptyQuestion = errors.New("empty question")
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter is the part of the go-openai client the advisor uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	CurrencySymbol string
}

type Advisor struct {
	client   ChatCompleter
	model    string
	currency string
}

// New returns an advisor backed by the OpenAI-compatible endpoint in cfg.
// Without an API key every Ask fails with ErrNotConfigured.
func New(cfg Config) *Advisor {
	var client ChatCompleter
	if strings.TrimSpace(cfg.APIKey) != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = cfg.BaseURL
		if oc.BaseURL == "" {
			oc.BaseURL = DefaultBaseURL
		}
		client = openai.NewClientWithConfig(oc)
	}
	return NewWithClient(client, cfg)
}

// NewWithClient wires an explicit completer; a nil client leaves the advisor
// unconfigured.
func NewWithClient(client ChatCompleter, cfg Config) *Advisor {
	a := &Advisor{client: client, model: cfg.Model, currency: cfg.CurrencySymbol}
	if a.model == "" {
		a.model = DefaultModel
	}
	if a.currency == "" {
		a.currency = "$"
	}
	return a
}

func (a *Advisor) Configured() bool {
	return a.client != nil
}

// Ask sends the question with the tail of history and a system prompt built
// from txs, and returns the assistant's reply.
func (a *Advisor) Ask(ctx context.Context, question string, history []Message, txs []core.Transaction) (string, error) {
	if a.client == nil {
		return "", ErrNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(txs, a.currency)})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role(m.Role), Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    msgs,
		Temperature: 0.7,
		MaxTokens:   500,
		TopP:        0.9,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Chat completion failed", "component", "advisor", "model", a.model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}

	slog.DebugContext(ctx, "Chat completion",
		"component", "advisor",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

// role keeps client-supplied roles to user and assistant; a caller cannot
// inject a second system prompt.
func role(r string) string {
	if r == openai.ChatMessageRoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

// BuildSystemPrompt summarizes txs for the model: totals, the expense
// breakdown in first-seen order and the last RecentLimit transactions.
func BuildSystemPrompt(txs []core.Transaction, currency string) string {
	sum := analytics.Summarize(txs)
	money := func(m core.Money) string { return currency + m.String() }

	var b strings.Builder
	b.WriteString("You are a professional financial advisor assistant for a personal finance dashboard.\n\n")
	b.WriteString("USER'S FINANCIAL DATA:\n")
	fmt.Fprintf(&b, "- Total Income: %s\n", money(sum.TotalIncome))
	fmt.Fprintf(&b, "- Total Expenses: %s\n", money(sum.TotalExpenses))
	fmt.Fprintf(&b, "- Net Balance: %s\n", money(sum.Balance))
	fmt.Fprintf(&b, "- Total Transactions: %d\n\n", sum.TransactionCount)

	b.WriteString("EXPENSE BREAKDOWN BY CATEGORY:\n")
	for _, c := range analytics.CategoryBreakdown(txs, analytics.ScopeExpense) {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, money(c.Amount))
	}

	recent := txs
	if len(recent) > RecentLimit {
		recent = recent[len(recent)-RecentLimit:]
	}
	parts := make([]string, len(recent))
	for i, t := range recent {
		parts[i] = fmt.Sprintf("%s on %s - %s", money(t.Amount), t.EffectiveCategory(), t.Description)
	}
	fmt.Fprintf(&b, "\nRECENT TRANSACTIONS: %s\n\n", strings.Join(parts, ", "))

	b.WriteString(`INSTRUCTIONS:
1. Provide personalized financial advice based on the user's actual transaction data
2. Use ` + currency + ` for all currency references
3. Be specific and reference their actual spending patterns
4. Offer actionable insights and recommendations
5. Keep responses conversational but professional
6. If asked about specific transactions or categories, refer to their actual data
7. Help with budgeting, saving, expense optimization, and financial planning

Always base your advice on their real financial data shown above.`)
	return b.String()
}

// Fallback returns canned guidance for when the advisor is not configured or
// the endpoint fails.
func Fallback(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "budget") || strings.Contains(q, "spending"):
		return "I can help you create a budget! The 50/30/20 rule is a great starting point: 50% for needs, 30% for wants, and 20% for savings. Once the assistant is configured I can analyze your current spending patterns."
	case strings.Contains(q, "save") || strings.Contains(q, "saving"):
		return "Some saving tips: set up automatic transfers to savings, review recurring subscriptions and track your expenses regularly. For advice based on your transactions, configure the assistant."
	case strings.Contains(q, "expense") || strings.Contains(q, "transaction"):
		return "Once the assistant is configured with an API key it can analyze your actual transaction data and give personalized recommendations."
	default:
		return "I'm here to help with your finances! Configure an API key to get advice based on your actual transaction data. Until then, I can offer general financial guidance."
	}
}
