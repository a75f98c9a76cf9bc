package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/codeGROOVE-dev/igfinder/pkg/htmlutil"
	"github.com/codeGROOVE-dev/igfinder/pkg/profile"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
)

// Defaults for the Gemini OpenAI-compatible endpoint.
const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel        = "gemini-2.0-flash"
	DefaultPromptTokens = 6000
)

const systemPrompt = `You match people to their Instagram accounts. ` +
	`Answer with a single JSON object and nothing else.`

const instructions = `Decide which of these Instagram profiles most likely belongs to the person.
Consider:
- similarity between the profile full_name and the person's name
- whether the location appears in the biography or snippet
- signs of a personal rather than business account
- professional details in the biography that relate to the person
- whether follower and post counts look like a real person
- verification status and category
- public emails that match or resemble the person's name or email

Return JSON with these fields:
  best_match: the most likely username, or "No match found"
  confidence_score: 0-100
  ranked_usernames: every username, most to least likely
  reasoning: a brief explanation of the choice`

// TokenCounter returns the number of prompt tokens in s.
type TokenCounter func(ctx context.Context, s string) int

// LLM ranks candidates with an OpenAI-compatible chat completion API.
type LLM struct {
	client openai.Client
	logger *slog.Logger
	count  TokenCounter
	model  string
	budget int
	calls  atomic.Int64
}

// LLMOption configures an LLM.
type LLMOption func(*llmConfig)

type llmConfig struct {
	logger  *slog.Logger
	count   TokenCounter
	baseURL string
	model   string
	budget  int
	retries int
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) LLMOption {
	return func(c *llmConfig) { c.logger = logger }
}

// WithBaseURL sets the chat completion endpoint.
func WithBaseURL(u string) LLMOption {
	return func(c *llmConfig) { c.baseURL = u }
}

// WithModel sets the model name.
func WithModel(m string) LLMOption {
	return func(c *llmConfig) { c.model = m }
}

// WithPromptTokens caps the size of the candidate block sent to the model.
func WithPromptTokens(n int) LLMOption {
	return func(c *llmConfig) { c.budget = n }
}

// WithTokenCounter replaces the tiktoken-based counter.
func WithTokenCounter(fn TokenCounter) LLMOption {
	return func(c *llmConfig) { c.count = fn }
}

// WithMaxRetries sets how often the client retries a failed completion.
func WithMaxRetries(n int) LLMOption {
	return func(c *llmConfig) { c.retries = n }
}

// NewLLM creates an LLM ranker authenticated with apiKey.
func NewLLM(apiKey string, opts ...LLMOption) *LLM {
	cfg := &llmConfig{
		logger:  slog.Default(),
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		budget:  DefaultPromptTokens,
		retries: 2,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.count == nil {
		cfg.count = tiktokenCounter(cfg.model, cfg.logger)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithMaxRetries(cfg.retries),
	)
	return &LLM{
		client: client,
		logger: cfg.logger,
		count:  cfg.count,
		model:  cfg.model,
		budget: cfg.budget,
	}
}

// Calls returns how many completions were requested.
func (l *LLM) Calls() int64 {
	return l.calls.Load()
}

// Rank implements Ranker. Model or parsing failures degrade to Fallback; only
// context cancellation is returned as an error.
func (l *LLM) Rank(ctx context.Context, person profile.Person, result *profile.SearchResult) (*profile.Verdict, error) {
	if result.Empty() {
		return NoCandidates(), nil
	}

	prompt := l.Prompt(ctx, person, result)
	l.calls.Add(1)
	l.logger.InfoContext(ctx, "ranking candidates", "name", person.Name, "candidates", len(result.Usernames), "model", l.model)

	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rank %s: %w", person.Name, ctx.Err())
		}
		l.logger.WarnContext(ctx, "ranking request failed, using fallback", "name", person.Name, "error", err)
		return Fallback(result, "LLM error, using fallback"), nil
	}
	if len(resp.Choices) == 0 {
		l.logger.WarnContext(ctx, "ranking reply had no choices, using fallback", "name", person.Name)
		return Fallback(result, "Fallback due to LLM parsing error"), nil
	}

	text := resp.Choices[0].Message.Content
	v, err := ParseVerdict(text, result)
	if err != nil {
		l.logger.WarnContext(ctx, "parsing ranking reply failed, using fallback",
			"name", person.Name,
			"error", err,
			"reply", htmlutil.Truncate(text, 500))
		return Fallback(result, "Fallback due to LLM parsing error"), nil
	}

	l.logger.InfoContext(ctx, "ranked candidates", "name", person.Name, "best_match", v.BestMatch, "confidence", v.Confidence)
	return v, nil
}

// Prompt renders the user message for person and result. Candidates are listed
// in discovery order; trailing candidates are dropped while the candidate block
// exceeds the token budget, but at least one is always kept.
func (l *LLM) Prompt(ctx context.Context, person profile.Person, result *profile.SearchResult) string {
	header := fmt.Sprintf("Person:\nName: %s\nLocation: %s\n", person.Name, person.Location)
	if person.Email != "" {
		header += "Email: " + person.Email + "\n"
	}

	candidates := make([]*profile.Candidate, 0, len(result.Usernames))
	for _, u := range result.Usernames {
		if c, ok := result.Candidates[u]; ok {
			candidates = append(candidates, c)
		}
	}

	block := candidateBlock(candidates)
	for len(candidates) > 1 && l.budget > 0 && l.count(ctx, block) > l.budget {
		candidates = candidates[:len(candidates)-1]
		block = candidateBlock(candidates)
	}
	if dropped := len(result.Usernames) - len(candidates); dropped > 0 {
		l.logger.DebugContext(ctx, "candidate list trimmed to fit prompt budget", "dropped", dropped, "budget", l.budget)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\nCandidate profiles found through search, with metadata:\n")
	b.WriteString(block)
	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String()
}

func candidateBlock(cs []*profile.Candidate) string {
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

var (
	encodingsMu sync.Mutex
	encodings   = map[string]*tiktoken.Tiktoken{}
)

// tiktokenCounter counts with the model's encoding, or cl100k_base for models
// tiktoken does not know. Without an encoding it estimates four bytes per token.
func tiktokenCounter(model string, logger *slog.Logger) TokenCounter {
	return func(ctx context.Context, s string) int {
		encodingsMu.Lock()
		tkm, ok := encodings[model]
		if !ok {
			var err error
			tkm, err = tiktoken.EncodingForModel(model)
			if err != nil {
				tkm, err = tiktoken.GetEncoding("cl100k_base")
			}
			if err != nil {
				logger.DebugContext(ctx, "tokenizer unavailable, estimating", "model", model, "error", err)
				tkm = nil
			}
			encodings[model] = tkm
		}
		encodingsMu.Unlock()

		if tkm == nil {
			return len(s)/4 + 1
		}
		return len(tkm.Encode(s, nil, nil))
	}
}
