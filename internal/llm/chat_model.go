package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/askiada/go-relay/pkg/pipeline"
)

var (
	ErrModelMustBeSet = errors.New("chat model must be set")
	ErrEmptyAnswer    = errors.New("empty answer")
)

// DefaultBackoff is the wait before the first retry. It doubles at every attempt.
const DefaultBackoff = time.Second

const maxBackoff = 10 * time.Second

// ChatModel is a pipeline.Model backed by an eino chat model.
type ChatModel struct {
	model       model.BaseChatModel
	logger      *zap.Logger
	limiter     *rate.Limiter
	tmpl        *template.Template
	temperature *float32
	name        string
	system      string
	timeout     time.Duration
	retries     int
	backoff     time.Duration
}

// Option configures a ChatModel.
type Option func(c *ChatModel) error

// WithName sets the collaborator name used in errors and logs.
func WithName(name string) Option {
	return func(c *ChatModel) error {
		c.name = name

		return nil
	}
}

// WithSystemPrompt sets the system message sent before every prompt.
func WithSystemPrompt(system string) Option {
	return func(c *ChatModel) error {
		c.system = system

		return nil
	}
}

// WithTemplate sets the template rendering the prompt context into the user message.
// The template is executed with the prompt context map as data.
func WithTemplate(text string) Option {
	return func(c *ChatModel) error {
		tmpl, err := template.New(c.name).Option("missingkey=error").Parse(text)
		if err != nil {
			return errors.Wrap(err, "unable to parse prompt template")
		}

		c.tmpl = tmpl

		return nil
	}
}

// WithRetries sets how many times a retryable failure is retried, and the first backoff.
func WithRetries(retries int, backoff time.Duration) Option {
	return func(c *ChatModel) error {
		c.retries = retries
		c.backoff = backoff

		return nil
	}
}

// WithTimeout bounds every attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *ChatModel) error {
		c.timeout = timeout

		return nil
	}
}

// WithRateLimit allows at most requestsPerSecond calls per second. Zero disables the limit.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *ChatModel) error {
		if requestsPerSecond <= 0 {
			c.limiter = nil

			return nil
		}

		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)

		return nil
	}
}

// WithTemperature sets the sampling temperature of every call.
func WithTemperature(temperature float32) Option {
	return func(c *ChatModel) error {
		c.temperature = &temperature

		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *ChatModel) error {
		if logger != nil {
			c.logger = logger
		}

		return nil
	}
}

// NewChatModel wraps cm.
func NewChatModel(cm model.BaseChatModel, opts ...Option) (*ChatModel, error) {
	if cm == nil {
		return nil, ErrModelMustBeSet
	}

	c := &ChatModel{
		model:   cm,
		logger:  zap.NewNop(),
		name:    "chat-model",
		backoff: DefaultBackoff,
	}

	for _, opt := range opts {
		err := opt(c)
		if err != nil {
			return nil, err
		}
	}

	c.logger = c.logger.With(zap.String("collaborator", c.name))

	return c, nil
}

// Infer renders prompt, calls the model and returns the text of the answer.
func (c *ChatModel) Infer(ctx context.Context, prompt map[string]any) (any, error) {
	msgs, err := c.messages(prompt)
	if err != nil {
		return nil, pipeline.NewServiceError(c.name, err)
	}

	var opts []model.Option
	if c.temperature != nil {
		opts = append(opts, model.WithTemperature(*c.temperature))
	}

	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			if wait > maxBackoff {
				wait = maxBackoff
			}

			c.logger.Info("retrying model call", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return nil, pipeline.NewServiceError(c.name, errors.Wrap(ctx.Err(), "retry interrupted"))
			case <-time.After(wait):
			}
		}

		answer, err := c.generate(ctx, msgs, opts)
		if err == nil {
			return answer, nil
		}

		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}

	return nil, pipeline.NewServiceError(c.name, lastErr)
}

func (c *ChatModel) generate(ctx context.Context, msgs []*schema.Message, opts []model.Option) (string, error) {
	if c.limiter != nil {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return "", errors.Wrap(err, "rate limiter")
		}
	}

	attemptCtx := ctx

	if c.timeout > 0 {
		var cancel context.CancelFunc

		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.model.Generate(attemptCtx, msgs, opts...)
	if err != nil {
		return "", errors.Wrap(err, "generate")
	}

	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyAnswer
	}

	return out.Content, nil
}

// messages builds the system and user messages. []byte values of the prompt context
// are attached as images, every other value goes through the template.
func (c *ChatModel) messages(prompt map[string]any) ([]*schema.Message, error) {
	text, err := c.render(prompt)
	if err != nil {
		return nil, err
	}

	user := schema.UserMessage(text)

	for _, key := range sortedKeys(prompt) {
		img, ok := prompt[key].([]byte)
		if !ok {
			continue
		}

		if len(user.MultiContent) == 0 {
			user.MultiContent = append(user.MultiContent, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeText,
				Text: text,
			})
		}

		user.MultiContent = append(user.MultiContent, schema.ChatMessagePart{
			Type:     schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{URL: dataURL(img)},
		})
	}

	var msgs []*schema.Message
	if c.system != "" {
		msgs = append(msgs, schema.SystemMessage(c.system))
	}

	return append(msgs, user), nil
}

func (c *ChatModel) render(prompt map[string]any) (string, error) {
	if c.tmpl == nil {
		var buf strings.Builder

		for _, key := range sortedKeys(prompt) {
			if _, ok := prompt[key].([]byte); ok {
				continue
			}

			buf.WriteString(key)
			buf.WriteString(": ")
			buf.WriteString(toText(prompt[key]))
			buf.WriteString("\n")
		}

		return buf.String(), nil
	}

	var buf bytes.Buffer

	err := c.tmpl.Execute(&buf, prompt)
	if err != nil {
		return "", errors.Wrap(err, "unable to render prompt")
	}

	return buf.String(), nil
}

func dataURL(img []byte) string {
	return "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// retryable tells transient failures (timeouts, connection errors, rate limits) from the others.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout", "timed out", "connection reset", "connection refused",
		"eof", "429", "too many requests", "503", "502", "unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

var _ pipeline.Model = (*ChatModel)(nil)
