package classifications

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/archivist/internal/ai"
	"github.com/JaimeStill/archivist/internal/documents"
	"github.com/JaimeStill/archivist/internal/observability"
)

type classifier struct {
	docs     documents.System
	rules    RulesEngine
	ai       ai.Classifier
	catalog  CatalogSource
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

// New creates the classification System.
func New(deps Deps, cfg Config, logger *slog.Logger) System {
	c := &classifier{
		docs:     deps.Documents,
		rules:    deps.Rules,
		ai:       deps.AI,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		cfg:      cfg.normalize(),
		logger:   logger.With("system", "classifications"),
	}
	if c.ai == nil {
		c.ai = ai.Unavailable{}
	}
	return c
}

func (c *classifier) Handler() *Handler {
	return NewHandler(c, c.logger)
}

func (c *classifier) Settings() Settings {
	return Settings{
		Method:      c.cfg.Method,
		AutoApply:   c.cfg.AutoApply,
		Threshold:   c.cfg.Threshold,
		AIAvailable: c.ai.Available(),
	}
}

func (c *classifier) Classify(ctx context.Context, documentID uuid.UUID) (*Envelope, error) {
	doc, err := c.docs.Find(ctx, documentID)
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		DocumentID: documentID,
		MethodUsed: c.cfg.Method,
	}

	switch c.cfg.Method {
	case MethodRules:
		if err := c.useRules(ctx, doc, env); err != nil {
			return nil, err
		}

	case MethodAI:
		result, err := c.classifyAI(ctx, doc)
		if err == nil {
			env.AIResult = result
			env.Final = result
			env.Confidence = result.Confidence
			env.MethodUsed = MethodAI
			break
		}

		env.AIError = err.Error()
		if err := c.useRules(ctx, doc, env); err != nil {
			return nil, err
		}
		env.Final = env.Final.clone()
		env.Final.Method = MethodRulesFallback
		env.MethodUsed = MethodRulesFallback

	default:
		if err := c.useRules(ctx, doc, env); err != nil {
			return nil, err
		}

		if !c.ai.Available() {
			break
		}

		result, err := c.classifyAI(ctx, doc)
		if err != nil {
			env.AIError = err.Error()
			break
		}

		env.AIResult = result
		env.Final = Merge(env.RulesResult, result)
		env.Confidence = env.Final.Confidence
		env.MethodUsed = MethodAutoMerged
	}

	env.ShouldReview = ShouldReview(env.Confidence, c.cfg.Threshold)

	if c.cfg.AutoApply && !env.ShouldReview && env.Final != nil {
		if err := c.apply(ctx, documentID, env.Final); err != nil {
			c.logger.Error("auto apply failed", "document_id", documentID, "error", err)
		} else {
			env.AutoApplied = true
		}
	}

	observability.Classifications.
		WithLabelValues(string(env.MethodUsed), strconv.FormatBool(env.ShouldReview)).
		Inc()

	c.logger.Info(
		"document classified",
		"document_id", documentID,
		"method", env.MethodUsed,
		"confidence", env.Confidence,
		"should_review", env.ShouldReview,
		"auto_applied", env.AutoApplied,
	)

	return env, nil
}

func (c *classifier) Apply(ctx context.Context, documentID uuid.UUID, result *Result) error {
	if result == nil {
		return fmt.Errorf("%w: empty result", ErrInvalidResult)
	}
	if _, err := c.docs.Find(ctx, documentID); err != nil {
		return err
	}
	return c.apply(ctx, documentID, result)
}

func (c *classifier) useRules(ctx context.Context, doc *documents.Document, env *Envelope) error {
	result, err := c.rules.Classify(ctx, doc)
	if err != nil {
		return fmt.Errorf("rules classification: %w", err)
	}
	env.RulesResult = result
	env.Final = result
	env.Confidence = result.Confidence
	return nil
}

func (c *classifier) classifyAI(ctx context.Context, doc *documents.Document) (*Result, error) {
	if !c.ai.Available() {
		return nil, ai.ErrUnavailable
	}

	catalog := c.catalog.Catalog(ctx)

	suggestion, err := c.ai.Classify(ctx, ai.Request{
		Text:           doc.Text(),
		Correspondents: names(catalog.Correspondents),
		DocumentTypes:  names(catalog.DocumentTypes),
		Tags:           names(catalog.Tags),
	})
	if err != nil {
		c.logger.Warn("ai classification failed", "document_id", doc.ID, "error", err)
		return nil, err
	}

	return normalize(suggestion, catalog, c.cfg.DefaultAIConfidence), nil
}

func (c *classifier) apply(ctx context.Context, documentID uuid.UUID, result *Result) error {
	a, err := result.Assignment()
	if err != nil {
		return err
	}
	if a.Empty() {
		return nil
	}

	if err := c.docs.ApplyClassification(ctx, documentID, a); err != nil {
		return fmt.Errorf("apply classification: %w", err)
	}

	if c.notifier != nil {
		c.notifier.Trigger(ctx, EventClassified, map[string]any{
			"document_id": documentID,
			"method":      result.Method,
			"confidence":  result.Confidence,
			"assignment":  a,
		})
	}

	return nil
}
