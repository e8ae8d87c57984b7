// Package feedback records human judgments about completed exchanges:
// structured quality evaluations and end-user sentiment.
package feedback

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vnfmsqkek3/bedrock-observability-go/events"
	"github.com/vnfmsqkek3/bedrock-observability-go/trace"
)

// Rating is an end-user reaction to a completion.
type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNeutral  Rating = "neutral"
	RatingNegative Rating = "negative"
)

var ErrUnknownRating = errors.New("feedback: rating must be positive, neutral or negative")

// Evaluation scores one exchange on a 1 to 10 scale. Zero-valued sub-scores
// are treated as not assessed and omitted from the event.
type Evaluation struct {
	Overall      int
	Relevance    int
	Accuracy     int
	Completeness int
	Coherence    int
	Helpfulness  int
}

// Feedback is an end-user reaction with an optional free-text comment.
type Feedback struct {
	Rating  Rating
	Comment string
}

// Collector turns evaluations and feedback into telemetry events.
type Collector struct {
	serviceName string
	emit        func([]events.Event)
}

// NewCollector creates a Collector that hands finished events to emit.
func NewCollector(serviceName string, emit func([]events.Event)) *Collector {
	return &Collector{serviceName: serviceName, emit: emit}
}

// RecordEvaluation emits an evaluation event correlated to tc. Scores
// outside 1 to 10 are clamped and the event flagged.
func (c *Collector) RecordEvaluation(tc *trace.Context, eval Evaluation) {
	attrs := c.baseAttributes(tc)

	clamped := false
	attrs["overall_score"] = clampScore(eval.Overall, &clamped)
	addScore(attrs, "relevance_score", eval.Relevance, &clamped)
	addScore(attrs, "accuracy_score", eval.Accuracy, &clamped)
	addScore(attrs, "completeness_score", eval.Completeness, &clamped)
	addScore(attrs, "coherence_score", eval.Coherence, &clamped)
	addScore(attrs, "helpfulness_score", eval.Helpfulness, &clamped)
	if clamped {
		attrs["score_clamped"] = true
	}

	c.emit([]events.Event{{Type: events.TypeEvaluation, Attributes: attrs}})
}

// RecordFeedback emits a user-feedback event correlated to tc.
func (c *Collector) RecordFeedback(tc *trace.Context, fb Feedback) error {
	var sentiment int
	switch fb.Rating {
	case RatingPositive:
		sentiment = 1
	case RatingNegative:
		sentiment = -1
	case RatingNeutral:
		sentiment = 0
	default:
		return ErrUnknownRating
	}

	attrs := c.baseAttributes(tc)
	attrs["rating"] = string(fb.Rating)
	attrs["sentiment"] = sentiment
	if fb.Comment != "" {
		attrs["message"] = fb.Comment
	}

	c.emit([]events.Event{{Type: events.TypeFeedback, Attributes: attrs}})
	return nil
}

func (c *Collector) baseAttributes(tc *trace.Context) map[string]any {
	attrs := map[string]any{
		"id":              uuid.NewString(),
		"applicationName": c.serviceName,
		"vendor":          "bedrock",
		"timestamp":       time.Now().UnixMilli(),
	}
	if tc != nil {
		attrs["trace_id"] = tc.TraceID
		attrs["completion_id"] = tc.CompletionID
		if tc.ConversationID != "" {
			attrs["conversation_id"] = tc.ConversationID
		}
		if tc.UserID != "" {
			attrs["user_id"] = tc.UserID
		}
	}
	return attrs
}

func addScore(attrs map[string]any, key string, score int, clamped *bool) {
	if score == 0 {
		return
	}
	attrs[key] = clampScore(score, clamped)
}

func clampScore(score int, clamped *bool) int {
	switch {
	case score < 1:
		*clamped = true
		return 1
	case score > 10:
		*clamped = true
		return 10
	default:
		return score
	}
}
