package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"study_eval/internal/servereval"
)

const (
	requestedKeyPrefix = "study:analysis:requested:"
	requestsCollection = "analysis_requests"

	// a chapter can be requested again once this expires
	requestedTTL = 24 * time.Hour
)

type AnalysisRequest struct {
	ID          string    `json:"id" bson:"_id"`
	ChapterID   string    `json:"chapter_id" bson:"chapter_id"`
	RequestedAt time.Time `json:"requested_at" bson:"requested_at"`
}

func NewAnalysisRequest(chapterID string, now time.Time) AnalysisRequest {
	return AnalysisRequest{
		ID:          uuid.New().String(),
		ChapterID:   chapterID,
		RequestedAt: now.UTC(),
	}
}

// requestPublisher is implemented by senders that can publish a request built
// upstream, keeping its id.
type requestPublisher interface {
	publish(ctx context.Context, req AnalysisRequest) error
}

func requestedKey(chapterID string) string {
	return requestedKeyPrefix + chapterID
}

// AnalysisRequestPublisher queues analysis requests on a redis channel for
// the analysis workers. A chapter already queued is not published again.
type AnalysisRequestPublisher struct {
	redis   *redis.Client
	channel string
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewAnalysisRequestPublisher(redis *redis.Client, channel string, log *zap.SugaredLogger) *AnalysisRequestPublisher {
	return &AnalysisRequestPublisher{
		redis:   redis,
		channel: channel,
		log:     log,
		now:     time.Now,
	}
}

func (p *AnalysisRequestPublisher) RequestAnalysis(ctx context.Context, chapterID string) error {
	return p.publish(ctx, NewAnalysisRequest(chapterID, p.now()))
}

func (p *AnalysisRequestPublisher) publish(ctx context.Context, req AnalysisRequest) error {
	chapterID := req.ChapterID
	key := requestedKey(chapterID)

	fresh, err := p.redis.SetNX(ctx, key, req.ID, requestedTTL).Result()
	if err != nil {
		return fmt.Errorf("mark chapter %s requested: %w", chapterID, err)
	}
	if !fresh {
		p.log.Infof("analysis of chapter %s is already queued", chapterID)
		return nil
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err = p.redis.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.redis.Del(ctx, key)
		return fmt.Errorf("publish analysis request: %w", err)
	}

	p.log.Infow("analysis request published", "id", req.ID, "chapter", chapterID, "channel", p.channel)
	return nil
}

// AnalysisRequestJournal records every request in mongo, then hands it to next.
// A failed insert does not stop the request. A publisher as next reuses the
// journaled request id.
type AnalysisRequestJournal struct {
	collection *mongo.Collection
	next       servereval.RequestSender
	log        *zap.SugaredLogger
	now        func() time.Time
	newRequest func(chapterID string, now time.Time) AnalysisRequest
}

func NewAnalysisRequestJournal(db *mongo.Database, next servereval.RequestSender, log *zap.SugaredLogger) *AnalysisRequestJournal {
	return &AnalysisRequestJournal{
		collection: db.Collection(requestsCollection),
		next:       next,
		log:        log,
		now:        time.Now,
		newRequest: NewAnalysisRequest,
	}
}

func (j *AnalysisRequestJournal) RequestAnalysis(ctx context.Context, chapterID string) error {
	req := j.newRequest(chapterID, j.now())

	ctxInsert, cancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := j.collection.InsertOne(ctxInsert, req)
	cancel()
	if err != nil {
		j.log.Errorf("failed to journal analysis request for chapter %s: %v", chapterID, err)
	}

	if p, ok := j.next.(requestPublisher); ok {
		return p.publish(ctx, req)
	}
	return j.next.RequestAnalysis(ctx, chapterID)
}
