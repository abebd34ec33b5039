package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
)

const (
	// CloudWatch Logs limits
	maxLogEventsPerRequest = 10000
	maxLogEventSize        = 256000 // 256 KB
)

// LogsPublisherConfig holds configuration for the CloudWatch Logs alert
// audit trail.
type LogsPublisherConfig struct {
	LogGroupName    string // CloudWatch log group name
	LogStreamName   string // CloudWatch log stream name
	Region          string // AWS region
	Endpoint        string // Optional endpoint override (for LocalStack)
	AccessKeyID     string // AWS access key
	SecretAccessKey string // AWS secret key
	BufferSize      int    // Buffer size before auto-flush
	FlushInterval   time.Duration
	AutoCreate      bool // Automatically create log group/stream if missing
}

// LogsPublisher writes dispatched alerts to CloudWatch Logs as an audit
// trail. It implements the alert sink port; alerts are buffered and
// shipped in batches.
type LogsPublisher struct {
	client        *cloudwatchlogs.Client
	logGroupName  string
	logStreamName string
	autoCreate    bool

	buffer     []*dto.AlertDTO
	bufferSize int
	mu         sync.Mutex

	sequenceToken *string // CloudWatch requires sequence tokens for ordering

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewLogsPublisher creates a new CloudWatch Logs alert publisher.
func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return nil, fmt.Errorf("log stream name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := cloudwatchlogs.NewFromConfig(awsCfg)

	p := &LogsPublisher{
		client:        client,
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		autoCreate:    cfg.AutoCreate,
		buffer:        make([]*dto.AlertDTO, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushTicker:   time.NewTicker(cfg.FlushInterval),
		stopCh:        make(chan struct{}),
	}

	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

// Name identifies the sink in dispatcher logs.
func (p *LogsPublisher) Name() string {
	return "cloudwatch-logs"
}

// Notify buffers one alert, flushing when the buffer fills.
func (p *LogsPublisher) Notify(ctx context.Context, alert *dto.AlertDTO) error {
	if alert == nil {
		return fmt.Errorf("alert cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, alert)

	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered alerts.
func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining alerts.
func (p *LogsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

// flushLoop runs in a background goroutine and flushes the buffer periodically.
func (p *LogsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil {
				// Retry on the next tick.
				_ = err
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *LogsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	// Sort by timestamp (CloudWatch Logs requirement)
	sort.Slice(p.buffer, func(i, j int) bool {
		return p.buffer[i].CreatedAt.Before(p.buffer[j].CreatedAt)
	})

	events := make([]types.InputLogEvent, 0, len(p.buffer))
	for _, alert := range p.buffer {
		event, err := p.convertToLogEvent(alert)
		if err != nil {
			// Skip malformed entries but don't fail the entire batch
			continue
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		p.buffer = p.buffer[:0]
		return nil
	}

	// Publish in chunks (CloudWatch Logs limit: 10,000 events/request)
	for i := 0; i < len(events); i += maxLogEventsPerRequest {
		end := i + maxLogEventsPerRequest
		if end > len(events) {
			end = len(events)
		}

		chunk := events[i:end]
		if err := p.publishLogEventsWithRetry(ctx, chunk); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]

	return nil
}

// publishLogEventsWithRetry publishes log events with retry logic.
func (p *LogsPublisher) publishLogEventsWithRetry(ctx context.Context, events []types.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		input := &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.logGroupName),
			LogStreamName: aws.String(p.logStreamName),
			LogEvents:     events,
			SequenceToken: p.sequenceToken,
		}

		output, err := p.client.PutLogEvents(ctx, input)
		if err == nil {
			p.sequenceToken = output.NextSequenceToken
			return nil
		}

		// Retry immediately with the token CloudWatch expected.
		var invalidSeqErr *types.InvalidSequenceTokenException
		if errors.As(err, &invalidSeqErr) {
			p.sequenceToken = invalidSeqErr.ExpectedSequenceToken
			continue
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// convertToLogEvent renders one alert as a structured JSON log event.
func (p *LogsPublisher) convertToLogEvent(alert *dto.AlertDTO) (types.InputLogEvent, error) {
	logData := map[string]interface{}{
		"timestamp":       alert.CreatedAt.Format(time.RFC3339Nano),
		"alert_id":        alert.ID,
		"resource_id":     alert.ResourceID,
		"tier":            alert.Tier,
		"severity":        alert.Severity,
		"message":         alert.Message,
		"action_required": alert.ActionRequired,
	}
	if len(alert.RecommendedActions) > 0 {
		logData["recommended_actions"] = alert.RecommendedActions
	}

	messageJSON, err := json.Marshal(logData)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal alert: %w", err)
	}

	// Truncate if exceeds CloudWatch limit
	message := string(messageJSON)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(alert.CreatedAt.UnixMilli()),
	}, nil
}

// ensureLogGroupAndStream creates the log group and stream if they don't exist.
func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.logGroupName),
	})
	if err != nil {
		var alreadyExists *types.ResourceAlreadyExistsException
		if !errors.As(err, &alreadyExists) {
			return fmt.Errorf("failed to create log group: %w", err)
		}
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.logGroupName),
		LogStreamName: aws.String(p.logStreamName),
	})
	if err != nil {
		var alreadyExists *types.ResourceAlreadyExistsException
		if !errors.As(err, &alreadyExists) {
			return fmt.Errorf("failed to create log stream: %w", err)
		}
	}

	return nil
}
