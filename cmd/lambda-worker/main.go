package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"resume-screener/internal/bootstrap"
	"resume-screener/internal/shared/config"
	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/telemetry"
	"resume-screener/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.Env); err != nil {
		initErr = err
		return
	}
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processRecords(ctx, app.Screenings, event.Records), nil
}

// processRecords reports only retryable failures; unreadable records and
// screenings that no longer exist are dropped.
func processRecords(ctx context.Context, proc workerproc.Processor, records []events.SQSMessage) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range records {
		metrics.IncScreeningJob("received")
		msg, _, err := workerproc.ParseMessage(record.Body)
		if err == nil {
			err = workerproc.HandleMessage(ctx, proc, msg)
		}
		if err == nil {
			continue
		}
		telemetry.Error("lambda.screening_failed", map[string]any{
			"sqs_message_id": record.MessageId,
			"screening_id":   msg.ScreeningID,
			"request_id":     msg.RequestID,
			"error":          err,
		})
		if workerproc.Unrecoverable(err) {
			metrics.IncScreeningJob("deleted_unrecoverable")
			continue
		}
		metrics.IncScreeningJob("retry")
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
