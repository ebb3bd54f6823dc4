// Package main provides the AWS Lambda entry point for lookersync. Each
// invocation runs one full sync using credentials from the environment.
package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/lookersync"
	"github.com/agentstation/lookersync/internal/credentials"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
	"github.com/agentstation/lookersync/pkg/reconciler"
)

// Response is returned to the Lambda runtime after each invocation.
type Response struct {
	RunID   string               `json:"run_id"`
	Summary string               `json:"summary"`
	Changes bool                 `json:"changes"`
	Results []*reconciler.Result `json:"results"`
	// ErrorKind classifies a failed invocation, e.g. "credentials".
	ErrorKind string `json:"error_kind,omitempty"`
}

type handlerFunc func(ctx context.Context, event json.RawMessage) (*Response, error)

// newHandler builds the invocation handler. The event payload is ignored;
// every invocation reconciles all environments.
func newHandler(logger zerolog.Logger, opts ...lookersync.Option) handlerFunc {
	return func(ctx context.Context, _ json.RawMessage) (*Response, error) {
		runID := uuid.NewString()
		ctx = logging.WithLogger(ctx, &logger)
		ctx = logging.WithRunID(ctx, runID)

		syncOpts := append([]lookersync.Option{
			lookersync.WithProvider(credentials.NewEnvProvider()),
		}, opts...)

		report, err := lookersync.Sync(ctx, syncOpts...)
		resp := &Response{RunID: runID}
		if report != nil {
			resp.Summary = report.Summary()
			resp.Changes = report.HasChanges()
			resp.Results = report.Results
		}
		if err != nil {
			resp.ErrorKind = errors.Classify(err)
			logging.FromContext(ctx).Error().
				Err(err).
				Str("kind", resp.ErrorKind).
				Bool("retryable", errors.IsRateLimited(err) || errors.IsInstanceUnavailable(err)).
				Msg("Sync failed")
			return resp, err
		}
		return resp, nil
	}
}

func main() {
	// LOG_LEVEL, LOG_FORMAT and LOG_FIELDS come from the function configuration
	logging.ConfigureFromEnv()
	lambda.Start(newHandler(*logging.Default()))
}
