package reset

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"k8s.io/klog/v2"

	"github.com/jetstack/winpass/api"
	"github.com/jetstack/winpass/pkg/logs"
	"github.com/jetstack/winpass/pkg/serial"
)

// poll reads the serial port until matcher finds a usable reply. Replies that
// are not available yet and failed reads are retried with exponential backoff
// until the polling timeout or ctx expires; every other outcome ends the wait.
func (r *Resetter) poll(ctx context.Context, instance Instance, matcher serial.Matcher, start int64) (*api.PasswordReply, error) {
	logger := klog.FromContext(ctx)
	polling := r.opts.Polling

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, polling.Timeout)
	defer cancel()

	operation := func() (*api.PasswordReply, error) {
		out, err := r.compute.SerialPortOutput(ctx, instance, r.opts.SerialPort, start)
		if err != nil {
			return nil, err
		}

		reply, err := matcher.Match(out.Contents)
		if err != nil {
			if api.KindOf(err).Retryable() {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		return reply, nil
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = polling.InitialInterval
	backOff.Multiplier = polling.Multiplier
	backOff.MaxInterval = polling.MaxInterval

	notify := func(err error, wait time.Duration) {
		logger.V(logs.Debug).Info("No usable reply yet", "reason", err.Error(), "retryIn", wait)
	}

	reply, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backOff),
		backoff.WithMaxElapsedTime(polling.Timeout),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return reply, nil
	}

	var replyErr *api.Error
	if errors.As(err, &replyErr) && !replyErr.Kind.Retryable() {
		return nil, replyErr
	}

	// The caller's deadline or cancellation fired before the polling timeout.
	if parentErr := parent.Err(); parentErr != nil {
		return nil, api.NewError(api.Timeout, "stopped waiting for a reply from the agent: %w", parentErr)
	}
	return nil, api.NewError(api.Timeout, "no reply from the agent within %s, last result: %w", polling.Timeout, err)
}
