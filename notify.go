package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// NotifyTimeout bounds every outbound notification attempt.
const NotifyTimeout = 5 * time.Second

// HTTPNotifier posts notification payloads to a delivery service. Failures
// are returned to the caller but registration and verification flows only
// log them.
type HTTPNotifier struct {
	url     string
	timeout time.Duration
	logger  Logger
}

func NewHTTPNotifier(url string) *HTTPNotifier {
	return &HTTPNotifier{
		url:     url,
		timeout: NotifyTimeout,
		logger:  defLogger{},
	}
}

func (n *HTTPNotifier) WithLogger(logger Logger) *HTTPNotifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

func (n *HTTPNotifier) WithTimeout(timeout time.Duration) *HTTPNotifier {
	if timeout > 0 {
		n.timeout = timeout
	}
	return n
}

func (n *HTTPNotifier) Send(ctx context.Context, kind NotificationKind, toEmail string, payload map[string]any) error {
	body := map[string]any{
		"type": kind,
		"to":   toEmail,
	}
	for k, v := range payload {
		body[k] = v
	}

	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(n.url).
		Timeout(timeout).
		JSON(body)

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return goerrors.Wrap(errs[0], goerrors.CategoryExternal, "notification request failed")
	}

	if code < 200 || code >= 300 {
		return goerrors.New(
			fmt.Sprintf("notification service responded %d", code),
			goerrors.CategoryExternal,
		).WithMetadata(map[string]any{
			"status": code,
			"kind":   kind,
		})
	}

	n.logger.Debug("notification sent kind=%s to=%s", kind, toEmail)

	return nil
}

// NoopNotifier drops every notification. Useful in tests and local setups
// without a delivery service.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, kind NotificationKind, toEmail string, payload map[string]any) error {
	return nil
}

// notifyBestEffort runs the send on a fresh bounded context so a finished
// request cannot cancel it, and downgrades failure to a log line.
func notifyBestEffort(notifier Notifier, logger Logger, kind NotificationKind, toEmail string, payload map[string]any) {
	if notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), NotifyTimeout)
	defer cancel()

	if err := notifier.Send(ctx, kind, toEmail, payload); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Error("notification delivery failed kind=%s: %v", kind, err)
	}
}
