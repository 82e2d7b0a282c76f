package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// ErrInvalidRecipient marks targets rejected before any transport is attempted.
// Such items are never retried.
var ErrInvalidRecipient = errors.New("invalid recipient")

// TransportError wraps a failure returned by a channel gateway.
type TransportError struct {
	Channel enums.Channel
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err stems from the network or a timeout
// rather than a provider rejection.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func invalid(target, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidRecipient, target, reason)
}
