package escrow

import (
	"fmt"
	"strings"
	"time"
)

// Policy selects how a failed outbound transfer (asset or fund payout) is handled.
type Policy int

const (
	// PolicyStrict aborts the calling operation on a failed payout and reverts the flag it set.
	// Nothing is lost, but a recipient that always fails blocks that operation forever.
	PolicyStrict Policy = iota
	// PolicyResilient keeps the flag set, reports the failure through a notification and
	// returns success. One failing party can never block settlement for anybody else, at the
	// price of the asset or funds staying in custody.
	PolicyResilient
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyResilient:
		return "resilient"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "strict" or "resilient" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return PolicyStrict, nil
	case "resilient":
		return PolicyResilient, nil
	default:
		return 0, fmt.Errorf("unknown transfer policy %q", s)
	}
}

const defaultTransferBudget = 5 * time.Second

// Config holds the engine's settlement settings.
type Config struct {
	Policy Policy
	// TransferBudget bounds each outbound transfer under PolicyResilient. The engine stops
	// waiting once it elapses even if the adapter ignores cancellation.
	TransferBudget time.Duration
}

// DefaultConfig returns the resilient policy with a 5s transfer budget.
func DefaultConfig() Config {
	return Config{
		Policy:         PolicyResilient,
		TransferBudget: defaultTransferBudget,
	}
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.Policy != PolicyStrict && c.Policy != PolicyResilient {
		return fmt.Errorf("invalid transfer policy %s", c.Policy)
	}
	if c.Policy == PolicyResilient && c.TransferBudget <= 0 {
		return fmt.Errorf("transfer budget must be positive under resilient policy, got %s", c.TransferBudget)
	}
	return nil
}
