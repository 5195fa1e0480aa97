package gateway

import (
	"fmt"
	"sync"

	"github.com/brightstay/stayflow/pkg/logger"
	"github.com/google/uuid"
)

// DevGateway approves every payment locally. Used when no Stripe key is set.
type DevGateway struct {
	mu      sync.Mutex
	intents map[string]int64
}

func NewDev() *DevGateway {
	return &DevGateway{intents: make(map[string]int64)}
}

func (g *DevGateway) CreateIntent(amount int64, currency, guestEmail string) (*Intent, error) {
	ref := "dev_" + uuid.NewString()

	g.mu.Lock()
	g.intents[ref] = amount
	g.mu.Unlock()

	logger.Info("💳 [DEV GATEWAY] Payment intent created",
		"reference", ref,
		"amount", amount,
		"currency", currency,
		"email", guestEmail,
	)

	return &Intent{Reference: ref, ClientSecret: ref + "_secret"}, nil
}

func (g *DevGateway) ConfirmIntent(ref string) error {
	g.mu.Lock()
	_, ok := g.intents[ref]
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown payment reference %s", ref)
	}

	logger.Info("💳 [DEV GATEWAY] Payment confirmed", "reference", ref)
	return nil
}
