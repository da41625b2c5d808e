package gateway

import (
	"context"

	"github.com/google/uuid"
)

// LicenseGateway issues the purchased asset for an order. The call is safe
// to repeat: a key issued by a retry that then loses the fulfillment
// transaction is discarded in favor of the first committed one.
type LicenseGateway interface {
	IssueKey(ctx context.Context, orderID, customerEmail string) (string, error)
}

// KeyIssuer is the default LicenseGateway. Each call mints a fresh key;
// whether the real provider returns a stable key per order is its contract,
// not assumed here.
type KeyIssuer struct{}

func NewKeyIssuer() *KeyIssuer {
	return &KeyIssuer{}
}

func (g *KeyIssuer) IssueKey(ctx context.Context, orderID, customerEmail string) (string, error) {
	return "LICENSE-" + uuid.NewString(), nil
}
