package testutil

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultPassword satisfies the registration password rules.
const DefaultPassword = "password123"

// RandomEmail returns a unique address on the example.com domain.
func RandomEmail() string {
	return fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8])
}
