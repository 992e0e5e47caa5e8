package eventidprovider

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type UUIDProviderFn func() (uuid.UUID, error)

type UUIDEventIDProvider struct {
	nextUUIDFn UUIDProviderFn
}

func NewUUIDEventIDProvider() *UUIDEventIDProvider {
	return &UUIDEventIDProvider{
		nextUUIDFn: func() (uuid.UUID, error) { return uuid.NewRandom() },
	}
}

func NewCustomUUIDEventIDProvider(nextUUIDFn UUIDProviderFn) *UUIDEventIDProvider {
	return &UUIDEventIDProvider{
		nextUUIDFn: nextUUIDFn,
	}
}

func (p *UUIDEventIDProvider) Next() string {
	eid, err := p.nextUUIDFn()
	if err != nil {
		id := hex.EncodeToString([]byte(err.Error() + time.Now().String()))
		return fmt.Sprintf("%s (with error: %s)", id, err)
	}
	return eid.String()
}
