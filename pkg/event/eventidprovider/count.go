package eventidprovider

import (
	"strconv"
	"sync/atomic"
)

var provider = &IncreasingEventIDProvider{}

// MonotonicallyIncreasingEventIDProvider returns the process wide counter.
func MonotonicallyIncreasingEventIDProvider() *IncreasingEventIDProvider {
	return provider
}

func NewIncreasingEventIDProvider() *IncreasingEventIDProvider {
	return &IncreasingEventIDProvider{}
}

type IncreasingEventIDProvider struct {
	id int64
}

func (i *IncreasingEventIDProvider) Next() string {
	return strconv.FormatInt(atomic.AddInt64(&i.id, 1), 10)
}
