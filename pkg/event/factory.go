package event

import (
	"time"

	"github.com/operator-framework/hasco/pkg/event/eventidprovider"
)

type FactoryOption[D interface{}] func(factory *Factory[D])

func WithIDProvider[D interface{}](provider IDProvider) FactoryOption[D] {
	return func(factory *Factory[D]) {
		factory.idProvider = provider
	}
}

func WithMetadata[D interface{}](metadata Metadata) FactoryOption[D] {
	return func(factory *Factory[D]) {
		factory.metadata = metadata
	}
}

// Factory stamps payloads of type D with headers naming its source.
type Factory[D interface{}] struct {
	source     SourceID
	metadata   Metadata
	idProvider IDProvider
}

func NewFactory[D interface{}](source SourceID, options ...FactoryOption[D]) *Factory[D] {
	factory := &Factory[D]{
		source:     source,
		idProvider: counterAdapter{eventidprovider.MonotonicallyIncreasingEventIDProvider()},
	}
	for _, applyOption := range options {
		applyOption(factory)
	}
	return factory
}

func (f *Factory[D]) NewEvent(data D) *Event[D] {
	return &Event[D]{
		EventHeader: Header{
			ID:       f.idProvider.NextEventID(),
			Source:   f.source,
			Created:  time.Now(),
			Metadata: f.metadata,
		},
		EventData: data,
	}
}

// counterAdapter and uuidAdapter keep eventidprovider free of an import on
// this package.
type counterAdapter struct {
	p *eventidprovider.IncreasingEventIDProvider
}

func (c counterAdapter) NextEventID() ID {
	return ID(c.p.Next())
}

type uuidAdapter struct {
	p *eventidprovider.UUIDEventIDProvider
}

func (u uuidAdapter) NextEventID() ID {
	return ID(u.p.Next())
}

// UUIDs returns an IDProvider generating random UUID based IDs.
func UUIDs() IDProvider {
	return uuidAdapter{eventidprovider.NewUUIDEventIDProvider()}
}

// Counter returns an IDProvider generating increasing decimal IDs.
func Counter() IDProvider {
	return counterAdapter{eventidprovider.NewIncreasingEventIDProvider()}
}
