package playground

import (
	"context"

	"github.com/GriffinCanCode/playground/internal/domain/compiler"
	"github.com/GriffinCanCode/playground/internal/domain/registry"
)

// Event is a user interaction forwarded from the preview pane
type Event struct {
	Target string `json:"target"`
	Type   string `json:"event"`
	Value  string `json:"value"`
}

// loopEvent is anything the driver loop reacts to
type loopEvent interface{}

type startEvent struct{}

type changeEvent struct {
	text *string
}

type bundlerReadyEvent struct {
	err error
}

type registryReadyEvent struct {
	table *registry.Table
}

type containerEvent struct{}

type timerEvent struct {
	seq   uint64
	phase phase
}

type compiledEvent struct {
	cycle  uint64
	bundle *compiler.Bundle
	err    error
}

type uiEvent struct {
	ctx   context.Context
	event Event
	reply chan error
}

type closeEvent struct{}
