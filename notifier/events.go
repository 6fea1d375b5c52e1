package notifier

import (
	"evcs/internal"
)

// Events forwards charge point events to the message service so remote
// consumers see the same stream the chat bot does.
type Events struct {
	sink   internal.MessageService
	logger internal.LogHandler
}

func NewEvents(sink internal.MessageService) *Events {
	return &Events{sink: sink}
}

func (e *Events) SetLogger(logger internal.LogHandler) {
	e.logger = logger
}

func (e *Events) publish(event *internal.EventMessage) {
	if err := e.sink.Send(event); err != nil && e.logger != nil {
		e.logger.Error("publishing event", err)
	}
}

func (e *Events) OnBootNotification(event *internal.EventMessage) {
	e.publish(event)
}

func (e *Events) OnStatusNotification(event *internal.EventMessage) {
	e.publish(event)
}

func (e *Events) OnTransactionStart(event *internal.EventMessage) {
	e.publish(event)
}

func (e *Events) OnTransactionStop(event *internal.EventMessage) {
	e.publish(event)
}

func (e *Events) OnAuthorize(event *internal.EventMessage) {
	e.publish(event)
}
