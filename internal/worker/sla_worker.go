package worker

import (
	"github.com/spec-kit/support-tracker/internal/events"
	"github.com/spec-kit/support-tracker/internal/service"
)

// StartSLAWorker subscribes the SLA watcher to reducer events.
func StartSLAWorker(slaService *service.SLAService, dispatcher events.Dispatcher) {
	if slaService == nil || dispatcher == nil {
		return
	}
	slaService.RegisterHandlers(dispatcher)
}
