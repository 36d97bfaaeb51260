package rest

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	domainEvent "github.com/wppweb/gateway/domains/event"
	pkgError "github.com/wppweb/gateway/pkg/error"
	"github.com/wppweb/gateway/pkg/msgworker"
	"github.com/wppweb/gateway/pkg/utils"
	"github.com/wppweb/gateway/pkg/whatsapp"
)

type Webhook struct {
	Service domainEvent.IEventUsecase
	Pool    *msgworker.Pool
}

// webhookBody is the provider's webhook envelope. The instance in the body
// is informational; the path parameter is authoritative.
type webhookBody struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance,omitempty"`
	Data     json.RawMessage `json:"data"`
}

func InitRestWebhook(app fiber.Router, service domainEvent.IEventUsecase, pool *msgworker.Pool) Webhook {
	rest := Webhook{Service: service, Pool: pool}

	app.Post("/webhook/:instance", rest.Receive)
	return rest
}

// Receive ingests one provider webhook. Always answers 200 once the payload
// parses: the provider retries non-2xx responses and a replay is already a
// no-op, so failing the delivery only multiplies traffic.
func (controller *Webhook) Receive(c *fiber.Ctx) error {
	instanceID := c.Params("instance")

	var body webhookBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}

	evt, err := domainEvent.Decode(body.Event, body.Data)
	if err != nil {
		var unknown *domainEvent.ErrUnknownEvent
		if errors.As(err, &unknown) {
			logrus.Debugf("[WEBHOOK] Ignoring event %s for %s", body.Event, instanceID)
			return c.JSON(utils.ResponseData{Status: 200, Code: "IGNORED", Message: "Event not consumed"})
		}
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Message: err.Error()})
	}

	controller.dispatch(instanceID, body.Event, evt)
	return c.JSON(utils.ResponseData{Status: 200, Code: "SUCCESS", Message: "Event accepted"})
}

// dispatch hands the event to the worker pool sharded by chat so messages
// of one conversation apply in arrival order. When the pool is saturated
// the event is ingested inline instead of being dropped.
func (controller *Webhook) dispatch(instanceID, eventName string, evt domainEvent.Event) {
	job := msgworker.Job{
		InstanceID: instanceID,
		ChatJID:    shardKeyFor(eventName, evt),
		Handler: func(ctx context.Context) error {
			return controller.ingest(ctx, instanceID, evt)
		},
	}

	if controller.Pool != nil && controller.Pool.TryDispatch(job) {
		return
	}
	if err := controller.ingest(context.Background(), instanceID, evt); err != nil {
		logrus.WithError(err).Warnf("[WEBHOOK] Inline ingest failed for %s", instanceID)
	}
}

func (controller *Webhook) ingest(ctx context.Context, instanceID string, evt domainEvent.Event) error {
	err := controller.Service.Ingest(ctx, instanceID, evt)
	if err == nil {
		return nil
	}
	// Deliveries for instances this gateway does not manage are dropped
	// silently, matching the always-200 contract.
	var notFound pkgError.NotFoundError
	if errors.As(err, &notFound) {
		logrus.Debugf("[WEBHOOK] Dropping event for unknown instance %s", instanceID)
		return nil
	}
	logrus.WithError(err).Warnf("[WEBHOOK] Ingest failed for %s", instanceID)
	return err
}

func shardKeyFor(eventName string, evt domainEvent.Event) string {
	switch e := evt.(type) {
	case domainEvent.MessagesUpserted:
		if len(e.Messages) > 0 {
			return whatsapp.NormalizeRemoteJID(e.Messages[0].Key.RemoteJid)
		}
	case domainEvent.MessageStatusChanged:
		if len(e.Updates) > 0 {
			return whatsapp.NormalizeRemoteJID(e.Updates[0].Key.RemoteJid)
		}
	}
	return eventName
}
